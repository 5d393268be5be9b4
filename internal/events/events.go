// Package events records what a run did as typed JSON events. Each event is
// fanned out to live subscribers and, when configured, appended to a JSON
// Lines file.
package events

import (
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"leadscout/internal/errors"
)

const (
	RunStarted    = "run.started"
	SourceDone    = "source.done"
	SourceFailed  = "source.failed"
	ScrapeDone    = "scrape.done"
	Persisted     = "leads.persisted"
	QualifyDone   = "qualify.done"
	Exported      = "leads.exported"
	RunFinished   = "run.finished"
	ConfigReload  = "config.reloaded"
	schemaVersion = 1
)

type Event struct {
	Type    string          `json:"type"`
	Version int             `json:"v"`
	At      time.Time       `json:"at"`
	RunID   string          `json:"run_id"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func MakeEvent(runID, typ string, data any) (Event, error) {
	e := Event{
		Type:    typ,
		Version: schemaVersion,
		At:      time.Now().UTC(),
		RunID:   runID,
	}
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return e, errors.Wrapf(err, "encode %s event", typ)
		}
		e.Data = b
	}
	return e, nil
}

// Emitter stamps events with one run ID. A nil *Emitter discards events.
type Emitter struct {
	runID string
	hub   *Hub

	mu  sync.Mutex
	enc *json.Encoder
}

// NewEmitter publishes to hub (may be nil) and, when w is non-nil, writes
// one JSON object per line to w.
func NewEmitter(hub *Hub, w io.Writer) *Emitter {
	e := &Emitter{runID: uuid.NewString(), hub: hub}
	if w != nil {
		e.enc = json.NewEncoder(w)
	}
	return e
}

func (e *Emitter) RunID() string {
	if e == nil {
		return ""
	}
	return e.runID
}

// Emit records one event. Only a failed file write is reported.
func (e *Emitter) Emit(typ string, data any) error {
	if e == nil {
		return nil
	}
	ev, err := MakeEvent(e.runID, typ, data)
	if err != nil {
		return err
	}
	if e.hub != nil {
		e.hub.Publish(ev)
	}
	if e.enc == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return errors.Wrap(e.enc.Encode(ev), "write event")
}
