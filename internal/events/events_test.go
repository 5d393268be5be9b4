package events

import (
	"bufio"
	"bytes"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitterWritesJSONLines(t *testing.T) {
	var buf bytes.Buffer
	e := NewEmitter(nil, &buf)
	_, err := uuid.Parse(e.RunID())
	require.NoError(t, err)

	require.NoError(t, e.Emit(RunStarted, map[string]any{"sources": []string{"reddit"}}))
	require.NoError(t, e.Emit(SourceDone, map[string]any{"source": "reddit", "count": 3}))
	require.NoError(t, e.Emit(RunFinished, nil))

	var got []Event
	sc := bufio.NewScanner(&buf)
	for sc.Scan() {
		var ev Event
		require.NoError(t, json.Unmarshal(sc.Bytes(), &ev))
		got = append(got, ev)
	}
	require.Len(t, got, 3)
	for _, ev := range got {
		assert.Equal(t, e.RunID(), ev.RunID)
		assert.Equal(t, 1, ev.Version)
		assert.False(t, ev.At.IsZero())
	}
	assert.Equal(t, SourceDone, got[1].Type)
	assert.JSONEq(t, `{"source":"reddit","count":3}`, string(got[1].Data))
	assert.Empty(t, got[2].Data)
}

func TestEmitterPublishesToHub(t *testing.T) {
	hub := NewHub()
	ch := hub.Subscribe()

	e := NewEmitter(hub, nil)
	require.NoError(t, e.Emit(QualifyDone, map[string]int{"qualified": 2}))

	ev := <-ch
	assert.Equal(t, QualifyDone, ev.Type)

	hub.Close()
	_, open := <-ch
	assert.False(t, open)
	hub.Publish(ev)
	hub.Unsubscribe(ch)
}

func TestHubDropsForSlowSubscriber(t *testing.T) {
	hub := NewHub()
	ch := hub.Subscribe()
	for i := 0; i < 25; i++ {
		hub.Publish(Event{Type: "tick"})
	}
	assert.Len(t, ch, cap(ch))
	hub.Unsubscribe(ch)
}

func TestNilEmitter(t *testing.T) {
	var e *Emitter
	assert.NoError(t, e.Emit(RunStarted, nil))
	assert.Empty(t, e.RunID())
}

func TestMakeEventRejectsUnencodable(t *testing.T) {
	_, err := MakeEvent("r", "bad", map[string]any{"ch": make(chan int)})
	assert.Error(t, err)
}
