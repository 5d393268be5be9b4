// Package store persists leads. The JSON file is the lead store; xlsx, csv
// and sqlite are export targets that are never read back.
package store

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"leadscout/internal/domain"
	"leadscout/internal/errors"
)

// Load reads the lead file at path. A missing file is an empty store.
// Records that no longer pass validation are dropped from the result but
// stay in the file.
func Load(path string) ([]domain.Lead, error) {
	recs, err := readRecords(path)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Lead, 0, len(recs))
	for _, r := range recs {
		if r.lead != nil {
			out = append(out, *r.lead)
		}
	}
	return out, nil
}

// Save overwrites path with leads.
func Save(path string, leads []domain.Lead) error {
	return withLock(path, func() error {
		recs := make([]record, 0, len(leads))
		for i := range leads {
			recs = append(recs, record{url: leads[i].URL, lead: &leads[i]})
		}
		return writeAtomic(path, recs)
	})
}

// Append adds the leads whose URL is not stored yet and reports how many
// were added. Calling it twice with the same leads adds nothing the second
// time. Stored records are written back unchanged, including ones that no
// longer validate.
func Append(path string, leads []domain.Lead) (added int, err error) {
	err = withLock(path, func() error {
		recs, err := readRecords(path)
		if err != nil {
			return err
		}
		seen := make(map[string]struct{}, len(recs)+len(leads))
		for _, r := range recs {
			if r.url != "" {
				seen[r.url] = struct{}{}
			}
		}
		for i := range leads {
			l := leads[i]
			if _, dup := seen[l.URL]; dup {
				continue
			}
			seen[l.URL] = struct{}{}
			recs = append(recs, record{url: l.URL, lead: &l})
			added++
		}
		if added == 0 {
			return nil
		}
		return writeAtomic(path, recs)
	})
	return added, err
}

// Update replaces stored records that share a URL with one of leads and
// appends the rest. It returns how many records were replaced. Records it
// does not touch are written back unchanged.
func Update(path string, leads []domain.Lead) (replaced int, err error) {
	err = withLock(path, func() error {
		recs, err := readRecords(path)
		if err != nil {
			return err
		}
		idx := make(map[string]int, len(recs))
		for i, r := range recs {
			if r.url != "" {
				idx[r.url] = i
			}
		}
		for i := range leads {
			l := leads[i]
			if j, ok := idx[l.URL]; ok {
				recs[j] = record{url: l.URL, lead: &l}
				replaced++
				continue
			}
			idx[l.URL] = len(recs)
			recs = append(recs, record{url: l.URL, lead: &l})
		}
		return writeAtomic(path, recs)
	})
	return replaced, err
}

// record is one entry of the lead file. lead is nil when the stored JSON
// does not validate; raw then holds it verbatim.
type record struct {
	url  string
	raw  json.RawMessage
	lead *domain.Lead
}

func (r record) MarshalJSON() ([]byte, error) {
	if r.lead != nil {
		return json.Marshal(r.lead)
	}
	return r.raw, nil
}

func readRecords(path string) ([]record, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	if len(b) == 0 {
		return nil, nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, errors.Wrapf(err, "decode %s", path)
	}
	out := make([]record, 0, len(raw))
	for _, r := range raw {
		var l domain.Lead
		if err := json.Unmarshal(r, &l); err != nil {
			if !errors.Is(err, errors.ErrValidation) {
				return nil, errors.Wrapf(err, "decode %s", path)
			}
			var key struct {
				URL string `json:"url"`
			}
			_ = json.Unmarshal(r, &key)
			out = append(out, record{url: key.URL, raw: r})
			continue
		}
		out = append(out, record{url: l.URL, lead: &l})
	}
	return out, nil
}

// withLock serializes writers across processes on <path>.lock.
func withLock(path string, fn func() error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "create %s", filepath.Dir(path))
	}
	fl := flock.New(path + ".lock")
	if err := fl.Lock(); err != nil {
		return errors.Wrapf(err, "lock %s", path)
	}
	defer func() { _ = fl.Unlock() }()
	return fn()
}

func writeAtomic(path string, recs []record) error {
	if recs == nil {
		recs = []record{}
	}
	b, err := json.MarshalIndent(recs, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode leads")
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(append(b, '\n')); err != nil {
		_ = tmp.Close()
		return errors.Wrapf(err, "write %s", path)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	return errors.Wrapf(os.Rename(tmp.Name(), path), "replace %s", path)
}
