package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/cockroachdb/pebble"
)

// PebbleStore keeps entries in PebbleDB, ordered by time of recording.
type PebbleStore struct {
	db *pebble.DB
}

func NewPebbleStore(dir string) (*PebbleStore, error) {
	d, err := pebble.Open(filepath.Clean(dir), &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("pebble open: %w", err)
	}
	return &PebbleStore{db: d}, nil
}

func (p *PebbleStore) Close() error { return p.db.Close() }

// entryKey sorts by recording time, then by entry id
func entryKey(e Entry) []byte {
	return []byte(fmt.Sprintf("%020d/%s", e.At.UnixNano(), e.ID))
}

func (p *PebbleStore) Append(_ context.Context, e Entry) error {
	b, err := json.Marshal(&e)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	// NoSync; the WAL handles durability
	if err := p.db.Set(entryKey(e), b, pebble.NoSync); err != nil {
		return fmt.Errorf("pebble set: %w", err)
	}
	return nil
}

// Get returns the entry stored under key
func (p *PebbleStore) Get(key string) (Entry, bool, error) {
	v, closer, err := p.db.Get([]byte(key))
	if err == pebble.ErrNotFound {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	defer closer.Close()

	var e Entry
	if err := json.Unmarshal(v, &e); err != nil {
		return Entry{}, false, fmt.Errorf("decode %s: %w", key, err)
	}
	return e, true, nil
}

// Range calls fn for every entry in recording order until fn returns an error
func (p *PebbleStore) Range(fn func(key string, e Entry) error) error {
	it, err := p.db.NewIter(nil)
	if err != nil {
		return fmt.Errorf("pebble iter: %w", err)
	}
	defer it.Close()

	for it.First(); it.Valid(); it.Next() {
		k := string(it.Key())
		var e Entry
		if err := json.Unmarshal(it.Value(), &e); err != nil {
			return fmt.Errorf("decode %s: %w", k, err)
		}
		if err := fn(k, e); err != nil {
			return err
		}
	}
	return it.Error()
}
