// Package statusstore persists session event history in an embedded
// badger database so the optional status page survives a process
// restart, even though the live playlists and segment bodies themselves
// are the source of truth (spec.md §1 Non-goals: no in-memory cache
// beyond the metadata queue — this store is the on-disk counterpart for
// finished sessions' history, not a cache of the active queue).
package statusstore

import (
	"encoding/json"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/Roenbaeck/hls-relay/internal/session"
)

// Store wraps a badger database keyed by "sess:<session_id>".
type Store struct {
	db *badger.DB
}

// Open opens (creating if necessary) the badger database at path.
func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// record is the on-disk shape: a session.Snapshot plus a persisted-at
// timestamp, so a long-stopped relay can still answer "when did we last
// see this session" after restart.
type record struct {
	Snapshot    session.Snapshot `json:"snapshot"`
	PersistedAt time.Time        `json:"persisted_at"`
}

// Put persists a session's current snapshot, overwriting any prior record
// for the same session ID.
func (s *Store) Put(snap session.Snapshot) error {
	rec := record{Snapshot: snap, PersistedAt: time.Now()}
	buf, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	key := []byte("sess:" + snap.SessionID)
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, buf)
	})
}

// Get returns the persisted snapshot for sessionID, if any.
func (s *Store) Get(sessionID string) (session.Snapshot, bool, error) {
	var rec record
	key := []byte("sess:" + sessionID)
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if err == badger.ErrKeyNotFound {
		return session.Snapshot{}, false, nil
	}
	if err != nil {
		return session.Snapshot{}, false, err
	}
	return rec.Snapshot, true, nil
}

// List returns every persisted session snapshot, most recently persisted
// first.
func (s *Store) List() ([]session.Snapshot, error) {
	var recs []record
	prefix := []byte("sess:")
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var rec record
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				continue
			}
			recs = append(recs, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for i := 1; i < len(recs); i++ {
		for j := i; j > 0 && recs[j].PersistedAt.After(recs[j-1].PersistedAt); j-- {
			recs[j], recs[j-1] = recs[j-1], recs[j]
		}
	}
	out := make([]session.Snapshot, len(recs))
	for i, r := range recs {
		out[i] = r.Snapshot
	}
	return out, nil
}

// DeleteOlderThan removes persisted records last written before cutoff,
// for the housekeeping sweep.
func (s *Store) DeleteOlderThan(cutoff time.Time) (int, error) {
	var toDelete [][]byte
	prefix := []byte("sess:")
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			var rec record
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				continue
			}
			if rec.PersistedAt.Before(cutoff) {
				key := append([]byte(nil), item.Key()...)
				toDelete = append(toDelete, key)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if len(toDelete) == 0 {
		return 0, nil
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		for _, key := range toDelete {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(toDelete), nil
}
