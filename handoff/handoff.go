// Package handoff stores encoded play queues so another process can resume a session.
package handoff

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/opentube/opentube/log"
	"github.com/opentube/opentube/queue"
	"github.com/opentube/opentube/where"
	bolt "go.etcd.io/bbolt"
)

var (
	bucketQueues = []byte("queues")
	bucketSaved  = []byte("saved")
)

// ErrNotFound is returned for unknown session ids.
var ErrNotFound = errors.New("session not found")

// Summary describes one stored queue.
type Summary struct {
	ID       string
	SavedAt  time.Time
	Len      int
	Index    int
	Complete bool
	Current  string
}

// Store is a bbolt database of encoded queues keyed by session id.
type Store struct {
	db *bolt.DB
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketQueues, bucketSaved} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// OpenDefault opens the store at the standard sessions location.
func OpenDefault() (*Store, error) {
	return Open(where.Sessions())
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save stores q under a fresh id.
func (s *Store) Save(q *queue.Queue) (string, error) {
	data, err := q.Encode()
	if err != nil {
		return "", err
	}

	id := uuid.NewString()
	saved, err := time.Now().UTC().MarshalText()
	if err != nil {
		return "", err
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(bucketQueues).Put([]byte(id), data); err != nil {
			return err
		}
		return tx.Bucket(bucketSaved).Put([]byte(id), saved)
	})
	if err != nil {
		return "", fmt.Errorf("save session: %w", err)
	}

	log.Infof("saved session %s with %d items", id, q.Len())
	return id, nil
}

// Load decodes the queue stored under id.
func (s *Store) Load(id string) (*queue.Queue, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucketQueues).Get([]byte(id)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	return queue.Decode(data)
}

// Delete removes the queue stored under id.
func (s *Store) Delete(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		queues := tx.Bucket(bucketQueues)
		if queues.Get([]byte(id)) == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		if err := queues.Delete([]byte(id)); err != nil {
			return err
		}
		return tx.Bucket(bucketSaved).Delete([]byte(id))
	})
}

// List summarizes every stored queue, newest first. Undecodable entries are skipped.
func (s *Store) List() ([]Summary, error) {
	var summaries []Summary

	err := s.db.View(func(tx *bolt.Tx) error {
		saved := tx.Bucket(bucketSaved)
		return tx.Bucket(bucketQueues).ForEach(func(k, v []byte) error {
			q, err := queue.Decode(v)
			if err != nil {
				log.Warnf("skipping session %s: %s", k, err)
				return nil
			}

			summary := Summary{
				ID:       string(k),
				Len:      q.Len(),
				Index:    q.Index(),
				Complete: q.IsComplete(),
			}
			if item, ok := q.Current().Get(); ok {
				summary.Current = item.Title
			}
			if raw := saved.Get(k); raw != nil {
				_ = summary.SavedAt.UnmarshalText(raw)
			}

			summaries = append(summaries, summary)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].SavedAt.After(summaries[j].SavedAt)
	})
	return summaries, nil
}
