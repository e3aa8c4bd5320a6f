// Package history records how far each item was watched.
package history

import (
	"sync"
	"time"

	"github.com/metafates/gache"
	"github.com/opentube/opentube/filesystem"
	"github.com/opentube/opentube/log"
	"github.com/opentube/opentube/queue"
	"github.com/opentube/opentube/where"
	"github.com/samber/lo"
)

// Recorder receives watch positions. Callers run Record off their control
// goroutine, so implementations may write synchronously.
type Recorder interface {
	Record(item queue.Item, position time.Duration)
}

// Entry is the furthest recorded position of one item.
type Entry struct {
	Item      queue.Item    `json:"item"`
	Position  time.Duration `json:"position"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Percentage returns how much of the item was watched, or 0 for items of unknown length.
func (e *Entry) Percentage() float64 {
	if e.Item.Duration <= 0 {
		return 0
	}
	total := time.Duration(e.Item.Duration) * time.Second
	return lo.Clamp(float64(e.Position)/float64(total)*100, 0, 100)
}

// Store persists entries keyed by item URL.
type Store struct {
	mu     sync.Mutex
	cacher *gache.Cache[map[string]*Entry]
}

// New returns a store backed by the file at path on the active filesystem.
func New(path string) *Store {
	return &Store{
		cacher: gache.New[map[string]*Entry](
			&gache.Options{
				Path:       path,
				FileSystem: &filesystem.GacheFs{},
			},
		),
	}
}

// Default returns a store at the standard history location.
func Default() *Store {
	return New(where.History())
}

// Get returns every recorded entry.
func (s *Store) Get() (map[string]*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked()
}

func (s *Store) getLocked() (map[string]*Entry, error) {
	cached, expired, err := s.cacher.Get()
	if err != nil {
		return nil, err
	}
	if expired || cached == nil {
		return make(map[string]*Entry), nil
	}
	return cached, nil
}

// Save stores position for item unless a further position is already known.
func (s *Store) Save(item queue.Item, position time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	saved, err := s.getLocked()
	if err != nil {
		return err
	}

	if existing, ok := saved[item.URL]; ok && existing.Position > position {
		position = existing.Position
	}

	saved[item.URL] = &Entry{
		Item:      item,
		Position:  position,
		UpdatedAt: time.Now(),
	}

	return s.cacher.Set(saved)
}

// Record saves position and logs failures. The write has landed when it returns.
func (s *Store) Record(item queue.Item, position time.Duration) {
	if err := s.Save(item, position); err != nil {
		log.Warnf("history: could not record %s: %s", item.URL, err)
	}
}

// Remove deletes the entry for url.
func (s *Store) Remove(url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	saved, err := s.getLocked()
	if err != nil {
		return err
	}

	delete(saved, url)
	return s.cacher.Set(saved)
}
