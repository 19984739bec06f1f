// Package history keeps a bounded in-memory record of sent notifications.
package history

import (
	"sync"
	"time"
)

// Kind tells status messages from failure reports.
type Kind string

const (
	KindStatus Kind = "status"
	KindError  Kind = "error"
)

// Notification is one message and the channels it reached.
type Notification struct {
	ID        string            `json:"id"`
	Kind      Kind              `json:"kind"`
	Homework  string            `json:"homework,omitempty"`
	Status    string            `json:"status,omitempty"`
	Text      string            `json:"text"`
	Delivered []string          `json:"delivered"`
	Failed    map[string]string `json:"failed,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// Store keeps the most recent notifications, dropping the oldest beyond capacity.
type Store struct {
	mu       sync.RWMutex
	capacity int
	items    []*Notification
}

// NewStore creates a store holding up to capacity records (100 when not positive).
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = 100
	}
	return &Store{capacity: capacity}
}

// Add appends n, evicting the oldest record when full.
func (s *Store) Add(n *Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	if n.Delivered == nil {
		n.Delivered = []string{}
	}
	s.items = append(s.items, n)
	if over := len(s.items) - s.capacity; over > 0 {
		s.items = append([]*Notification(nil), s.items[over:]...)
	}
}

// Get returns the record with the given id.
func (s *Store) Get(id string) (*Notification, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, n := range s.items {
		if n.ID == id {
			return n, true
		}
	}
	return nil, false
}

// List returns notifications newest first.
func (s *Store) List() []*Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Notification, 0, len(s.items))
	for i := len(s.items) - 1; i >= 0; i-- {
		out = append(out, s.items[i])
	}
	return out
}

// Len returns the number of records held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
