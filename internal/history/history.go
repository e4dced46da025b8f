// Package history keeps the most recent readings per robot part.
package history

import (
	"sync"
	"time"
)

// Capacity is the number of entries retained per part.
const Capacity = 10

// Entry is the subset of a reading kept for smoothing.
type Entry struct {
	Temperature    float64
	Vibration      float64
	Humidity       float64
	OperatingHours float64
	Timestamp      time.Time
}

type key struct {
	robotID string
	partID  string
}

// Store is a per (robot, part) bounded buffer in insertion order.
type Store struct {
	mu      sync.RWMutex
	entries map[key][]Entry
}

func NewStore() *Store {
	return &Store{entries: make(map[key][]Entry)}
}

// Append records e and drops the oldest entries beyond Capacity.
func (s *Store) Append(robotID, partID string, e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key{robotID, partID}
	buf := append(s.entries[k], e)
	if len(buf) > Capacity {
		buf = buf[len(buf)-Capacity:]
	}
	s.entries[k] = buf
}

// Get returns a copy of the buffer for the part, oldest first.
func (s *Store) Get(robotID, partID string) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	buf := s.entries[key{robotID, partID}]
	out := make([]Entry, len(buf))
	copy(out, buf)

	return out
}

// Last returns up to n most recent entries, oldest first.
func (s *Store) Last(robotID, partID string, n int) []Entry {
	all := s.Get(robotID, partID)
	if n < len(all) {
		return all[len(all)-n:]
	}
	return all
}

// Reset drops every buffer.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[key][]Entry)
}
