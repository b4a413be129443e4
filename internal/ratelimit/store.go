package ratelimit

import (
	"sync"
	"time"
)

// Entry is the fixed-window counter kept per client.
type Entry struct {
	Count     int
	ResetTime time.Time
}

// Store keeps window counters. Hit must check and increment atomically.
type Store interface {
	Hit(key string, now time.Time, max int, window time.Duration) Decision
	Sweep(now time.Time) int
	Len() int
}

// MemoryStore is a process-local Store guarded by a single mutex.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]*Entry)}
}

func (s *MemoryStore) Hit(key string, now time.Time, max int, window time.Duration) Decision {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || !now.Before(e.ResetTime) {
		e = &Entry{ResetTime: now.Add(window)}
		s.entries[key] = e
	}

	if e.Count >= max {
		return Decision{Allowed: false, Limit: max, Remaining: 0, ResetTime: e.ResetTime}
	}
	e.Count++
	return Decision{Allowed: true, Limit: max, Remaining: max - e.Count, ResetTime: e.ResetTime}
}

// Sweep drops entries whose window has ended and returns how many were removed.
func (s *MemoryStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, e := range s.entries {
		if !now.Before(e.ResetTime) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
