package ratelimit

import (
	"context"
	"sync"
	"time"
)

// windowEntry tracks a single identifier's fixed window.
type windowEntry struct {
	count     int64
	resetTime time.Time
}

// MemoryStore is a fixed-window counter backed by an in-process map. Expired
// windows are swept on a background ticker so idle identifiers do not
// accumulate forever.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*windowEntry

	cleanupTicker *time.Ticker
	cleanupDone   chan struct{}
	stopOnce      sync.Once

	now func() time.Time
}

func NewMemoryStore(sweepInterval time.Duration) *MemoryStore {
	if sweepInterval <= 0 {
		sweepInterval = 5 * time.Minute
	}

	s := &MemoryStore{
		entries:       make(map[string]*windowEntry),
		cleanupTicker: time.NewTicker(sweepInterval),
		cleanupDone:   make(chan struct{}),
		now:           time.Now,
	}

	go s.cleanupLoop()
	return s
}

// Increment bumps the counter for key within the current window and returns
// the post-increment count together with the window's reset time. The count
// keeps growing for the life of the window, including for requests the
// caller goes on to deny.
func (s *MemoryStore) Increment(_ context.Context, key string, window time.Duration) (int64, time.Time, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.entries[key]
	if !exists || now.After(entry.resetTime) {
		entry = &windowEntry{resetTime: now.Add(window)}
		s.entries[key] = entry
	}

	entry.count++
	return entry.count, entry.resetTime, nil
}

func (s *MemoryStore) Stop() {
	s.stopOnce.Do(func() {
		s.cleanupTicker.Stop()
		close(s.cleanupDone)
	})
}

func (s *MemoryStore) cleanupLoop() {
	for {
		select {
		case <-s.cleanupTicker.C:
			s.sweep()
		case <-s.cleanupDone:
			return
		}
	}
}

func (s *MemoryStore) sweep() {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for key, entry := range s.entries {
		if now.After(entry.resetTime) {
			delete(s.entries, key)
		}
	}
}
