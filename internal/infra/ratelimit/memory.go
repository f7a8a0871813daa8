package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"

	"echodeed/internal/domain"
)

// memoryRecord pairs the counter state with the window it was taken
// under, so eviction decisions use each record's own window rather than
// whatever window the current caller happens to hold.
type memoryRecord struct {
	rec    domain.RateLimitRecord
	window time.Duration
}

func (r *memoryRecord) elapsed(now time.Time) bool {
	return !now.Before(r.rec.WindowStart.Add(r.window))
}

type memoryStore struct {
	mu      sync.Mutex
	now     func() time.Time
	data    map[string]*memoryRecord
	maxKeys int
}

type MemoryStoreConfig struct {
	Now     func() time.Time
	MaxKeys int
}

func NewMemoryStore(cfg MemoryStoreConfig) domain.RateLimitStore {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.MaxKeys <= 0 {
		cfg.MaxKeys = 10000
	}
	return &memoryStore{
		now:     cfg.Now,
		data:    make(map[string]*memoryRecord),
		maxKeys: cfg.MaxKeys,
	}
}

func (m *memoryStore) Take(_ context.Context, key string, window time.Duration) (domain.RateLimitRecord, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.data[key]
	if ok && entry.elapsed(now) {
		// Previous window has fully elapsed: reset in place rather than
		// delete, so lastRequest history survives for the idle sweep.
		entry.rec.Count = 0
		entry.rec.WindowStart = now
	}
	if !ok {
		if len(m.data) >= m.maxKeys {
			m.evictElapsed(now)
		}
		if len(m.data) >= m.maxKeys {
			return domain.RateLimitRecord{}, errors.New("rate limit store capacity exceeded")
		}
		entry = &memoryRecord{rec: domain.RateLimitRecord{WindowStart: now}}
		m.data[key] = entry
	}

	entry.window = window
	entry.rec.Count++
	entry.rec.LastRequest = now
	return entry.rec, nil
}

func (m *memoryStore) Sweep(_ context.Context, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key, entry := range m.data {
		if entry.rec.LastRequest.Before(cutoff) {
			delete(m.data, key)
			removed++
		}
	}
	return removed, nil
}

// evictElapsed is the capacity backstop. Only records whose own window
// has closed are dropped; a record mid-window keeps its counter no
// matter which rule triggered the eviction.
func (m *memoryStore) evictElapsed(now time.Time) {
	for key, entry := range m.data {
		if entry.elapsed(now) {
			delete(m.data, key)
		}
	}
}
