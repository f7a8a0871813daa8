package ratelimit

import (
	"context"
	"log"
	"sync"
	"time"

	"echodeed/internal/domain"
)

const (
	DefaultSweepInterval = 5 * time.Minute
	DefaultMaxIdle       = time.Hour
)

// Sweeper periodically deletes records that have not been touched within
// maxIdle, regardless of each key's configured window. It owns its ticker:
// Start launches the loop, Stop tears it down.
type Sweeper struct {
	store    domain.RateLimitStore
	interval time.Duration
	maxIdle  time.Duration
	now      func() time.Time

	mu   sync.Mutex
	done chan struct{}
}

func NewSweeper(store domain.RateLimitStore, interval, maxIdle time.Duration, now func() time.Time) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if maxIdle <= 0 {
		maxIdle = DefaultMaxIdle
	}
	if now == nil {
		now = time.Now
	}
	return &Sweeper{store: store, interval: interval, maxIdle: maxIdle, now: now}
}

func (s *Sweeper) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done != nil {
		return
	}
	s.done = make(chan struct{})
	go s.run(s.done)
}

func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done == nil {
		return
	}
	close(s.done)
	s.done = nil
}

func (s *Sweeper) run(done chan struct{}) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			s.sweepOnce(context.Background())
		}
	}
}

func (s *Sweeper) sweepOnce(ctx context.Context) {
	removed, err := s.store.Sweep(ctx, s.now().Add(-s.maxIdle))
	if err != nil {
		log.Printf("rate limit sweep failed: %v", err)
		return
	}
	if removed > 0 {
		log.Printf("rate limit sweep removed %d idle records", removed)
	}
}
