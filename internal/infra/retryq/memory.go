package retryq

import (
	"context"
	"sort"
	"sync"
	"time"

	"echodeed/internal/domain"
)

type memoryQueue struct {
	mu      sync.Mutex
	entries map[string]*domain.RetryQueueEntry
}

func NewMemoryQueue() domain.RetryQueue {
	return &memoryQueue{entries: make(map[string]*domain.RetryQueueEntry)}
}

func (q *memoryQueue) Schedule(_ context.Context, redemptionID string, retryAt time.Time) (domain.RetryQueueEntry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	entry, ok := q.entries[redemptionID]
	if !ok {
		entry = &domain.RetryQueueEntry{RedemptionID: redemptionID}
		q.entries[redemptionID] = entry
	}
	entry.RetryAt = retryAt
	entry.Attempts++
	return *entry, nil
}

func (q *memoryQueue) Due(_ context.Context, now time.Time, maxAttempts int) ([]domain.RetryQueueEntry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var due []domain.RetryQueueEntry
	for _, entry := range q.entries {
		if !entry.RetryAt.After(now) && entry.Attempts < maxAttempts {
			due = append(due, *entry)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].RetryAt.Before(due[j].RetryAt) })
	return due, nil
}

func (q *memoryQueue) Prune(_ context.Context, now time.Time, maxAttempts int) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	pruned := 0
	for id, entry := range q.entries {
		// Only entries whose retryAt has already elapsed are eligible:
		// a future entry is never pruned regardless of attempts.
		if !entry.RetryAt.After(now) && entry.Attempts >= maxAttempts {
			delete(q.entries, id)
			pruned++
		}
	}
	return pruned, nil
}

func (q *memoryQueue) Remove(_ context.Context, redemptionID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.entries, redemptionID)
	return nil
}
