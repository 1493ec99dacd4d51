package tracker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

type processedEntry struct {
	recordID    string
	processedAt time.Time
}

// MemoryTracker is an in-memory implementation of the ProcessedTracker
// interface. State does not survive a restart, so it suits tests and
// single-run invocations only.
type MemoryTracker struct {
	entries map[string]processedEntry
	mu      sync.RWMutex
	logger  *zap.Logger
}

// NewMemoryTracker creates a new in-memory tracker
func NewMemoryTracker(logger *zap.Logger) *MemoryTracker {
	return &MemoryTracker{
		entries: make(map[string]processedEntry),
		logger:  logger,
	}
}

// IsProcessed reports whether the message id has already been handled.
func (t *MemoryTracker) IsProcessed(_ context.Context, messageID string) (bool, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.entries[messageID]
	return ok, nil
}

// MarkProcessed records a handled message id and the record its note landed on.
func (t *MemoryTracker) MarkProcessed(_ context.Context, messageID, recordID string, processedAt time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[messageID] = processedEntry{recordID: recordID, processedAt: processedAt}
	return nil
}

// Close is a no-op for the memory tracker.
func (t *MemoryTracker) Close() error {
	return nil
}
