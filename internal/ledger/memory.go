package ledger

import (
	"context"
	"sync"
	"time"
)

// MemoryLedger is the in-process fallback used when no Redis is configured.
// Records do not survive a restart, so a reminder may fire again after one;
// within a run the at-most-once guarantee still holds.
type MemoryLedger struct {
	mu        sync.Mutex
	delivered map[string]struct{}
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{delivered: make(map[string]struct{})}
}

func (l *MemoryLedger) MarkDelivered(_ context.Context, eventID string, start time.Time) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := Key(eventID, start)
	if _, ok := l.delivered[key]; ok {
		return true, nil
	}

	l.delivered[key] = struct{}{}
	return false, nil
}

func (l *MemoryLedger) IsDelivered(_ context.Context, eventID string, start time.Time) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, ok := l.delivered[Key(eventID, start)]
	return ok, nil
}
