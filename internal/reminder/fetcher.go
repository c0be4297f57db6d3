// Package reminder watches a rolling window of upcoming events and fires a
// local alert at most once per occurrence. It is fully decoupled from the
// visible calendar: the window fetch runs regardless of route or view mode.
package reminder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/planwise/calendar-agent/internal/metrics"
	"github.com/planwise/calendar-agent/internal/model"
	"go.uber.org/zap"
)

type eventSource interface {
	GetEvents(ctx context.Context, mode model.ViewMode, r model.Range) ([]*model.Event, error)
}

// WindowFetcher keeps an in-memory snapshot of all events starting within
// the look-ahead horizon. The snapshot is replaced atomically; readers never
// observe a partially-updated list.
type WindowFetcher struct {
	logger  *zap.SugaredLogger
	source  eventSource
	horizon time.Duration
	period  time.Duration
	now     func() time.Time

	mu       sync.RWMutex
	snapshot []*model.Event
}

func NewWindowFetcher(logger *zap.SugaredLogger, source eventSource, horizon, period time.Duration) *WindowFetcher {
	return &WindowFetcher{
		logger:  logger,
		source:  source,
		horizon: horizon,
		period:  period,
		now:     time.Now,
	}
}

// RefreshWindow fetches events starting within [now, now+horizon] across all
// scopes. A failed fetch resets the snapshot to empty: a stale "already
// past" reminder is worse than a temporarily missing one.
func (f *WindowFetcher) RefreshWindow(ctx context.Context) error {
	now := f.now()
	window := model.Range{From: now, To: now.Add(f.horizon)}

	events, err := f.source.GetEvents(ctx, model.ViewModeAll, window)
	if err != nil {
		f.replace(nil)
		return fmt.Errorf("fetch reminder window: %w", err)
	}

	f.replace(events)
	return nil
}

func (f *WindowFetcher) Snapshot() []*model.Event {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.snapshot
}

func (f *WindowFetcher) Run(ctx context.Context) {
	if err := f.RefreshWindow(ctx); err != nil {
		f.logger.Errorw("failed to refresh reminder window", "err", err)
	}

	ticker := time.NewTicker(f.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := f.RefreshWindow(ctx); err != nil {
				f.logger.Errorw("failed to refresh reminder window", "err", err)
			}
		}
	}
}

func (f *WindowFetcher) replace(events []*model.Event) {
	f.mu.Lock()
	f.snapshot = events
	f.mu.Unlock()

	metrics.WindowEvents.Set(float64(len(events)))
}
