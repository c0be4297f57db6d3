package reminder

import (
	"context"
	"time"

	"github.com/planwise/calendar-agent/internal/metrics"
	"github.com/planwise/calendar-agent/internal/model"
	"github.com/planwise/calendar-agent/internal/notify"
	"go.uber.org/zap"
)

type snapshotSource interface {
	Snapshot() []*model.Event
}

type deliveryLedger interface {
	MarkDelivered(ctx context.Context, eventID string, start time.Time) (already bool, err error)
}

type notifier interface {
	Permitted() bool
	Send(ctx context.Context, n *notify.Notification) error
}

// Evaluator decides, on a short fixed tick, which reminders are due. Each
// occurrence moves Pending -> Delivered exactly once; the ledger write
// happens before the display attempt so a rendering failure cannot cause a
// retry storm.
type Evaluator struct {
	logger    *zap.SugaredLogger
	snapshots snapshotSource
	ledger    deliveryLedger
	notifier  notifier
	viewerID  int64
	window    time.Duration
	tick      time.Duration
	now       func() time.Time
}

func NewEvaluator(
	logger *zap.SugaredLogger,
	snapshots snapshotSource,
	ledger deliveryLedger,
	notifier notifier,
	viewerID int64,
	window time.Duration,
	tick time.Duration,
) *Evaluator {
	return &Evaluator{
		logger:    logger,
		snapshots: snapshots,
		ledger:    ledger,
		notifier:  notifier,
		viewerID:  viewerID,
		window:    window,
		tick:      tick,
		now:       time.Now,
	}
}

func (e *Evaluator) Run(ctx context.Context) {
	ticker := time.NewTicker(e.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.EvaluateTick(ctx, e.now())
		}
	}
}

// EvaluateTick re-reads the current snapshot at fire time, never a captured
// copy, and triggers at most one notification per qualifying event.
func (e *Evaluator) EvaluateTick(ctx context.Context, now time.Time) {
	for _, event := range e.snapshots.Snapshot() {
		if event.ReminderMinutes == nil {
			continue
		}
		if event.CreatedByUserID != e.viewerID {
			continue
		}
		// Strictly past starts get no reminder; an event starting exactly
		// now still qualifies so a zero-offset reminder can fire.
		if event.Start.Before(now) {
			continue
		}

		offset := time.Duration(*event.ReminderMinutes) * time.Minute
		notifyAt := event.Start.Add(-offset)

		// Bounded delivery window [notifyAt, notifyAt+window): tolerates
		// tick jitter without allowing unbounded-late notifications.
		if now.Before(notifyAt) || !now.Before(notifyAt.Add(e.window)) {
			continue
		}

		already, err := e.ledger.MarkDelivered(ctx, event.ID, event.Start)
		if err != nil {
			e.logger.Errorw("failed to mark reminder delivered", "event", event.ID, "err", err)
			continue
		}
		if already {
			continue
		}

		metrics.RemindersDelivered.Inc()

		// The ledger is marked even while not permitted, so a later grant
		// cannot release a flood of deferred deliveries.
		if !e.notifier.Permitted() {
			metrics.RemindersSuppressed.Inc()
			continue
		}

		n := &notify.Notification{
			Title: event.Title,
			Body:  offsetLabel(*event.ReminderMinutes),
			Tag:   event.ID,
		}
		if err := e.notifier.Send(ctx, n); err != nil {
			// Write-then-act: already marked, no retry.
			e.logger.Errorw("failed to show reminder", "event", event.ID, "err", err)
			continue
		}

		e.logger.Infow("reminder delivered", "event", event.ID, "title", event.Title, "offset", n.Body)
	}
}
