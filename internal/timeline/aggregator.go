// Package timeline merges the viewer's own events, organization-wide events
// and a selected user's read-only busy intervals into one display model.
package timeline

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/planwise/calendar-agent/internal/metrics"
	"github.com/planwise/calendar-agent/internal/model"
	"go.uber.org/zap"
)

type plannerClient interface {
	GetEvents(ctx context.Context, mode model.ViewMode, r model.Range) ([]*model.Event, error)
	GetAvailability(ctx context.Context, userID int64, r model.Range) ([]*model.Event, error)
	CreateEvent(ctx context.Context, info *model.EventCreate) (*model.Event, error)
	UpdateEvent(ctx context.Context, id string, info *model.EventUpdate) error
	DeleteEvent(ctx context.Context, id string) error
}

// Timeline is what a view renders. Availability items are concatenated onto,
// never merged into, the primary events and are excluded from editing.
type Timeline struct {
	Events       []*model.Event
	Availability []*model.Event
}

// Aggregator owns the current timeline for one calendar session. Fetch
// results are applied only if no newer fetch has been issued meanwhile;
// without that check a slow early fetch landing late would revert the view
// to stale data.
type Aggregator struct {
	logger *zap.SugaredLogger
	client plannerClient
	loc    *time.Location

	generation      uint64
	availGeneration uint64

	mu        sync.Mutex
	visible   []*model.Event
	avail     []*model.Event
	lastRange model.Range
	lastMode  model.ViewMode
	availUser int64
	onUpdate  func(*Timeline)
}

func NewAggregator(logger *zap.SugaredLogger, client plannerClient, loc *time.Location) *Aggregator {
	return &Aggregator{
		logger:   logger,
		client:   client,
		loc:      loc,
		lastMode: model.ViewModeAll,
	}
}

// OnUpdate registers the single callback invoked whenever the timeline
// changes. Must be set before the aggregator starts serving loads.
func (a *Aggregator) OnUpdate(cb func(*Timeline)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onUpdate = cb
}

// LoadVisible fetches the events visible for the range and mode. A nil, nil
// return means the result was superseded by a newer load and dropped.
func (a *Aggregator) LoadVisible(ctx context.Context, r model.Range, mode model.ViewMode) (*Timeline, error) {
	a.mu.Lock()
	a.lastRange = r
	a.lastMode = mode
	a.mu.Unlock()

	gen := atomic.AddUint64(&a.generation, 1)
	metrics.TimelineRefetches.Inc()

	events, err := a.client.GetEvents(ctx, mode, r)
	if err != nil {
		return nil, fmt.Errorf("load visible range: %w", err)
	}

	a.mu.Lock()
	if gen != atomic.LoadUint64(&a.generation) {
		a.mu.Unlock()
		metrics.StaleFetchesDropped.Inc()
		a.logger.Debugw("dropping superseded fetch", "generation", gen)
		return nil, nil
	}
	a.visible = events
	t := a.currentLocked()
	cb := a.onUpdate
	a.mu.Unlock()

	if cb != nil {
		cb(t)
	}

	return t, nil
}

// LoadAvailability fetches the busy intervals of another user for the range.
// A zero userID deselects the availability target and clears the items.
func (a *Aggregator) LoadAvailability(ctx context.Context, userID int64, r model.Range) (*Timeline, error) {
	a.mu.Lock()
	a.availUser = userID
	a.mu.Unlock()

	gen := atomic.AddUint64(&a.availGeneration, 1)

	var items []*model.Event
	if userID != 0 {
		var err error
		items, err = a.client.GetAvailability(ctx, userID, r)
		if err != nil {
			return nil, fmt.Errorf("load availability: %w", err)
		}
	}

	for _, item := range items {
		item.Editable = false
		if item.Title == "" {
			item.Title = "Busy"
		}
	}

	a.mu.Lock()
	if gen != atomic.LoadUint64(&a.availGeneration) {
		a.mu.Unlock()
		metrics.StaleFetchesDropped.Inc()
		a.logger.Debugw("dropping superseded availability fetch", "generation", gen)
		return nil, nil
	}
	a.avail = items
	t := a.currentLocked()
	cb := a.onUpdate
	a.mu.Unlock()

	if cb != nil {
		cb(t)
	}

	return t, nil
}

// Refresh re-issues the last visible load (and availability load, if a user
// is selected). Driven by change-counter bumps from the push channel.
func (a *Aggregator) Refresh(ctx context.Context) error {
	a.mu.Lock()
	r := a.lastRange
	mode := a.lastMode
	availUser := a.availUser
	a.mu.Unlock()

	if r.From.IsZero() && r.To.IsZero() {
		return nil
	}

	if _, err := a.LoadVisible(ctx, r, mode); err != nil {
		return err
	}

	if availUser != 0 {
		if _, err := a.LoadAvailability(ctx, availUser, r); err != nil {
			return err
		}
	}

	return nil
}

// Reschedule moves an editable event to a new start/end. The displayed
// position updates optimistically and is reverted if the write fails, so no
// partial state stays visible.
func (a *Aggregator) Reschedule(ctx context.Context, id string, start time.Time, end *time.Time) error {
	a.mu.Lock()

	for _, item := range a.avail {
		if item.ID == id {
			a.mu.Unlock()
			return model.ErrReadOnly
		}
	}

	var target *model.Event
	for _, e := range a.visible {
		if e.ID == id {
			target = e
			break
		}
	}
	if target == nil {
		a.mu.Unlock()
		return model.ErrNoRecord
	}
	if !target.Editable {
		a.mu.Unlock()
		return model.ErrReadOnly
	}

	prevStart := target.Start
	prevEnd := target.End
	target.Start = start
	target.End = end

	upd := updateFromEvent(target)
	t := a.currentLocked()
	cb := a.onUpdate
	a.mu.Unlock()

	if cb != nil {
		cb(t)
	}

	if err := a.client.UpdateEvent(ctx, id, upd); err != nil {
		a.mu.Lock()
		target.Start = prevStart
		target.End = prevEnd
		t := a.currentLocked()
		a.mu.Unlock()

		if cb != nil {
			cb(t)
		}

		return fmt.Errorf("reschedule event %v: %w", id, err)
	}

	return nil
}

// Create persists a new event and refreshes the visible range. All-day items
// get snapped to whole-day boundaries in the viewer's zone first.
func (a *Aggregator) Create(ctx context.Context, info *model.EventCreate) (*model.Event, error) {
	normalized := *info
	if normalized.AllDay {
		start, end := DayBounds(normalized.Start, a.loc)
		normalized.Start = start
		normalized.End = &end
	}

	event, err := a.client.CreateEvent(ctx, &normalized)
	if err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}

	if err := a.Refresh(ctx); err != nil {
		a.logger.Errorw("failed to refresh after create", "err", err)
	}

	return event, nil
}

func (a *Aggregator) Update(ctx context.Context, id string, info *model.EventUpdate) error {
	normalized := *info
	if normalized.AllDay {
		start, end := DayBounds(normalized.Start, a.loc)
		normalized.Start = start
		normalized.End = &end
	}

	if err := a.client.UpdateEvent(ctx, id, &normalized); err != nil {
		return fmt.Errorf("update event %v: %w", id, err)
	}

	if err := a.Refresh(ctx); err != nil {
		a.logger.Errorw("failed to refresh after update", "err", err)
	}

	return nil
}

func (a *Aggregator) Delete(ctx context.Context, id string) error {
	if err := a.client.DeleteEvent(ctx, id); err != nil {
		return fmt.Errorf("delete event %v: %w", id, err)
	}

	if err := a.Refresh(ctx); err != nil {
		a.logger.Errorw("failed to refresh after delete", "err", err)
	}

	return nil
}

// Current returns the timeline as last applied.
func (a *Aggregator) Current() *Timeline {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.currentLocked()
}

func (a *Aggregator) currentLocked() *Timeline {
	events := make([]*model.Event, len(a.visible))
	copy(events, a.visible)
	avail := make([]*model.Event, len(a.avail))
	copy(avail, a.avail)

	return &Timeline{
		Events:       events,
		Availability: avail,
	}
}

func updateFromEvent(e *model.Event) *model.EventUpdate {
	return &model.EventUpdate{
		Title:           e.Title,
		Start:           e.Start,
		End:             e.End,
		AllDay:          e.AllDay,
		Category:        e.Category,
		Scope:           e.Scope,
		ReminderMinutes: e.ReminderMinutes,
	}
}
