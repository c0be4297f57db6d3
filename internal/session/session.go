// Package session ties one active calendar session together: it feeds route
// and auth transitions to the channel manager and converts change-counter
// bumps into timeline refetches. One instance exists per mounted calendar;
// nothing here is a process-wide singleton.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/planwise/calendar-agent/internal/model"
	"github.com/planwise/calendar-agent/internal/timeline"
	"go.uber.org/zap"
)

type channelManager interface {
	Ensure(onCalendarRoute, authenticated bool)
	OnChange(cb func(uint64))
	Close()
}

type aggregator interface {
	LoadVisible(ctx context.Context, r model.Range, mode model.ViewMode) (*timeline.Timeline, error)
	LoadAvailability(ctx context.Context, userID int64, r model.Range) (*timeline.Timeline, error)
	Refresh(ctx context.Context) error
}

type Session struct {
	logger     *zap.SugaredLogger
	manager    channelManager
	aggregator aggregator

	mu              sync.Mutex
	onCalendarRoute bool
	authenticated   bool
	visibleRange    model.Range
	viewMode        model.ViewMode
}

func New(logger *zap.SugaredLogger, manager channelManager, agg aggregator) *Session {
	s := &Session{
		logger:     logger,
		manager:    manager,
		aggregator: agg,
		viewMode:   model.ViewModeAll,
	}

	manager.OnChange(func(counter uint64) {
		if err := s.aggregator.Refresh(context.Background()); err != nil {
			s.logger.Errorw("failed to refresh timeline on change signal", "counter", counter, "err", err)
		}
	})

	return s
}

func (s *Session) SetRoute(onCalendarRoute bool) {
	s.mu.Lock()
	s.onCalendarRoute = onCalendarRoute
	route, authed := s.onCalendarRoute, s.authenticated
	s.mu.Unlock()

	s.manager.Ensure(route, authed)
}

func (s *Session) SetAuthenticated(authenticated bool) {
	s.mu.Lock()
	s.authenticated = authenticated
	route, authed := s.onCalendarRoute, s.authenticated
	s.mu.Unlock()

	s.manager.Ensure(route, authed)
}

func (s *Session) SetVisibleRange(ctx context.Context, r model.Range, mode model.ViewMode) error {
	s.mu.Lock()
	s.visibleRange = r
	s.viewMode = mode
	s.mu.Unlock()

	_, err := s.aggregator.LoadVisible(ctx, r, mode)
	return err
}

func (s *Session) SelectAvailabilityUser(ctx context.Context, userID int64) error {
	s.mu.Lock()
	r := s.visibleRange
	s.mu.Unlock()

	_, err := s.aggregator.LoadAvailability(ctx, userID, r)
	return err
}

func (s *Session) VisibleRange() (model.Range, model.ViewMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visibleRange, s.viewMode
}

func (s *Session) Close() {
	s.manager.Close()
}

// DefaultRange is the initial visible range of a fresh session: the current
// day plus a week.
func DefaultRange(now time.Time, loc *time.Location) model.Range {
	local := now.In(loc)
	from := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return model.Range{From: from, To: from.AddDate(0, 0, 7)}
}
