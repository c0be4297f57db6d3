package session

import (
	"context"
	"testing"
	"time"

	"github.com/planwise/calendar-agent/internal/model"
	"github.com/planwise/calendar-agent/internal/timeline"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeManager struct {
	ensureCalls [][2]bool
	onChange    func(uint64)
	closed      bool
}

func (m *fakeManager) Ensure(onCalendarRoute, authenticated bool) {
	m.ensureCalls = append(m.ensureCalls, [2]bool{onCalendarRoute, authenticated})
}

func (m *fakeManager) OnChange(cb func(uint64)) {
	m.onChange = cb
}

func (m *fakeManager) Close() {
	m.closed = true
}

type fakeAggregator struct {
	visibleCalls []model.ViewMode
	availCalls   []int64
	refreshes    int
}

func (a *fakeAggregator) LoadVisible(_ context.Context, _ model.Range, mode model.ViewMode) (*timeline.Timeline, error) {
	a.visibleCalls = append(a.visibleCalls, mode)
	return &timeline.Timeline{}, nil
}

func (a *fakeAggregator) LoadAvailability(_ context.Context, userID int64, _ model.Range) (*timeline.Timeline, error) {
	a.availCalls = append(a.availCalls, userID)
	return &timeline.Timeline{}, nil
}

func (a *fakeAggregator) Refresh(_ context.Context) error {
	a.refreshes++
	return nil
}

func TestSessionRouteAndAuthTransitions(t *testing.T) {
	manager := &fakeManager{}
	agg := &fakeAggregator{}
	s := New(zap.NewNop().Sugar(), manager, agg)

	s.SetAuthenticated(true)
	s.SetRoute(true)
	s.SetRoute(false)

	require.Equal(t, [][2]bool{
		{false, true},
		{true, true},
		{false, true},
	}, manager.ensureCalls)
}

func TestSessionRefetchesOnChangeSignal(t *testing.T) {
	manager := &fakeManager{}
	agg := &fakeAggregator{}
	s := New(zap.NewNop().Sugar(), manager, agg)

	require.NoError(t, s.SetVisibleRange(context.Background(), DefaultRange(time.Now(), time.UTC), model.ViewModeAll))
	require.NotNil(t, manager.onChange)

	// Another user created an event; the push channel bumps the counter and
	// the timeline refetches without a manual reload.
	manager.onChange(1)
	manager.onChange(2)

	require.Equal(t, 2, agg.refreshes)
	require.Equal(t, []model.ViewMode{model.ViewModeAll}, agg.visibleCalls)
}

func TestSessionClose(t *testing.T) {
	manager := &fakeManager{}
	s := New(zap.NewNop().Sugar(), manager, &fakeAggregator{})

	s.Close()
	require.True(t, manager.closed)
}

func TestDefaultRange(t *testing.T) {
	zone := time.FixedZone("UTC+3", 3*60*60)
	now := time.Date(2024, 3, 10, 14, 45, 0, 0, zone)

	r := DefaultRange(now, zone)
	require.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, zone), r.From)
	require.Equal(t, time.Date(2024, 3, 17, 0, 0, 0, 0, zone), r.To)
}
