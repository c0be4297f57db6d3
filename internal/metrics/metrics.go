// Package metrics holds the agent's Prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ChangeSignals = promauto.NewCounter(prometheus.CounterOpts{
		Name: "calendar_agent_change_signals_total",
		Help: "Change signals received on the push channel",
	})

	ChannelReconnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "calendar_agent_channel_reconnects_total",
		Help: "Push channel reconnect attempts after a transport drop",
	})

	channelState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "calendar_agent_channel_state",
		Help: "Push channel state (0 closed, 1 connecting, 2 open)",
	})

	RemindersDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "calendar_agent_reminders_delivered_total",
		Help: "Reminder notifications marked delivered",
	})

	RemindersSuppressed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "calendar_agent_reminders_suppressed_total",
		Help: "Reminder deliveries skipped because notifications are not permitted",
	})

	WindowEvents = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "calendar_agent_reminder_window_events",
		Help: "Events in the current reminder look-ahead snapshot",
	})

	TimelineRefetches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "calendar_agent_timeline_refetches_total",
		Help: "Timeline fetches issued for the visible range",
	})

	StaleFetchesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "calendar_agent_timeline_stale_fetches_dropped_total",
		Help: "Fetch results discarded because a newer fetch superseded them",
	})
)

func SetChannelState(state int) {
	channelState.Set(float64(state))
}
