package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/planwise/calendar-agent/internal/config"
	"github.com/planwise/calendar-agent/internal/ledger"
	"github.com/planwise/calendar-agent/internal/model"
	"github.com/planwise/calendar-agent/internal/notify"
	"github.com/planwise/calendar-agent/internal/planner"
	"github.com/planwise/calendar-agent/internal/realtime"
	"github.com/planwise/calendar-agent/internal/redis"
	"github.com/planwise/calendar-agent/internal/reminder"
	"github.com/planwise/calendar-agent/internal/session"
	"github.com/planwise/calendar-agent/internal/timeline"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/xlab/closer"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type deliveryLedger interface {
	MarkDelivered(ctx context.Context, eventID string, start time.Time) (bool, error)
}

func main() {
	ctx := context.Background()

	logger, err := initLogger()
	if err != nil {
		log.Fatalf("unable to initialize logger: %v", err)
	}

	loc, err := time.LoadLocation(config.Timezone())
	if err != nil {
		logger.Fatalw("unable to load configured time zone", "tz", config.Timezone(), "err", err)
	}

	client := planner.NewClient(logger, config.APIBaseURL(), config.SessionToken())

	var deliveries deliveryLedger
	if config.RedisURL() != "" {
		redisPool := redis.NewRedisPool(logger)
		deliveries = ledger.NewRedisLedger(redisPool, logger)
	} else {
		logger.Warnw("no redis configured, delivery ledger will not survive restarts")
		deliveries = ledger.NewMemoryLedger()
	}

	notifier := notify.NewDesktopNotifier(logger, config.NotificationsEnabled())

	fetcher := reminder.NewWindowFetcher(logger, client, config.ReminderHorizon(), config.WindowRefreshPeriod())
	evaluator := reminder.NewEvaluator(
		logger,
		fetcher,
		deliveries,
		notifier,
		config.ViewerID(),
		config.DeliveryWindow(),
		config.ReminderTick(),
	)

	manager := realtime.NewManager(
		logger,
		client,
		config.ChannelURL(),
		config.ChannelDebounce(),
		config.ReconnectDelay(),
		config.ExchangeTimeout(),
	)

	aggregator := timeline.NewAggregator(logger, client, loc)
	sess := session.New(logger, manager, aggregator)
	closer.Bind(sess.Close)

	go fetcher.Run(ctx)
	go evaluator.Run(ctx)

	// The headless agent has no navigation: the calendar view counts as
	// permanently mounted, and the session token stands in for auth.
	sess.SetAuthenticated(true)
	sess.SetRoute(true)

	if err := sess.SetVisibleRange(ctx, session.DefaultRange(time.Now(), loc), model.ViewModeAll); err != nil {
		logger.Errorw("initial timeline load failed", "err", err)
	}

	errLogger, err := zap.NewStdLogAt(logger.Desugar(), zap.ErrorLevel)
	if err != nil {
		logger.Fatalw("error initiating server logger", "err", err)
	}

	server := &http.Server{
		Addr:     ":" + config.Port(),
		Handler:  opsHandler(manager, fetcher),
		ErrorLog: errLogger,
	}

	logger.Infow("Started agent", "port", config.Port())
	logger.Fatalw("server error", "err", server.ListenAndServe())
}

func opsHandler(manager *realtime.Manager, fetcher *reminder.WindowFetcher) http.Handler {
	r := chi.NewMux()

	r.Use(middleware.Recoverer, middleware.StripSlashes)

	r.Get("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Get("/status", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		status := struct {
			ChannelState  string `json:"channel_state"`
			ChangeCounter uint64 `json:"change_counter"`
			WindowEvents  int    `json:"window_events"`
		}{
			ChannelState:  manager.State().String(),
			ChangeCounter: manager.Counter(),
			WindowEvents:  len(fetcher.Snapshot()),
		}
		js, err := json.Marshal(status)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write(js)
	})

	return r
}

func initLogger() (*zap.SugaredLogger, error) {
	var logger *zap.Logger
	var err error

	if config.Production() {
		logger, err = zap.NewProduction()
	} else {
		conf := zap.NewDevelopmentConfig()
		conf.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		logger, err = conf.Build()
	}

	if err != nil {
		return nil, err
	}

	closer.Bind(func() {
		_ = logger.Sync()
	})

	return logger.Sugar(), nil
}
