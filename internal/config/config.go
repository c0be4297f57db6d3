package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env"
)

type config struct {
	Production      bool          `env:"PRODUCTION" envDefault:"false"`
	Port            string        `env:"PORT" envDefault:"8090"`
	APIBaseURL      string        `env:"API_BASE_URL,required"`
	ChannelURL      string        `env:"CHANNEL_URL,required"`
	SessionToken    string        `env:"SESSION_TOKEN,required"`
	ViewerID        int64         `env:"VIEWER_ID,required"`
	Timezone        string        `env:"TIMEZONE" envDefault:"UTC"`
	RedisUrl        string        `env:"REDIS_URL" envDefault:""`
	NotificationsOn bool          `env:"NOTIFICATIONS_ENABLED" envDefault:"true"`
	ReminderHorizon time.Duration `env:"REMINDER_HORIZON" envDefault:"168h"`
	WindowRefresh   time.Duration `env:"WINDOW_REFRESH_PERIOD" envDefault:"5m"`
	ReminderTick    time.Duration `env:"REMINDER_TICK" envDefault:"30s"`
	DeliveryWindow  time.Duration `env:"DELIVERY_WINDOW" envDefault:"2m"`
	ChannelDebounce time.Duration `env:"CHANNEL_DEBOUNCE" envDefault:"300ms"`
	ReconnectDelay  time.Duration `env:"RECONNECT_DELAY" envDefault:"5s"`
	ExchangeTimeout time.Duration `env:"EXCHANGE_TIMEOUT" envDefault:"10s"`
}

var conf config

func init() {
	if err := env.Parse(&conf); err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
}

func Production() bool {
	return conf.Production
}

func Port() string {
	return conf.Port
}

func APIBaseURL() string {
	return conf.APIBaseURL
}

func ChannelURL() string {
	return conf.ChannelURL
}

func SessionToken() string {
	return conf.SessionToken
}

func ViewerID() int64 {
	return conf.ViewerID
}

func Timezone() string {
	return conf.Timezone
}

func RedisURL() string {
	return conf.RedisUrl
}

func NotificationsEnabled() bool {
	return conf.NotificationsOn
}

func ReminderHorizon() time.Duration {
	return conf.ReminderHorizon
}

func WindowRefreshPeriod() time.Duration {
	return conf.WindowRefresh
}

func ReminderTick() time.Duration {
	return conf.ReminderTick
}

func DeliveryWindow() time.Duration {
	return conf.DeliveryWindow
}

func ChannelDebounce() time.Duration {
	return conf.ChannelDebounce
}

func ReconnectDelay() time.Duration {
	return conf.ReconnectDelay
}

func ExchangeTimeout() time.Duration {
	return conf.ExchangeTimeout
}
