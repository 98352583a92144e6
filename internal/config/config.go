package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"
)

type Config struct {
	App       AppConfig
	Upstream  UpstreamConfig
	Poll      PollConfig
	Market    MarketConfig
	Broadcast BroadcastConfig
	Session   SessionConfig
	API       APIConfig
	Alerting  AlertingConfig
}

type AppConfig struct {
	Name     string `envconfig:"FEED_APP_NAME" default:"option-signal-feed"`
	Env      string `envconfig:"FEED_APP_ENV" default:"development"`
	LogLevel string `envconfig:"FEED_LOG_LEVEL" default:"info"`
}

type UpstreamConfig struct {
	BaseURL            string `envconfig:"FEED_UPSTREAM_BASE_URL" default:"https://api.upstox.com/v2"`
	InstrumentKey      string `envconfig:"FEED_UPSTREAM_INSTRUMENT_KEY" default:"NSE_INDEX|Nifty 50"`
	TokenPath          string `envconfig:"FEED_UPSTREAM_TOKEN_PATH" default:""`
	RateLimitPerSecond int    `envconfig:"FEED_UPSTREAM_RATE_LIMIT_PER_SECOND" default:"10"`
	RequestTimeoutSecs int    `envconfig:"FEED_UPSTREAM_REQUEST_TIMEOUT_SECS" default:"15"`
}

type PollConfig struct {
	IntervalSecs int `envconfig:"FEED_POLL_INTERVAL_SECS" default:"5"`
}

// MarketConfig describes the trading session of the polled instrument.
// Times are wall-clock in the exchange timezone.
type MarketConfig struct {
	Timezone           string `envconfig:"FEED_MARKET_TIMEZONE" default:"Asia/Kolkata"`
	OpenTime           string `envconfig:"FEED_MARKET_OPEN" default:"09:15"`
	CloseTime          string `envconfig:"FEED_MARKET_CLOSE" default:"15:30"`
	ExpiryWeekday      int    `envconfig:"FEED_MARKET_EXPIRY_WEEKDAY" default:"2"`
	StrikeWindow       int    `envconfig:"FEED_MARKET_STRIKE_WINDOW" default:"10"`
	InitialBalanceMins int    `envconfig:"FEED_MARKET_INITIAL_BALANCE_MINS" default:"60"`
	AcceptanceSkipMins int    `envconfig:"FEED_MARKET_ACCEPTANCE_SKIP_MINS" default:"30"`
	RVWindowMins       int    `envconfig:"FEED_MARKET_RV_WINDOW_MINS" default:"15"`

	loc *time.Location
}

// Location returns the resolved exchange timezone.
func (m MarketConfig) Location() *time.Location {
	if m.loc == nil {
		return time.UTC
	}
	return m.loc
}

type BroadcastConfig struct {
	HeartbeatSecs            int `envconfig:"FEED_BROADCAST_HEARTBEAT_SECS" default:"30"`
	StalenessBoundSecs       int `envconfig:"FEED_BROADCAST_STALENESS_BOUND_SECS" default:"60"`
	SubscriberBackoffSecs    int `envconfig:"FEED_SUBSCRIBER_BACKOFF_SECS" default:"3"`
	SubscriberMaxBackoffSecs int `envconfig:"FEED_SUBSCRIBER_MAX_BACKOFF_SECS" default:"30"`
}

type SessionConfig struct {
	InactivityTimeoutMins int `envconfig:"FEED_SESSION_INACTIVITY_TIMEOUT_MINS" default:"120"`
}

type APIConfig struct {
	BindAddress string   `envconfig:"FEED_API_BIND_ADDRESS" default:"0.0.0.0:8080"`
	CORSOrigins []string `envconfig:"FEED_API_CORS_ORIGINS" default:"http://localhost:3000,http://localhost:5173"`
}

type AlertingConfig struct {
	Enabled           bool   `envconfig:"FEED_ALERTING_ENABLED" default:"false"`
	SlackWebhookURL   string `envconfig:"FEED_ALERTING_SLACK_WEBHOOK_URL"`
	DiscordWebhookURL string `envconfig:"FEED_ALERTING_DISCORD_WEBHOOK_URL"`
	CooldownSecs      int    `envconfig:"FEED_ALERTING_COOLDOWN_SECS" default:"300"`
}

// tomlOverrides mirrors config/default.toml. Only the fields operators
// actually tune are exposed; pointers distinguish "absent" from zero.
type tomlOverrides struct {
	Upstream struct {
		BaseURL       *string `toml:"base_url"`
		InstrumentKey *string `toml:"instrument_key"`
		TokenPath     *string `toml:"token_path"`
	} `toml:"upstream"`
	Poll struct {
		IntervalSecs *int `toml:"interval_secs"`
	} `toml:"poll"`
	Market struct {
		Timezone           *string `toml:"timezone"`
		OpenTime           *string `toml:"open_time"`
		CloseTime          *string `toml:"close_time"`
		StrikeWindow       *int    `toml:"strike_window"`
		InitialBalanceMins *int    `toml:"initial_balance_mins"`
	} `toml:"market"`
	API struct {
		BindAddress *string  `toml:"bind_address"`
		CORSOrigins []string `toml:"cors_origins"`
	} `toml:"api"`
	Alerting struct {
		Enabled      *bool `toml:"enabled"`
		CooldownSecs *int  `toml:"cooldown_secs"`
	} `toml:"alerting"`
}

// Load reads configuration from the environment, then applies optional
// overrides from config/default.toml when the file exists.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}

	tomlPath := "config/default.toml"
	if data, err := os.ReadFile(tomlPath); err == nil {
		var o tomlOverrides
		if err := toml.Unmarshal(data, &o); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", tomlPath, err)
		}
		applyOverrides(cfg, &o)
	}

	loc, err := time.LoadLocation(cfg.Market.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid market timezone %q: %w", cfg.Market.Timezone, err)
	}
	cfg.Market.loc = loc

	if _, _, err := ParseClock(cfg.Market.OpenTime); err != nil {
		return nil, fmt.Errorf("invalid market open time: %w", err)
	}
	if _, _, err := ParseClock(cfg.Market.CloseTime); err != nil {
		return nil, fmt.Errorf("invalid market close time: %w", err)
	}

	return cfg, nil
}

func applyOverrides(cfg *Config, o *tomlOverrides) {
	if o.Upstream.BaseURL != nil {
		cfg.Upstream.BaseURL = *o.Upstream.BaseURL
	}
	if o.Upstream.InstrumentKey != nil {
		cfg.Upstream.InstrumentKey = *o.Upstream.InstrumentKey
	}
	if o.Upstream.TokenPath != nil {
		cfg.Upstream.TokenPath = *o.Upstream.TokenPath
	}
	if o.Poll.IntervalSecs != nil {
		cfg.Poll.IntervalSecs = *o.Poll.IntervalSecs
	}
	if o.Market.Timezone != nil {
		cfg.Market.Timezone = *o.Market.Timezone
	}
	if o.Market.OpenTime != nil {
		cfg.Market.OpenTime = *o.Market.OpenTime
	}
	if o.Market.CloseTime != nil {
		cfg.Market.CloseTime = *o.Market.CloseTime
	}
	if o.Market.StrikeWindow != nil {
		cfg.Market.StrikeWindow = *o.Market.StrikeWindow
	}
	if o.Market.InitialBalanceMins != nil {
		cfg.Market.InitialBalanceMins = *o.Market.InitialBalanceMins
	}
	if o.API.BindAddress != nil {
		cfg.API.BindAddress = *o.API.BindAddress
	}
	if len(o.API.CORSOrigins) > 0 {
		cfg.API.CORSOrigins = o.API.CORSOrigins
	}
	if o.Alerting.Enabled != nil {
		cfg.Alerting.Enabled = *o.Alerting.Enabled
	}
	if o.Alerting.CooldownSecs != nil {
		cfg.Alerting.CooldownSecs = *o.Alerting.CooldownSecs
	}
}

// ParseClock parses an "HH:MM" wall-clock string.
func ParseClock(s string) (hour, minute int, err error) {
	if _, err := fmt.Sscanf(s, "%d:%d", &hour, &minute); err != nil {
		return 0, 0, fmt.Errorf("expected HH:MM, got %q", s)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("clock out of range: %q", s)
	}
	return hour, minute, nil
}
