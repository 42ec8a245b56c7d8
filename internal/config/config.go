package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"

	ChannelLog   = "log"
	ChannelAMQP  = "amqp"
	ChannelRedis = "redis"
)

type Config struct {
	ServerPort      string        `mapstructure:"SERVER_PORT"`
	MetricsAddr     string        `mapstructure:"METRICS_ADDR"`
	LogLevel        string        `mapstructure:"LOG_LEVEL"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`

	StoreDriver   string `mapstructure:"STORE_DRIVER"`
	DatabaseURL   string `mapstructure:"DATABASE_URL"`
	RunMigrations bool   `mapstructure:"RUN_MIGRATIONS"`

	PipelineWorkers int `mapstructure:"PIPELINE_WORKERS"`

	NotifierChannels       string `mapstructure:"NOTIFIER_CHANNELS"`
	RabbitMQURL            string `mapstructure:"RABBITMQ_URL"`
	NotificationExchange   string `mapstructure:"NOTIFICATION_EXCHANGE"`
	NotificationRoutingKey string `mapstructure:"NOTIFICATION_ROUTING_KEY"`
	RedisAddr              string `mapstructure:"REDIS_ADDR"`
	RedisPassword          string `mapstructure:"REDIS_PASSWORD"`
	RedisDB                int    `mapstructure:"REDIS_DB"`
	NotificationStream     string `mapstructure:"NOTIFICATION_STREAM"`
	NotificationStreamLen  int64  `mapstructure:"NOTIFICATION_STREAM_MAXLEN"`
	SigningSecret          string `mapstructure:"SIGNING_SECRET"`

	CreateRateLimitPerSecond float64 `mapstructure:"CREATE_RATE_LIMIT_PER_SECOND"`
	CreateRateBurst          int     `mapstructure:"CREATE_RATE_BURST"`

	StatusReportSchedule string `mapstructure:"STATUS_REPORT_SCHEDULE"`
}

var defaults = map[string]any{
	"SERVER_PORT":                  "8080",
	"METRICS_ADDR":                 ":9090",
	"LOG_LEVEL":                    "info",
	"SHUTDOWN_TIMEOUT":             "30s",
	"STORE_DRIVER":                 StoreMemory,
	"DATABASE_URL":                 "",
	"RUN_MIGRATIONS":               true,
	"PIPELINE_WORKERS":             0,
	"NOTIFIER_CHANNELS":            ChannelLog,
	"RABBITMQ_URL":                 "",
	"NOTIFICATION_EXCHANGE":        "account.notifications",
	"NOTIFICATION_ROUTING_KEY":     "account",
	"REDIS_ADDR":                   "",
	"REDIS_PASSWORD":               "",
	"REDIS_DB":                     0,
	"NOTIFICATION_STREAM":          "account-notifications",
	"NOTIFICATION_STREAM_MAXLEN":   10000,
	"SIGNING_SECRET":               "",
	"CREATE_RATE_LIMIT_PER_SECOND": 0,
	"CREATE_RATE_BURST":            20,
	"STATUS_REPORT_SCHEDULE":       "@every 1m",
}

// Load reads envFile into the process environment when it exists, then
// resolves every key from the environment over the built-in defaults.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error

	switch c.StoreDriver {
	case StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver))
	}

	channels := c.Channels()
	if len(channels) == 0 {
		errs = append(errs, errors.New("NOTIFIER_CHANNELS must name at least one channel"))
	}
	for _, ch := range channels {
		switch ch {
		case ChannelLog:
		case ChannelAMQP:
			if c.RabbitMQURL == "" {
				errs = append(errs, errors.New("RABBITMQ_URL is required for the amqp channel"))
			}
		case ChannelRedis:
			if c.RedisAddr == "" {
				errs = append(errs, errors.New("REDIS_ADDR is required for the redis channel"))
			}
		default:
			errs = append(errs, fmt.Errorf("unknown notifier channel %q", ch))
		}
	}

	if c.CreateRateLimitPerSecond < 0 {
		errs = append(errs, errors.New("CREATE_RATE_LIMIT_PER_SECOND must not be negative"))
	}
	if c.CreateRateLimitPerSecond > 0 && c.CreateRateBurst < 1 {
		errs = append(errs, errors.New("CREATE_RATE_BURST must be at least 1"))
	}

	return errors.Join(errs...)
}

// Channels returns the configured notifier channels, lower-cased and without
// blanks or repeats.
func (c Config) Channels() []string {
	seen := make(map[string]bool)
	var channels []string
	for _, part := range strings.Split(c.NotifierChannels, ",") {
		name := strings.ToLower(strings.TrimSpace(part))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		channels = append(channels, name)
	}
	return channels
}

func (c Config) Level() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}
