package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Port     string `env:"PORT" envDefault:"8080"`
	Env      string `env:"ENV" envDefault:"development"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// DatabaseDriver selects the relational store: "postgres" or "sqlite".
	DatabaseDriver string `env:"DATABASE_DRIVER" envDefault:"postgres"`
	PostgresConn   string `env:"POSTGRES_CONN_STR"`
	SQLitePath     string `env:"SQLITE_PATH" envDefault:"volunteer_hub.db"`

	MongoURI      string `env:"MONGO_URI"`
	MongoDatabase string `env:"MONGO_DATABASE" envDefault:"volunteerhub"`
	RedisURL      string `env:"REDIS_URL"`

	// AuthProvider is "jwt" or "firebase".
	AuthProvider            string `env:"AUTH_PROVIDER" envDefault:"jwt"`
	JWTSecret               string `env:"JWT_SECRET" envDefault:"supersecretjwtkey"`
	FirebaseCredentialsPath string `env:"FIREBASE_CREDENTIALS_PATH"`

	VAPIDPublicKey  string        `env:"VAPID_PUBLIC_KEY"`
	VAPIDPrivateKey string        `env:"VAPID_PRIVATE_KEY"`
	VAPIDSubject    string        `env:"VAPID_SUBJECT" envDefault:"mailto:admin@volunteerhub.local"`
	PushTimeout     time.Duration `env:"PUSH_TIMEOUT" envDefault:"5s"`
	PushTTL         int           `env:"PUSH_TTL" envDefault:"86400"`

	FanoutConcurrency    int           `env:"FANOUT_CONCURRENCY" envDefault:"16"`
	OutboxPollInterval   time.Duration `env:"OUTBOX_POLL_INTERVAL" envDefault:"2s"`
	OutboxBatchSize      int           `env:"OUTBOX_BATCH_SIZE" envDefault:"20"`
	OutboxMaxAttempts    int           `env:"OUTBOX_MAX_ATTEMPTS" envDefault:"5"`
	OutboxRetryBackoff   time.Duration `env:"OUTBOX_RETRY_BACKOFF" envDefault:"10s"`
	OutboxProcessTimeout time.Duration `env:"OUTBOX_PROCESS_TIMEOUT" envDefault:"2m"`
	ExpiryInterval       time.Duration `env:"EXPIRY_INTERVAL" envDefault:"5m"`
	TrendingWindowDays   int           `env:"TRENDING_WINDOW_DAYS" envDefault:"7"`
}

// Load reads .env when present and parses the process environment.
func Load() (*Config, error) {
	// A missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := ParseEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func (c *Config) validate() error {
	switch c.DatabaseDriver {
	case "postgres":
		if c.PostgresConn == "" {
			return fmt.Errorf("POSTGRES_CONN_STR environment variable not set")
		}
	case "sqlite":
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", c.DatabaseDriver)
	}

	switch c.AuthProvider {
	case "jwt", "firebase":
	default:
		return fmt.Errorf("unsupported AUTH_PROVIDER %q", c.AuthProvider)
	}
	if c.AuthProvider == "firebase" && c.FirebaseCredentialsPath == "" {
		return fmt.Errorf("FIREBASE_CREDENTIALS_PATH is required when AUTH_PROVIDER=firebase")
	}
	if c.FanoutConcurrency < 1 {
		c.FanoutConcurrency = 1
	}
	if c.TrendingWindowDays < 1 {
		c.TrendingWindowDays = 7
	}
	return nil
}
