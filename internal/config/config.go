package config

import (
	"fmt"
	"time"

	"github.com/Netflix/go-env"
)

type Config struct {
	DatabaseDSN           string `env:"DATABASE_DSN"`
	RedisURL              string `env:"REDIS_URL"`
	JWTSecret             string `env:"JWT_SECRET,required=true"`
	APIPort               int    `env:"API_PORT,default=8080"`
	LogLevel              string `env:"LOG_LEVEL,default=info"`
	LoginURL              string `env:"LOGIN_URL,default=http://localhost:3000/login"`
	QueueDrainIntervalSec int    `env:"QUEUE_DRAIN_INTERVAL_SEC,default=30"`
	ReminderIntervalSec   int    `env:"REMINDER_INTERVAL_SEC,default=3600"`
	PruneHour             int    `env:"PRUNE_HOUR,default=2"`
	PruneMaxAgeDays       int    `env:"PRUNE_MAX_AGE_DAYS,default=7"`
	OverdueNoticeHour     int    `env:"OVERDUE_NOTICE_HOUR,default=9"`
	EmailRateLimitPerSec  int    `env:"EMAIL_RATE_LIMIT_PER_SEC,default=10"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.PruneHour < 0 || c.PruneHour > 23 {
		return fmt.Errorf("PRUNE_HOUR must be between 0 and 23, got %d", c.PruneHour)
	}
	if c.OverdueNoticeHour < 0 || c.OverdueNoticeHour > 23 {
		return fmt.Errorf("OVERDUE_NOTICE_HOUR must be between 0 and 23, got %d", c.OverdueNoticeHour)
	}
	if c.PruneMaxAgeDays < 0 {
		return fmt.Errorf("PRUNE_MAX_AGE_DAYS must not be negative, got %d", c.PruneMaxAgeDays)
	}
	return nil
}

func (c *Config) QueueDrainInterval() time.Duration {
	return time.Duration(c.QueueDrainIntervalSec) * time.Second
}

func (c *Config) ReminderInterval() time.Duration {
	return time.Duration(c.ReminderIntervalSec) * time.Second
}
