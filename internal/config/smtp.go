package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/Netflix/go-env"
)

// SMTPConfig holds the relay settings used for a single delivery attempt.
type SMTPConfig struct {
	Host     string `env:"EMAIL_HOST,default=smtp.gmail.com"`
	Port     int    `env:"EMAIL_PORT,default=587"`
	Username string `env:"EMAIL_USER"`
	Password string `env:"EMAIL_PASS"`
}

// HasCredentials reports whether a password is configured.
func (c SMTPConfig) HasCredentials() bool {
	return c.Password != ""
}

// LooksLikeAppPassword reports whether the password has the shape of a
// 16 character alphanumeric provider app password (spaces ignored).
func (c SMTPConfig) LooksLikeAppPassword() bool {
	if len(c.Password) != 16 {
		return false
	}
	for _, r := range strings.ReplaceAll(c.Password, " ", "") {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}

// SMTPSource provides SMTP settings that may change while the process runs.
type SMTPSource interface {
	// Reload re-reads the settings and returns the fresh values.
	Reload() (SMTPConfig, error)
	// Current returns the settings from the last successful Reload.
	Current() SMTPConfig
}

// EnvSMTPSource reads SMTP settings from the process environment.
type EnvSMTPSource struct {
	mu      sync.RWMutex
	current SMTPConfig
}

var _ SMTPSource = (*EnvSMTPSource)(nil)

func NewEnvSMTPSource() (*EnvSMTPSource, error) {
	s := &EnvSMTPSource{}
	if _, err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *EnvSMTPSource) Reload() (SMTPConfig, error) {
	var cfg SMTPConfig
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return SMTPConfig{}, fmt.Errorf("failed to load smtp config: %w", err)
	}
	cfg.Host = strings.TrimSpace(cfg.Host)
	cfg.Username = strings.TrimSpace(cfg.Username)
	cfg.Password = strings.TrimSpace(cfg.Password)

	s.mu.Lock()
	s.current = cfg
	s.mu.Unlock()

	return cfg, nil
}

func (s *EnvSMTPSource) Current() SMTPConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// StaticSMTPSource always returns the same settings.
type StaticSMTPSource struct {
	Config SMTPConfig
}

func (s StaticSMTPSource) Reload() (SMTPConfig, error) { return s.Config, nil }

func (s StaticSMTPSource) Current() SMTPConfig { return s.Config }
