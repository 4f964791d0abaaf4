package session

import (
	"crypto/rand"
	"os"
	"time"
)

type Config struct {
	Secret []byte
	TTL    time.Duration
	Issuer string
	// Ephemeral is true when no SESSION_SECRET was configured and a random
	// one was generated; tokens will not survive a restart.
	Ephemeral bool
}

// ConfigFromEnv reads SESSION_SECRET, SESSION_TTL (default 12h) and SESSION_ISSUER.
func ConfigFromEnv() Config {
	cfg := Config{
		Secret: []byte(os.Getenv("SESSION_SECRET")),
		TTL:    12 * time.Hour,
		Issuer: os.Getenv("SESSION_ISSUER"),
	}
	if v := os.Getenv("SESSION_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.TTL = d
		}
	}
	if cfg.Issuer == "" {
		cfg.Issuer = "service-accounts"
	}
	if len(cfg.Secret) == 0 {
		cfg.Secret = make([]byte, 32)
		_, _ = rand.Read(cfg.Secret)
		cfg.Ephemeral = true
	}
	return cfg
}
