package auth

import (
	"errors"
	"os"
	"time"
)

// DefaultTTL is the lifetime of an access token.
const DefaultTTL = 24 * time.Hour

type Config struct {
	Secret []byte
	TTL    time.Duration
	Issuer string
}

// ConfigFromEnv reads JWT_SECRET, JWT_TTL and JWT_ISSUER.
func ConfigFromEnv() Config {
	ttl := DefaultTTL
	if v := os.Getenv("JWT_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			ttl = d
		}
	}
	iss := os.Getenv("JWT_ISSUER")
	if iss == "" {
		iss = "task-tracker"
	}
	return Config{Secret: []byte(os.Getenv("JWT_SECRET")), TTL: ttl, Issuer: iss}
}

// Validate rejects configurations that cannot sign tokens.
func (c Config) Validate() error {
	if len(c.Secret) == 0 {
		return errors.New("JWT_SECRET is not set")
	}
	return nil
}
