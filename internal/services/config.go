package services

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the tunables services read at construction time.
type Config struct {
	VideoURLTTL       time.Duration
	SaveRatePerMinute int
}

func DefaultConfig() *Config {
	return &Config{
		VideoURLTTL:       DEFAULT_VIDEO_URL_TTL,
		SaveRatePerMinute: DEFAULT_SAVE_RATE_PER_MINUTE,
	}
}

// ConfigFromEnv reads VIDEO_URL_TTL and SAVE_RATE_PER_MINUTE, keeping defaults for unset values.
func ConfigFromEnv() (*Config, error) {
	cfg := DefaultConfig()

	if v := os.Getenv("VIDEO_URL_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil || ttl <= 0 {
			return nil, fmt.Errorf("invalid VIDEO_URL_TTL %q", v)
		}
		cfg.VideoURLTTL = ttl
	}

	if v := os.Getenv("SAVE_RATE_PER_MINUTE"); v != "" {
		rate, err := strconv.Atoi(v)
		if err != nil || rate < 0 {
			return nil, fmt.Errorf("invalid SAVE_RATE_PER_MINUTE %q", v)
		}
		cfg.SaveRatePerMinute = rate
	}

	return cfg, nil
}
