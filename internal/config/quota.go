package config

import "time"

// DefaultDailyTokenLimit applies when a user has no positive override.
const DefaultDailyTokenLimit int64 = 10000

type QuotaConfig struct {
	DefaultDailyLimit int64 `envconfig:"DEFAULT_DAILY_TOKEN_LIMIT" default:"10000"`
	// Timezone names the location used to cut date buckets. "Local" keeps
	// server-local days.
	Timezone string `envconfig:"USAGE_TIMEZONE" default:"Local"`
}

func NewQuotaConfig() *QuotaConfig {
	return &QuotaConfig{
		DefaultDailyLimit: DefaultDailyTokenLimit,
		Timezone:          "Local",
	}
}

func (c QuotaConfig) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}
