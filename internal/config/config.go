package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	DatabaseDSN   string
	PollInterval  time.Duration
	RetentionDays int
	RetainForever bool
	TrendDir      string
	SeedDemoData  bool
}

// Load reads configuration from the environment. RetainForever comes from
// the --never-delete flag and is fixed for the life of the process.
func Load(neverDelete bool) Config {
	return Config{
		DatabaseDSN:   envOrDefault("DATABASE_DSN", "postgres://postgres@localhost:5432/craftwatch?sslmode=disable"),
		PollInterval:  time.Duration(parseIntEnv("POLL_INTERVAL_SECONDS", 300)) * time.Second,
		RetentionDays: parseIntEnv("RETENTION_DAYS", 30),
		RetainForever: neverDelete,
		TrendDir:      envOrDefault("TREND_DIR", "."),
		SeedDemoData:  envOrDefault("SEED_DEMO_DATA", "") == "true",
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseIntEnv(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
