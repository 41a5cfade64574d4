package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Legality policies for the second move-validation phase. Permissive keeps
// the forced-apply fallback for moves that only fail check legality; strict
// rejects them.
const (
	LegalityPermissive = "permissive"
	LegalityStrict     = "strict"
)

type Config struct {
	Port         int
	ClockSeconds int           // per-side budget for a match
	ClockTick    time.Duration // countdown granularity
	MoveLegality string
	DatabaseURL  string // optional, enables the finished-match archive
	LogLevel     string
}

func Default() Config {
	return Config{
		Port:         8080,
		ClockSeconds: 600,
		ClockTick:    time.Second,
		MoveLegality: LegalityPermissive,
		LogLevel:     "info",
	}
}

// Load builds the configuration from environment variables, falling back to
// defaults for anything unset.
func Load() (Config, error) {
	cfg := Default()

	if v := strings.TrimSpace(os.Getenv("PORT")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 65535 {
			return cfg, fmt.Errorf("invalid PORT %q", v)
		}
		cfg.Port = n
	}

	if v := strings.TrimSpace(os.Getenv("CLOCK_SECONDS")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return cfg, fmt.Errorf("invalid CLOCK_SECONDS %q", v)
		}
		cfg.ClockSeconds = n
	}

	if v := strings.TrimSpace(os.Getenv("CLOCK_TICK_MS")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return cfg, fmt.Errorf("invalid CLOCK_TICK_MS %q", v)
		}
		cfg.ClockTick = time.Duration(n) * time.Millisecond
	}

	if v := strings.ToLower(strings.TrimSpace(os.Getenv("MOVE_LEGALITY"))); v != "" {
		if v != LegalityPermissive && v != LegalityStrict {
			return cfg, errors.New("MOVE_LEGALITY must be permissive or strict")
		}
		cfg.MoveLegality = v
	}

	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))

	if v := strings.TrimSpace(os.Getenv("LOG_LEVEL")); v != "" {
		cfg.LogLevel = v
	}

	return cfg, nil
}
