package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is the server's environment-driven setup. Every field has a default that
// works for local play; .env is loaded by main before FromEnv runs.
type Config struct {
	Addr             string        // MEMORY_ADDR
	PairCount        int           // MEMORY_PAIR_COUNT, pairs per board
	RevealDelayMS    int           // MEMORY_REVEAL_DELAY_MS, mismatch reveal window
	IdleTimeout      time.Duration // MEMORY_IDLE_TIMEOUT, teardown after last disconnect
	SkipDisconnected bool          // MEMORY_SKIP_DISCONNECTED, pass over absent players
}

func FromEnv() (Config, error) {
	cfg := Config{
		Addr:          ":8080",
		PairCount:     8,
		RevealDelayMS: 1200,
		IdleTimeout:   5 * time.Minute,
	}

	if v := os.Getenv("MEMORY_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("MEMORY_PAIR_COUNT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("parse MEMORY_PAIR_COUNT: %w", err)
		}
		cfg.PairCount = n
	}
	if v := os.Getenv("MEMORY_REVEAL_DELAY_MS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("parse MEMORY_REVEAL_DELAY_MS: %w", err)
		}
		cfg.RevealDelayMS = n
	}
	if v := os.Getenv("MEMORY_IDLE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("parse MEMORY_IDLE_TIMEOUT: %w", err)
		}
		cfg.IdleTimeout = d
	}
	if v := os.Getenv("MEMORY_SKIP_DISCONNECTED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("parse MEMORY_SKIP_DISCONNECTED: %w", err)
		}
		cfg.SkipDisconnected = b
	}
	return cfg, nil
}
