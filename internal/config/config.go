// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) initializer to build a Config with defaults.
// - Load layers a YAML file and RAPPORT_* environment variables on top.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/okian/rapport/internal/adapters/repository"
	"github.com/okian/rapport/internal/domain/policy"
	"github.com/okian/rapport/internal/domain/tier"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat is text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory update queue across all partitions.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of update workers and queue partitions.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets how many conversation IDs are remembered.
	DedupeSize int `koanf:"dedupe_size"`

	// Policy is cumulative or ewma.
	Policy string `koanf:"policy"`

	// EWMAAlpha weights the newest score under the ewma policy.
	EWMAAlpha float64 `koanf:"ewma_alpha"`

	// RoundEachStep stores one-decimal values after every update.
	RoundEachStep bool `koanf:"round_each_step"`

	// ValidationMode is reject or clamp.
	ValidationMode string `koanf:"validation_mode"`

	// TierPreset is the label vocabulary of GET /users/{user}/tiers when the
	// request names none, and of ratingctl replay: cumulative or tier.
	TierPreset string `koanf:"tier_preset"`

	// StoreBackend selects memory, sqlite, postgres, mysql, redis or mongo.
	StoreBackend string `koanf:"store_backend"`

	// StoreDSN is the backend connection string or file path.
	StoreDSN string `koanf:"store_dsn"`

	// SharedKey stores every user under one key, for single-user setups.
	SharedKey string `koanf:"shared_key"`

	// RequestTimeoutMS bounds how long an HTTP request waits for its update.
	RequestTimeoutMS int `koanf:"request_timeout_ms"`
}

// New creates a Config with defaults. Context is accepted first to
// satisfy the project-wide convention.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:         "info",
		LogFormat:        "text",
		Addr:             ":9080",
		QueueSize:        100_000,
		WorkerCount:      runtime.NumCPU() * 2,
		DedupeSize:       50_000,
		Policy:           policy.NameCumulative,
		EWMAAlpha:        policy.DefaultAlpha,
		ValidationMode:   "reject",
		TierPreset:       "cumulative",
		StoreBackend:     string(repository.BackendMemory),
		RequestTimeoutMS: 5_000,
	}
}

// Validate checks every field and returns the first problem found.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return invalid("addr must not be empty")
	case c.QueueSize <= 0:
		return invalid("queue_size must be positive, got %d", c.QueueSize)
	case c.WorkerCount <= 0:
		return invalid("worker_count must be positive, got %d", c.WorkerCount)
	case c.DedupeSize < 0:
		return invalid("dedupe_size must not be negative, got %d", c.DedupeSize)
	case c.EWMAAlpha <= 0 || c.EWMAAlpha > 1:
		return invalid("ewma_alpha must be in (0, 1], got %v", c.EWMAAlpha)
	case c.RequestTimeoutMS <= 0:
		return invalid("request_timeout_ms must be positive, got %d", c.RequestTimeoutMS)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return invalid("log_format must be text or json, got %q", c.LogFormat)
	}
	if _, err := c.UpdatePolicy(); err != nil {
		return invalid("%v", err)
	}
	if _, err := c.Preset(); err != nil {
		return invalid("%v", err)
	}
	backend, err := c.Backend()
	if err != nil {
		return invalid("%v", err)
	}
	if c.StoreDSN == "" && backend != repository.BackendMemory && backend != repository.BackendRedis {
		return invalid("store_dsn is required for the %s backend", backend)
	}
	return nil
}

// UpdatePolicy builds the configured rating policy.
func (c *Config) UpdatePolicy() (policy.UpdatePolicy, error) {
	mode, err := policy.ParseValidationMode(c.ValidationMode)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrResolve, err)
	}
	p, err := policy.New(c.Policy,
		policy.WithValidation(mode),
		policy.WithStepRounding(c.RoundEachStep),
		policy.WithAlpha(c.EWMAAlpha),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrResolve, err)
	}
	return p, nil
}

// Preset returns the configured tier vocabulary.
func (c *Config) Preset() (tier.Preset, error) {
	p, err := tier.ParsePreset(c.TierPreset)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrResolve, err)
	}
	return p, nil
}

// Backend returns the configured storage backend.
func (c *Config) Backend() (repository.Backend, error) {
	b, err := repository.ParseBackend(c.StoreBackend)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrResolve, err)
	}
	return b, nil
}

// RequestTimeout returns RequestTimeoutMS as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMS) * time.Millisecond
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}
