// Package config loads the tlvwire TOML file. Keys present in the file
// overlay the chosen validation preset; absent keys keep preset values.
// Environment overrides apply last.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/danmuck/tlvwire/internal/discovery"
	"github.com/danmuck/tlvwire/internal/logging"
	"github.com/danmuck/tlvwire/internal/validation"
)

type Config struct {
	Preset     string
	Validation validation.Config
	Discovery  DiscoveryConfig
	Inspect    InspectConfig
	Log        LogConfig
}

type DiscoveryConfig struct {
	NATSURL string
	Subject string
	Worker  discovery.WorkerConfig
}

type InspectConfig struct {
	Addr        string
	CorsOrigins []string
	// AdminToken guards POST /pools. Empty leaves the route open.
	AdminToken string
}

type LogConfig struct {
	Level   string
	NoColor bool
}

// Default returns the full configuration for a validation preset.
func Default(preset string) (Config, error) {
	v, err := validation.Preset(preset)
	if err != nil {
		return Config{}, err
	}
	name := strings.ToLower(strings.TrimSpace(preset))
	if name == "" {
		name = "default"
	}
	worker := discovery.DefaultWorkerConfig()
	switch name {
	case "production", "prod":
		worker.RequestTimeout = 3 * time.Second
	case "development", "dev":
		worker.RequestTimeout = 10 * time.Second
		worker.Backoff.MaxAttempts = 2
	}
	return Config{
		Preset:     name,
		Validation: v,
		Discovery: DiscoveryConfig{
			NATSURL: "nats://127.0.0.1:4222",
			Subject: discovery.DefaultSubject,
			Worker:  worker,
		},
		Inspect: InspectConfig{Addr: ":9400", CorsOrigins: []string{"http://localhost:3000"}},
		Log:     LogConfig{Level: "info"},
	}, nil
}

func Validate(cfg Config) error {
	if err := cfg.Validation.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if strings.TrimSpace(cfg.Discovery.Subject) == "" {
		return fmt.Errorf("config: discovery subject is required")
	}
	if cfg.Discovery.Worker.RequestTimeout <= 0 {
		return fmt.Errorf("config: discovery request_timeout must be positive")
	}
	if cfg.Discovery.Worker.Backoff.MaxAttempts < 1 {
		return fmt.Errorf("config: discovery max_attempts must be at least 1")
	}
	if strings.TrimSpace(cfg.Inspect.Addr) == "" {
		return fmt.Errorf("config: inspect addr is required")
	}
	if _, ok := logging.ParseLevel(cfg.Log.Level); !ok {
		return fmt.Errorf("config: unknown log level %q", cfg.Log.Level)
	}
	return nil
}
