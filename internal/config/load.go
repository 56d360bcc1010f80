package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/danmuck/tlvwire/internal/protocol"
	"github.com/danmuck/tlvwire/internal/validation"
)

// Load reads path, overlays it on its preset, applies the process
// environment and validates the result.
func Load(path string) (Config, error) {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("config: load %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("config: %s: unknown key %s", path, undecoded[0])
	}
	cfg, err := Default(raw.Preset)
	if err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	if err := overlay(&cfg, raw, meta); err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	if err := ApplyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func overlay(cfg *Config, raw fileConfig, meta toml.MetaData) error {
	v := &cfg.Validation
	fv := raw.Validation

	if meta.IsDefined("validation", "strict_sizes") {
		v.StrictSizes = fv.StrictSizes
	}
	sizes := map[string]*int{
		"market_data": &v.MaxMessageSizes.MarketData,
		"signal":      &v.MaxMessageSizes.Signal,
		"execution":   &v.MaxMessageSizes.Execution,
		"system":      &v.MaxMessageSizes.System,
	}
	fileSizes := map[string]int{
		"market_data": fv.MaxMessageSize.MarketData,
		"signal":      fv.MaxMessageSize.Signal,
		"execution":   fv.MaxMessageSize.Execution,
		"system":      fv.MaxMessageSize.System,
	}
	for key, dst := range sizes {
		if meta.IsDefined("validation", "max_message_size", key) {
			*dst = fileSizes[key]
		}
	}

	if meta.IsDefined("validation", "timestamp", "max_future_drift") {
		d, err := parseDuration("validation.timestamp.max_future_drift", fv.Timestamp.MaxFutureDrift)
		if err != nil {
			return err
		}
		v.Timestamp.MaxFutureDrift = d
	}
	if meta.IsDefined("validation", "timestamp", "max_age") {
		d, err := parseDuration("validation.timestamp.max_age", fv.Timestamp.MaxAge)
		if err != nil {
			return err
		}
		v.Timestamp.MaxAge = d
	}
	if meta.IsDefined("validation", "timestamp", "enforce") {
		v.Timestamp.Enforce = fv.Timestamp.Enforce
	}

	if meta.IsDefined("validation", "sequence", "max_gap") {
		v.Sequence.MaxGap = fv.Sequence.MaxGap
	}
	if meta.IsDefined("validation", "sequence", "max_tracked") {
		v.Sequence.MaxTracked = fv.Sequence.MaxTracked
	}
	if meta.IsDefined("validation", "sequence", "enforce_monotonic") {
		v.Sequence.EnforceMonotonic = fv.Sequence.EnforceMonotonic
	}
	if meta.IsDefined("validation", "pool_discovery", "enabled") {
		v.PoolDiscovery.Enabled = fv.PoolDiscovery.Enabled
	}

	seen := make(map[protocol.RelayDomain]string, len(fv.Domains))
	for name, fd := range fv.Domains {
		d, ok := protocol.ParseRelayDomain(strings.ToLower(strings.TrimSpace(name)))
		if !ok {
			return fmt.Errorf("validation.domains: unknown domain %q", name)
		}
		if prev, dup := seen[d]; dup {
			a, b := prev, name
			if a > b {
				a, b = b, a
			}
			return fmt.Errorf("validation.domains: %q and %q both configure %s", a, b, d)
		}
		seen[d] = name
		rule, _ := v.Rule(d)
		if meta.IsDefined("validation", "domains", name, "type_min") {
			rule.TypeMin = fd.TypeMin
		}
		if meta.IsDefined("validation", "domains", name, "type_max") {
			rule.TypeMax = fd.TypeMax
		}
		if meta.IsDefined("validation", "domains", name, "level") {
			level, err := validation.ParseLevel(fd.Level)
			if err != nil {
				return fmt.Errorf("validation.domains.%s: %w", name, err)
			}
			rule.Level = level
		}
		v.Domains[d] = rule
	}

	fd := raw.Discovery
	if meta.IsDefined("discovery", "nats_url") {
		cfg.Discovery.NATSURL = strings.TrimSpace(fd.NATSURL)
	}
	if meta.IsDefined("discovery", "subject") {
		cfg.Discovery.Subject = strings.TrimSpace(fd.Subject)
	}
	if meta.IsDefined("discovery", "request_timeout") {
		d, err := parseDuration("discovery.request_timeout", fd.RequestTimeout)
		if err != nil {
			return err
		}
		cfg.Discovery.Worker.RequestTimeout = d
	}
	if meta.IsDefined("discovery", "max_attempts") {
		cfg.Discovery.Worker.Backoff.MaxAttempts = fd.MaxAttempts
	}
	if meta.IsDefined("discovery", "initial_backoff") {
		d, err := parseDuration("discovery.initial_backoff", fd.InitialBackoff)
		if err != nil {
			return err
		}
		cfg.Discovery.Worker.Backoff.InitialDelay = d
	}
	if meta.IsDefined("discovery", "max_backoff") {
		d, err := parseDuration("discovery.max_backoff", fd.MaxBackoff)
		if err != nil {
			return err
		}
		cfg.Discovery.Worker.Backoff.MaxDelay = d
	}

	if meta.IsDefined("inspect", "addr") {
		cfg.Inspect.Addr = strings.TrimSpace(raw.Inspect.Addr)
	}
	if meta.IsDefined("inspect", "cors_origins") {
		cfg.Inspect.CorsOrigins = raw.Inspect.CorsOrigins
	}
	if meta.IsDefined("inspect", "admin_token") {
		cfg.Inspect.AdminToken = strings.TrimSpace(raw.Inspect.AdminToken)
	}
	if meta.IsDefined("log", "level") {
		cfg.Log.Level = strings.TrimSpace(raw.Log.Level)
	}
	if meta.IsDefined("log", "no_color") {
		cfg.Log.NoColor = raw.Log.NoColor
	}
	return nil
}

func parseDuration(key, raw string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
