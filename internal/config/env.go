package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	EnvMaxMessageSizeMarket    = "TLVWIRE_MAX_MESSAGE_SIZE_MARKET"
	EnvMaxMessageSizeSignal    = "TLVWIRE_MAX_MESSAGE_SIZE_SIGNAL"
	EnvMaxMessageSizeExecution = "TLVWIRE_MAX_MESSAGE_SIZE_EXECUTION"
	EnvTimestampMaxDrift       = "TLVWIRE_TIMESTAMP_MAX_DRIFT" // seconds
	EnvSequenceMaxGap          = "TLVWIRE_SEQUENCE_MAX_GAP"
	EnvAdminToken              = "TLVWIRE_ADMIN_TOKEN"
)

// ApplyEnv overrides validation limits and the admin token from the environment. lookup is
// usually os.LookupEnv. Empty values are ignored.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	ints := []struct {
		key string
		dst *int
	}{
		{EnvMaxMessageSizeMarket, &cfg.Validation.MaxMessageSizes.MarketData},
		{EnvMaxMessageSizeSignal, &cfg.Validation.MaxMessageSizes.Signal},
		{EnvMaxMessageSizeExecution, &cfg.Validation.MaxMessageSizes.Execution},
	}
	for _, e := range ints {
		raw, ok := env(lookup, e.key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("config: %s=%q: %w", e.key, raw, err)
		}
		*e.dst = n
	}
	if raw, ok := env(lookup, EnvTimestampMaxDrift); ok {
		secs, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return fmt.Errorf("config: %s=%q: %w", EnvTimestampMaxDrift, raw, err)
		}
		cfg.Validation.Timestamp.MaxFutureDrift = time.Duration(secs) * time.Second
	}
	if raw, ok := env(lookup, EnvSequenceMaxGap); ok {
		gap, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("config: %s=%q: %w", EnvSequenceMaxGap, raw, err)
		}
		cfg.Validation.Sequence.MaxGap = gap
	}
	if raw, ok := env(lookup, EnvAdminToken); ok {
		cfg.Inspect.AdminToken = raw
	}
	return nil
}

func env(lookup func(string) (string, bool), key string) (string, bool) {
	raw, ok := lookup(key)
	if !ok {
		return "", false
	}
	raw = strings.TrimSpace(raw)
	return raw, raw != ""
}
