package validation

import (
	"fmt"
	"strings"
	"time"

	"github.com/danmuck/tlvwire/internal/protocol"
)

// Level selects which checks run for a domain.
type Level uint8

const (
	// LevelPerformance runs header and size checks only.
	LevelPerformance Level = iota
	// LevelStandard adds checksum and, when enabled, sequence checks.
	LevelStandard
	// LevelAudit runs every check.
	LevelAudit
)

func (l Level) String() string {
	switch l {
	case LevelPerformance:
		return "performance"
	case LevelStandard:
		return "standard"
	case LevelAudit:
		return "audit"
	default:
		return fmt.Sprintf("level_%d", uint8(l))
	}
}

func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "performance":
		return LevelPerformance, nil
	case "standard":
		return LevelStandard, nil
	case "audit":
		return LevelAudit, nil
	default:
		return 0, fmt.Errorf("validation: unknown level %q", s)
	}
}

// MessageLimits caps payload_size per domain. System applies to any domain
// without its own limit.
type MessageLimits struct {
	MarketData int
	Signal     int
	Execution  int
	System     int
}

type TimestampConfig struct {
	MaxFutureDrift time.Duration
	MaxAge         time.Duration
	// Enforce gates both checksum and timestamp checks so development
	// environments can skip them.
	Enforce bool
}

type SequenceConfig struct {
	MaxGap           uint64
	MaxTracked       int
	EnforceMonotonic bool
}

type PoolDiscoveryConfig struct {
	Enabled bool
}

// DomainRule is the per-domain policy. Types outside [TypeMin, TypeMax] are rejected.
type DomainRule struct {
	TypeMin uint8
	TypeMax uint8
	Level   Level
}

func (r DomainRule) Allows(t uint8) bool {
	return t >= r.TypeMin && t <= r.TypeMax
}

type Config struct {
	MaxMessageSizes MessageLimits
	Timestamp       TimestampConfig
	Sequence        SequenceConfig
	PoolDiscovery   PoolDiscoveryConfig
	Domains         map[protocol.RelayDomain]DomainRule
	// StrictSizes checks registered TLV types against their schema size.
	StrictSizes bool
}

func defaultDomains() map[protocol.RelayDomain]DomainRule {
	return map[protocol.RelayDomain]DomainRule{
		protocol.DomainMarketData: {TypeMin: 1, TypeMax: 19, Level: LevelPerformance},
		protocol.DomainSignal:     {TypeMin: 20, TypeMax: 39, Level: LevelStandard},
		protocol.DomainExecution:  {TypeMin: 40, TypeMax: 79, Level: LevelAudit},
	}
}

func DefaultConfig() Config {
	return Config{
		MaxMessageSizes: MessageLimits{MarketData: 4096, Signal: 8192, Execution: 16384, System: 32768},
		Timestamp:       TimestampConfig{MaxFutureDrift: 5 * time.Second, MaxAge: 60 * time.Second, Enforce: true},
		Sequence:        SequenceConfig{MaxGap: 100, MaxTracked: 10000, EnforceMonotonic: true},
		PoolDiscovery:   PoolDiscoveryConfig{Enabled: true},
		Domains:         defaultDomains(),
	}
}

// ProductionConfig tightens limits and tolerances.
func ProductionConfig() Config {
	return Config{
		MaxMessageSizes: MessageLimits{MarketData: 2048, Signal: 4096, Execution: 8192, System: 16384},
		Timestamp:       TimestampConfig{MaxFutureDrift: 2 * time.Second, MaxAge: 30 * time.Second, Enforce: true},
		Sequence:        SequenceConfig{MaxGap: 50, MaxTracked: 50000, EnforceMonotonic: true},
		PoolDiscovery:   PoolDiscoveryConfig{Enabled: true},
		Domains:         defaultDomains(),
	}
}

// DevelopmentConfig relaxes limits and disables checksum, timestamp and
// standard-level sequence enforcement.
func DevelopmentConfig() Config {
	return Config{
		MaxMessageSizes: MessageLimits{MarketData: 8192, Signal: 16384, Execution: 32768, System: 65536},
		Timestamp:       TimestampConfig{MaxFutureDrift: 30 * time.Second, MaxAge: 300 * time.Second, Enforce: false},
		Sequence:        SequenceConfig{MaxGap: 1000, MaxTracked: 1000, EnforceMonotonic: false},
		PoolDiscovery:   PoolDiscoveryConfig{Enabled: true},
		Domains:         defaultDomains(),
	}
}

// Preset returns a named configuration: "default", "production" or "development".
func Preset(name string) (Config, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "default":
		return DefaultConfig(), nil
	case "production", "prod":
		return ProductionConfig(), nil
	case "development", "dev":
		return DevelopmentConfig(), nil
	default:
		return Config{}, fmt.Errorf("validation: unknown preset %q", name)
	}
}

// MaxMessageSize returns the payload limit for d.
func (c Config) MaxMessageSize(d protocol.RelayDomain) int {
	switch d {
	case protocol.DomainMarketData:
		return c.MaxMessageSizes.MarketData
	case protocol.DomainSignal:
		return c.MaxMessageSizes.Signal
	case protocol.DomainExecution:
		return c.MaxMessageSizes.Execution
	default:
		return c.MaxMessageSizes.System
	}
}

// Rule returns the configured rule for d. Unconfigured domains run at
// LevelAudit and accept every TLV type.
func (c Config) Rule(d protocol.RelayDomain) (DomainRule, bool) {
	r, ok := c.Domains[d]
	if !ok {
		return DomainRule{TypeMin: 0, TypeMax: 255, Level: LevelAudit}, false
	}
	return r, true
}

// Validate rejects configurations the validator cannot run with.
func (c Config) Validate() error {
	limits := map[string]int{
		"market_data": c.MaxMessageSizes.MarketData,
		"signal":      c.MaxMessageSizes.Signal,
		"execution":   c.MaxMessageSizes.Execution,
		"system":      c.MaxMessageSizes.System,
	}
	for name, v := range limits {
		if v <= 0 {
			return fmt.Errorf("validation: max message size for %s must be positive, got %d", name, v)
		}
	}
	if c.Timestamp.MaxFutureDrift < 0 || c.Timestamp.MaxAge < 0 {
		return fmt.Errorf("validation: timestamp bounds must not be negative")
	}
	if c.Sequence.MaxTracked < 0 {
		return fmt.Errorf("validation: max tracked sequences must not be negative")
	}
	for d, r := range c.Domains {
		if !d.Valid() {
			return fmt.Errorf("validation: rule for unknown domain %d", uint8(d))
		}
		if r.TypeMin > r.TypeMax {
			return fmt.Errorf("validation: %s tlv range %d..%d is inverted", d, r.TypeMin, r.TypeMax)
		}
		if r.Level > LevelAudit {
			return fmt.Errorf("validation: %s has unknown level %d", d, uint8(r.Level))
		}
	}
	return nil
}

// Clone returns a copy whose Domains map can be changed independently.
func (c Config) Clone() Config {
	out := c
	out.Domains = make(map[protocol.RelayDomain]DomainRule, len(c.Domains))
	for d, r := range c.Domains {
		out.Domains[d] = r
	}
	return out
}
