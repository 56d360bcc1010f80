package config

import (
	"github.com/danmuck/tlvwire/internal/protocol"
)

// fileConfig mirrors the TOML layout. Durations are strings such as "5s".
type fileConfig struct {
	Preset     string         `toml:"preset"`
	Validation fileValidation `toml:"validation"`
	Discovery  fileDiscovery  `toml:"discovery"`
	Inspect    fileInspect    `toml:"inspect"`
	Log        fileLog        `toml:"log"`
}

type fileValidation struct {
	StrictSizes    bool                  `toml:"strict_sizes"`
	MaxMessageSize fileSizes             `toml:"max_message_size"`
	Timestamp      fileTimestamp         `toml:"timestamp"`
	Sequence       fileSequence          `toml:"sequence"`
	PoolDiscovery  filePoolDiscovery     `toml:"pool_discovery"`
	Domains        map[string]fileDomain `toml:"domains"`
}

type fileSizes struct {
	MarketData int `toml:"market_data"`
	Signal     int `toml:"signal"`
	Execution  int `toml:"execution"`
	System     int `toml:"system"`
}

type fileTimestamp struct {
	MaxFutureDrift string `toml:"max_future_drift"`
	MaxAge         string `toml:"max_age"`
	Enforce        bool   `toml:"enforce"`
}

type fileSequence struct {
	MaxGap           uint64 `toml:"max_gap"`
	MaxTracked       int    `toml:"max_tracked"`
	EnforceMonotonic bool   `toml:"enforce_monotonic"`
}

type filePoolDiscovery struct {
	Enabled bool `toml:"enabled"`
}

type fileDomain struct {
	TypeMin uint8  `toml:"type_min"`
	TypeMax uint8  `toml:"type_max"`
	Level   string `toml:"level"`
}

type fileDiscovery struct {
	NATSURL        string `toml:"nats_url"`
	Subject        string `toml:"subject"`
	RequestTimeout string `toml:"request_timeout"`
	MaxAttempts    int    `toml:"max_attempts"`
	InitialBackoff string `toml:"initial_backoff"`
	MaxBackoff     string `toml:"max_backoff"`
}

type fileInspect struct {
	Addr        string   `toml:"addr"`
	CorsOrigins []string `toml:"cors_origins"`
	AdminToken  string   `toml:"admin_token"`
}

type fileLog struct {
	Level   string `toml:"level"`
	NoColor bool   `toml:"no_color"`
}

// toFile renders cfg in file form; Load(toFile(cfg)) yields cfg again.
func toFile(cfg Config) fileConfig {
	v := cfg.Validation
	domains := make(map[string]fileDomain, len(v.Domains))
	for _, d := range []protocol.RelayDomain{protocol.DomainMarketData, protocol.DomainSignal, protocol.DomainExecution} {
		if r, ok := v.Domains[d]; ok {
			domains[d.String()] = fileDomain{TypeMin: r.TypeMin, TypeMax: r.TypeMax, Level: r.Level.String()}
		}
	}
	return fileConfig{
		Preset: cfg.Preset,
		Validation: fileValidation{
			StrictSizes: v.StrictSizes,
			MaxMessageSize: fileSizes{
				MarketData: v.MaxMessageSizes.MarketData,
				Signal:     v.MaxMessageSizes.Signal,
				Execution:  v.MaxMessageSizes.Execution,
				System:     v.MaxMessageSizes.System,
			},
			Timestamp: fileTimestamp{
				MaxFutureDrift: v.Timestamp.MaxFutureDrift.String(),
				MaxAge:         v.Timestamp.MaxAge.String(),
				Enforce:        v.Timestamp.Enforce,
			},
			Sequence: fileSequence{
				MaxGap:           v.Sequence.MaxGap,
				MaxTracked:       v.Sequence.MaxTracked,
				EnforceMonotonic: v.Sequence.EnforceMonotonic,
			},
			PoolDiscovery: filePoolDiscovery{Enabled: v.PoolDiscovery.Enabled},
			Domains:       domains,
		},
		Discovery: fileDiscovery{
			NATSURL:        cfg.Discovery.NATSURL,
			Subject:        cfg.Discovery.Subject,
			RequestTimeout: cfg.Discovery.Worker.RequestTimeout.String(),
			MaxAttempts:    cfg.Discovery.Worker.Backoff.MaxAttempts,
			InitialBackoff: cfg.Discovery.Worker.Backoff.InitialDelay.String(),
			MaxBackoff:     cfg.Discovery.Worker.Backoff.MaxDelay.String(),
		},
		Inspect: fileInspect{Addr: cfg.Inspect.Addr, CorsOrigins: cfg.Inspect.CorsOrigins, AdminToken: cfg.Inspect.AdminToken},
		Log:     fileLog{Level: cfg.Log.Level, NoColor: cfg.Log.NoColor},
	}
}
