package schema

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/tlvwire/internal/protocol"
	"github.com/danmuck/tlvwire/internal/protocol/tlv"
)

// SizeKind classifies how a record's payload length is constrained.
type SizeKind uint8

const (
	SizeVariable SizeKind = iota
	SizeFixed
	SizeBounded
)

// Entry describes one registered TLV type.
type Entry struct {
	Type   uint8
	Name   string
	Domain protocol.RelayDomain
	Kind   SizeKind
	Min    int // fixed size when Kind == SizeFixed
	Max    int
}

type ValidationError struct {
	Type   uint8
	Name   string
	Size   int
	Reason string
}

func (e ValidationError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("schema: tlv_type=%d: %s", e.Type, e.Reason)
	}
	return fmt.Sprintf("schema: tlv_type=%d (%s) size=%d: %s", e.Type, e.Name, e.Size, e.Reason)
}

func fixed(t uint8, name string, d protocol.RelayDomain, n int) Entry {
	return Entry{Type: t, Name: name, Domain: d, Kind: SizeFixed, Min: n, Max: n}
}

func bounded(t uint8, name string, d protocol.RelayDomain, lo, hi int) Entry {
	return Entry{Type: t, Name: name, Domain: d, Kind: SizeBounded, Min: lo, Max: hi}
}

func variable(t uint8, name string, d protocol.RelayDomain) Entry {
	return Entry{Type: t, Name: name, Domain: d, Kind: SizeVariable, Max: tlv.MaxPayload}
}

var registry = func() map[uint8]Entry {
	md, sig, ex := protocol.DomainMarketData, protocol.DomainSignal, protocol.DomainExecution
	entries := []Entry{
		fixed(protocol.TypeTrade, "Trade", md, protocol.TradeSize),
		fixed(protocol.TypeQuote, "Quote", md, 52),
		variable(protocol.TypeOrderBook, "OrderBook", md),
		variable(protocol.TypeInstrumentMeta, "InstrumentMeta", md),
		variable(protocol.TypeL2Snapshot, "L2Snapshot", md),
		variable(protocol.TypeL2Delta, "L2Delta", md),
		variable(protocol.TypeL2Reset, "L2Reset", md),
		variable(protocol.TypePriceUpdate, "PriceUpdate", md),
		variable(protocol.TypeVolumeUpdate, "VolumeUpdate", md),
		bounded(protocol.TypePoolLiquidity, "PoolLiquidity", md, 20, 300),
		bounded(protocol.TypePoolSwap, "PoolSwap", md, 20, 200),
		bounded(protocol.TypePoolMint, "PoolMint", md, 20, 180),
		bounded(protocol.TypePoolBurn, "PoolBurn", md, 20, 180),
		bounded(protocol.TypePoolTick, "PoolTick", md, 30, 120),
		bounded(protocol.TypePoolState, "PoolState", md, 60, 200),
		bounded(protocol.TypePoolSync, "PoolSync", md, 40, 150),
		fixed(protocol.TypeQuoteUpdate, "QuoteUpdate", md, 52),
		fixed(protocol.TypeGasPrice, "GasPrice", md, 32),
		fixed(protocol.TypeStateInvalidationReason, "StateInvalidationReason", md, 1),

		fixed(protocol.TypeSignalIdentity, "SignalIdentity", sig, 16),
		fixed(protocol.TypeAssetCorrelation, "AssetCorrelation", sig, 24),
		fixed(protocol.TypeEconomics, "Economics", sig, 32),
		fixed(protocol.TypeExecutionAddresses, "ExecutionAddresses", sig, 84),
		fixed(protocol.TypeVenueMetadata, "VenueMetadata", sig, 12),
		fixed(protocol.TypeStateReference, "StateReference", sig, 24),
		fixed(protocol.TypeExecutionControl, "ExecutionControl", sig, 16),
		fixed(protocol.TypePoolAddresses, "PoolAddresses", sig, 44),
		fixed(protocol.TypeMEVBundle, "MEVBundle", sig, 40),
		fixed(protocol.TypeTertiaryVenue, "TertiaryVenue", sig, 24),
		variable(protocol.TypeRiskParameters, "RiskParameters", sig),
		variable(protocol.TypePerformanceMetrics, "PerformanceMetrics", sig),
		fixed(protocol.TypeArbitrageSignal, "ArbitrageSignal", sig, 170),

		fixed(protocol.TypeOrderRequest, "OrderRequest", ex, 32),
		fixed(protocol.TypeOrderStatus, "OrderStatus", ex, 24),
		fixed(protocol.TypeFill, "Fill", ex, 32),
		fixed(protocol.TypeOrderCancel, "OrderCancel", ex, 16),
		fixed(protocol.TypeOrderModify, "OrderModify", ex, 24),
		fixed(protocol.TypeExecutionReport, "ExecutionReport", ex, 48),
		bounded(protocol.TypePortfolio, "Portfolio", ex, 32, 2048),
		bounded(protocol.TypePosition, "Position", ex, 24, 512),
		variable(protocol.TypeBalance, "Balance", ex),
		variable(protocol.TypeTradeConfirmation, "TradeConfirmation", ex),
		variable(protocol.TypeRiskDecision, "RiskDecision", ex),
		variable(protocol.TypePositionUpdate, "PositionUpdate", ex),
		variable(protocol.TypeRiskAlert, "RiskAlert", ex),
		variable(protocol.TypeCollateralUpdate, "CollateralUpdate", ex),
		variable(protocol.TypeExposureReport, "ExposureReport", ex),
	}
	out := make(map[uint8]Entry, len(entries))
	for _, e := range entries {
		out[e.Type] = e
	}
	return out
}()

// Lookup returns the registry entry for t.
func Lookup(t uint8) (Entry, bool) {
	e, ok := registry[t]
	return e, ok
}

// Name returns the registered name or "type_<n>".
func Name(t uint8) string {
	if e, ok := registry[t]; ok {
		return e.Name
	}
	return fmt.Sprintf("type_%d", t)
}

// ValidateSize checks a record's payload length against its registered
// constraint. Unregistered types are ignored.
func ValidateSize(v tlv.View) error {
	e, ok := registry[v.Type]
	if !ok {
		return nil
	}
	n := len(v.Payload)
	switch e.Kind {
	case SizeFixed:
		if n != e.Min {
			log.Debug().Uint8("tlv_type", v.Type).Int("size", n).Int("want", e.Min).Msg("schema.ValidateSize fixed size mismatch")
			return ValidationError{Type: v.Type, Name: e.Name, Size: n, Reason: fmt.Sprintf("want exactly %d bytes", e.Min)}
		}
	case SizeBounded:
		if n < e.Min || n > e.Max {
			log.Debug().Uint8("tlv_type", v.Type).Int("size", n).Msg("schema.ValidateSize out of bounds")
			return ValidationError{Type: v.Type, Name: e.Name, Size: n, Reason: fmt.Sprintf("want %d..%d bytes", e.Min, e.Max)}
		}
	}
	return nil
}

// ValidateDomain reports whether a registered type belongs to domain d.
// Unregistered types pass; range policy is applied by the validator.
func ValidateDomain(t uint8, d protocol.RelayDomain) error {
	e, ok := registry[t]
	if !ok || e.Domain == d {
		return nil
	}
	return ValidationError{Type: t, Name: e.Name, Reason: fmt.Sprintf("belongs to %s, not %s", e.Domain, d)}
}

// Entries returns every registered entry ordered by type.
func Entries() []Entry {
	out := make([]Entry, 0, len(registry))
	for t := 0; t < 256; t++ {
		if e, ok := registry[uint8(t)]; ok {
			out = append(out, e)
		}
	}
	return out
}
