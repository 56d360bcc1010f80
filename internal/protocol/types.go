package protocol

import "strconv"

const (
	Magic   uint32 = 0xDEADBEEF
	Version uint8  = 1

	HeaderSize     = 32
	ChecksumOffset = 28

	// MaxSourceID is the highest valid producer id.
	MaxSourceID = 100
)

// Header is the fixed 32-byte message header.
//
// Wire layout (little-endian):
//
//	magic u32 @0 | version u8 @4 | message_type u8 @5 | relay_domain u8 @6 | source u8 @7
//	sequence u64 @8 | timestamp_ns u64 @16 | payload_size u32 @24 | checksum u32 @28
type Header struct {
	Magic       uint32
	Version     uint8
	MessageType uint8
	RelayDomain RelayDomain
	Source      Source
	Sequence    uint64
	TimestampNs uint64
	PayloadSize uint32
	Checksum    uint32
}

// RelayDomain routes a message and selects its validation policy.
type RelayDomain uint8

const (
	DomainMarketData RelayDomain = 1
	DomainSignal     RelayDomain = 2
	DomainExecution  RelayDomain = 3
)

func (d RelayDomain) Valid() bool {
	return d >= DomainMarketData && d <= DomainExecution
}

func (d RelayDomain) String() string {
	switch d {
	case DomainMarketData:
		return "market_data"
	case DomainSignal:
		return "signal"
	case DomainExecution:
		return "execution"
	default:
		return "domain_" + strconv.Itoa(int(d))
	}
}

// ParseRelayDomain accepts the names returned by String.
func ParseRelayDomain(s string) (RelayDomain, bool) {
	switch s {
	case "market_data", "marketdata", "market":
		return DomainMarketData, true
	case "signal":
		return DomainSignal, true
	case "execution":
		return DomainExecution, true
	default:
		return 0, false
	}
}

// Source identifies the producing service. Any value in [1, MaxSourceID] is
// accepted on the wire; the named codes are the registered producers.
type Source uint8

const (
	SourceBinanceCollector  Source = 1
	SourceKrakenCollector   Source = 2
	SourceCoinbaseCollector Source = 3
	SourcePolygonCollector  Source = 4
	SourceGeminiCollector   Source = 5

	SourceArbitrageStrategy    Source = 20
	SourceMarketMaker          Source = 21
	SourceTrendFollower        Source = 22
	SourceKrakenSignalStrategy Source = 23

	SourcePortfolioManager Source = 40
	SourceRiskManager      Source = 41
	SourceExecutionEngine  Source = 42

	SourceDashboard        Source = 60
	SourceMetricsCollector Source = 61
	SourceStateManager     Source = 62

	SourceMarketDataRelay Source = 80
	SourceSignalRelay     Source = 81
	SourceExecutionRelay  Source = 82
)

var sourceNames = map[Source]string{
	SourceBinanceCollector:     "binance_collector",
	SourceKrakenCollector:      "kraken_collector",
	SourceCoinbaseCollector:    "coinbase_collector",
	SourcePolygonCollector:     "polygon_collector",
	SourceGeminiCollector:      "gemini_collector",
	SourceArbitrageStrategy:    "arbitrage_strategy",
	SourceMarketMaker:          "market_maker",
	SourceTrendFollower:        "trend_follower",
	SourceKrakenSignalStrategy: "kraken_signal_strategy",
	SourcePortfolioManager:     "portfolio_manager",
	SourceRiskManager:          "risk_manager",
	SourceExecutionEngine:      "execution_engine",
	SourceDashboard:            "dashboard",
	SourceMetricsCollector:     "metrics_collector",
	SourceStateManager:         "state_manager",
	SourceMarketDataRelay:      "market_data_relay",
	SourceSignalRelay:          "signal_relay",
	SourceExecutionRelay:       "execution_relay",
}

func (s Source) Valid() bool {
	return s >= 1 && s <= MaxSourceID
}

func (s Source) String() string {
	if name, ok := sourceNames[s]; ok {
		return name
	}
	return "source_" + strconv.Itoa(int(s))
}

// TLV type codes. Ranges: market data 1-19, signal 20-39, execution 40-79.
const (
	TypeTrade                   uint8 = 1
	TypeQuote                   uint8 = 2
	TypeOrderBook               uint8 = 3
	TypeInstrumentMeta          uint8 = 4
	TypeL2Snapshot              uint8 = 5
	TypeL2Delta                 uint8 = 6
	TypeL2Reset                 uint8 = 7
	TypePriceUpdate             uint8 = 8
	TypeVolumeUpdate            uint8 = 9
	TypePoolLiquidity           uint8 = 10
	TypePoolSwap                uint8 = 11
	TypePoolMint                uint8 = 12
	TypePoolBurn                uint8 = 13
	TypePoolTick                uint8 = 14
	TypePoolState               uint8 = 15
	TypePoolSync                uint8 = 16
	TypeQuoteUpdate             uint8 = 17
	TypeGasPrice                uint8 = 18
	TypeStateInvalidationReason uint8 = 19

	TypeSignalIdentity     uint8 = 20
	TypeAssetCorrelation   uint8 = 21
	TypeEconomics          uint8 = 22
	TypeExecutionAddresses uint8 = 23
	TypeVenueMetadata      uint8 = 24
	TypeStateReference     uint8 = 25
	TypeExecutionControl   uint8 = 26
	TypePoolAddresses      uint8 = 27
	TypeMEVBundle          uint8 = 28
	TypeTertiaryVenue      uint8 = 29
	TypeRiskParameters     uint8 = 30
	TypePerformanceMetrics uint8 = 31
	TypeArbitrageSignal    uint8 = 32

	TypeOrderRequest      uint8 = 40
	TypeOrderStatus       uint8 = 41
	TypeFill              uint8 = 42
	TypeOrderCancel       uint8 = 43
	TypeOrderModify       uint8 = 44
	TypeExecutionReport   uint8 = 45
	TypePortfolio         uint8 = 46
	TypePosition          uint8 = 47
	TypeBalance           uint8 = 48
	TypeTradeConfirmation uint8 = 49
	TypeRiskDecision      uint8 = 60
	TypePositionUpdate    uint8 = 61
	TypeRiskAlert         uint8 = 62
	TypeCollateralUpdate  uint8 = 63
	TypeExposureReport    uint8 = 64
)

// IsPoolType reports whether a record of type t starts with a 20-byte pool address.
func IsPoolType(t uint8) bool {
	return t == TypePoolSwap || t == TypePoolMint || t == TypePoolBurn
}
