package instrument

import "strconv"

// Venue identifies where an instrument trades. Codes are part of the wire
// format and must never be renumbered.
type Venue uint16

const (
	VenueGeneric Venue = 0

	VenueNYSE   Venue = 1
	VenueNASDAQ Venue = 2
	VenueLSE    Venue = 3
	VenueTSE    Venue = 4
	VenueHKEX   Venue = 5

	VenueBinance  Venue = 100
	VenueKraken   Venue = 101
	VenueCoinbase Venue = 102
	VenueHuobi    Venue = 103
	VenueOKEx     Venue = 104
	VenueFTX      Venue = 105
	VenueBybit    Venue = 106
	VenueKuCoin   Venue = 107
	VenueGemini   Venue = 108

	VenueEthereum          Venue = 200
	VenueBitcoin           Venue = 201
	VenuePolygon           Venue = 202
	VenueBinanceSmartChain Venue = 203
	VenueAvalanche         Venue = 204
	VenueFantom            Venue = 205
	VenueArbitrum          Venue = 206
	VenueOptimism          Venue = 207
	VenueSolana            Venue = 208
	VenueCardano           Venue = 209
	VenuePolkadot          Venue = 210
	VenueCosmos            Venue = 211

	VenueUniswapV2 Venue = 300
	VenueUniswapV3 Venue = 301
	VenueSushiSwap Venue = 302
	VenueCurve     Venue = 303
	VenueBalancer  Venue = 304
	VenueAave      Venue = 305
	VenueCompound  Venue = 306
	VenueMakerDAO  Venue = 307
	VenueYearn     Venue = 308
	VenueSynthetix Venue = 309
	VenueDYdX      Venue = 310

	VenueQuickSwap        Venue = 400
	VenueSushiSwapPolygon Venue = 401
	VenueCurvePolygon     Venue = 402
	VenueAavePolygon      Venue = 403
	VenueBalancerPolygon  Venue = 404

	VenuePancakeSwap   Venue = 500
	VenueVenusProtocol Venue = 501

	VenueUniswapV3Arbitrum Venue = 600
	VenueSushiSwapArbitrum Venue = 601
	VenueCurveArbitrum     Venue = 602

	VenueDeribit          Venue = 700
	VenueBybitDerivatives Venue = 701
	VenueOpynProtocol     Venue = 702
	VenueHegic            Venue = 703

	VenueCOMEX    Venue = 800
	VenueCME      Venue = 801
	VenueICE      Venue = 802
	VenueForexCom Venue = 803

	VenueTest         Venue = 65000
	VenueMockExchange Venue = 65001
)

var venueNames = map[Venue]string{
	VenueGeneric:           "Generic",
	VenueNYSE:              "NYSE",
	VenueNASDAQ:            "NASDAQ",
	VenueLSE:               "LSE",
	VenueTSE:               "TSE",
	VenueHKEX:              "HKEX",
	VenueBinance:           "Binance",
	VenueKraken:            "Kraken",
	VenueCoinbase:          "Coinbase",
	VenueHuobi:             "Huobi",
	VenueOKEx:              "OKEx",
	VenueFTX:               "FTX",
	VenueBybit:             "Bybit",
	VenueKuCoin:            "KuCoin",
	VenueGemini:            "Gemini",
	VenueEthereum:          "Ethereum",
	VenueBitcoin:           "Bitcoin",
	VenuePolygon:           "Polygon",
	VenueBinanceSmartChain: "BinanceSmartChain",
	VenueAvalanche:         "Avalanche",
	VenueFantom:            "Fantom",
	VenueArbitrum:          "Arbitrum",
	VenueOptimism:          "Optimism",
	VenueSolana:            "Solana",
	VenueCardano:           "Cardano",
	VenuePolkadot:          "Polkadot",
	VenueCosmos:            "Cosmos",
	VenueUniswapV2:         "UniswapV2",
	VenueUniswapV3:         "UniswapV3",
	VenueSushiSwap:         "SushiSwap",
	VenueCurve:             "Curve",
	VenueBalancer:          "Balancer",
	VenueAave:              "Aave",
	VenueCompound:          "Compound",
	VenueMakerDAO:          "MakerDAO",
	VenueYearn:             "Yearn",
	VenueSynthetix:         "Synthetix",
	VenueDYdX:              "DYdX",
	VenueQuickSwap:         "QuickSwap",
	VenueSushiSwapPolygon:  "SushiSwapPolygon",
	VenueCurvePolygon:      "CurvePolygon",
	VenueAavePolygon:       "AavePolygon",
	VenueBalancerPolygon:   "BalancerPolygon",
	VenuePancakeSwap:       "PancakeSwap",
	VenueVenusProtocol:     "VenusProtocol",
	VenueUniswapV3Arbitrum: "UniswapV3Arbitrum",
	VenueSushiSwapArbitrum: "SushiSwapArbitrum",
	VenueCurveArbitrum:     "CurveArbitrum",
	VenueDeribit:           "Deribit",
	VenueBybitDerivatives:  "BybitDerivatives",
	VenueOpynProtocol:      "OpynProtocol",
	VenueHegic:             "Hegic",
	VenueCOMEX:             "COMEX",
	VenueCME:               "CME",
	VenueICE:               "ICE",
	VenueForexCom:          "ForexCom",
	VenueTest:              "TestVenue",
	VenueMockExchange:      "MockExchange",
}

// Valid reports whether v is a registered venue code.
func (v Venue) Valid() bool {
	_, ok := venueNames[v]
	return ok
}

func (v Venue) String() string {
	if name, ok := venueNames[v]; ok {
		return name
	}
	return "Venue(" + strconv.Itoa(int(v)) + ")"
}

// Blockchain returns the settlement chain of a DeFi venue.
func (v Venue) Blockchain() (Venue, bool) {
	switch v {
	case VenueUniswapV2, VenueUniswapV3, VenueSushiSwap, VenueCurve, VenueBalancer,
		VenueAave, VenueCompound, VenueMakerDAO, VenueYearn, VenueSynthetix, VenueDYdX:
		return VenueEthereum, true
	case VenueQuickSwap, VenueSushiSwapPolygon, VenueCurvePolygon, VenueAavePolygon, VenueBalancerPolygon:
		return VenuePolygon, true
	case VenuePancakeSwap, VenueVenusProtocol:
		return VenueBinanceSmartChain, true
	case VenueUniswapV3Arbitrum, VenueSushiSwapArbitrum, VenueCurveArbitrum:
		return VenueArbitrum, true
	default:
		return 0, false
	}
}

// SupportsPools reports whether the venue lists liquidity pools.
func (v Venue) SupportsPools() bool {
	switch v {
	case VenueUniswapV2, VenueUniswapV3, VenueSushiSwap, VenueCurve, VenueBalancer,
		VenueQuickSwap, VenueSushiSwapPolygon, VenueCurvePolygon, VenueBalancerPolygon,
		VenuePancakeSwap, VenueUniswapV3Arbitrum, VenueSushiSwapArbitrum, VenueCurveArbitrum:
		return true
	default:
		return false
	}
}

func (v Venue) IsDeFi() bool {
	switch v {
	case VenueUniswapV2, VenueUniswapV3, VenueSushiSwap, VenueCurve, VenueBalancer,
		VenueAave, VenueCompound, VenueMakerDAO, VenueYearn, VenueSynthetix, VenueDYdX,
		VenueQuickSwap, VenueSushiSwapPolygon, VenueCurvePolygon, VenueAavePolygon,
		VenueBalancerPolygon, VenuePancakeSwap, VenueVenusProtocol, VenueUniswapV3Arbitrum,
		VenueSushiSwapArbitrum, VenueCurveArbitrum, VenueOpynProtocol, VenueHegic:
		return true
	default:
		return false
	}
}

func (v Venue) IsCentralized() bool {
	switch v {
	case VenueCoinbase, VenueBinance, VenueKraken, VenueGemini, VenueFTX, VenueHuobi,
		VenueKuCoin, VenueBybit, VenueDeribit, VenueBybitDerivatives:
		return true
	default:
		return false
	}
}

// ChainID returns the EVM chain id for on-chain venues.
func (v Venue) ChainID() (uint64, bool) {
	switch v {
	case VenueEthereum:
		return 1, true
	case VenuePolygon:
		return 137, true
	case VenueBinanceSmartChain:
		return 56, true
	case VenueArbitrum:
		return 42161, true
	case VenueOptimism:
		return 10, true
	case VenueAvalanche:
		return 43114, true
	case VenueFantom:
		return 250, true
	}
	if chain, ok := v.Blockchain(); ok {
		return chain.ChainID()
	}
	return 0, false
}

// AssetType classifies an instrument. Codes are part of the wire format.
type AssetType uint8

const (
	AssetStock     AssetType = 1
	AssetBond      AssetType = 2
	AssetETF       AssetType = 3
	AssetCommodity AssetType = 4
	AssetCurrency  AssetType = 5
	AssetIndex     AssetType = 6

	AssetToken        AssetType = 50
	AssetCoin         AssetType = 51
	AssetNFT          AssetType = 52
	AssetStableCoin   AssetType = 53
	AssetWrappedToken AssetType = 54

	AssetPool            AssetType = 100
	AssetLPToken         AssetType = 101
	AssetYieldToken      AssetType = 102
	AssetSynthetic       AssetType = 103
	AssetDerivativeToken AssetType = 104
	AssetGovernanceToken AssetType = 105

	AssetOption  AssetType = 150
	AssetFuture  AssetType = 151
	AssetSwap    AssetType = 152
	AssetForward AssetType = 153
	AssetCDS     AssetType = 154

	AssetStructuredNote  AssetType = 200
	AssetConvertibleBond AssetType = 201

	AssetTest AssetType = 250
	AssetMock AssetType = 251
)

var assetTypeNames = map[AssetType]string{
	AssetStock:           "Stock",
	AssetBond:            "Bond",
	AssetETF:             "ETF",
	AssetCommodity:       "Commodity",
	AssetCurrency:        "Currency",
	AssetIndex:           "Index",
	AssetToken:           "Token",
	AssetCoin:            "Coin",
	AssetNFT:             "NFT",
	AssetStableCoin:      "StableCoin",
	AssetWrappedToken:    "WrappedToken",
	AssetPool:            "Pool",
	AssetLPToken:         "LPToken",
	AssetYieldToken:      "YieldToken",
	AssetSynthetic:       "SyntheticAsset",
	AssetDerivativeToken: "DerivativeToken",
	AssetGovernanceToken: "GovernanceToken",
	AssetOption:          "Option",
	AssetFuture:          "Future",
	AssetSwap:            "Swap",
	AssetForward:         "Forward",
	AssetCDS:             "CDS",
	AssetStructuredNote:  "StructuredNote",
	AssetConvertibleBond: "ConvertibleBond",
	AssetTest:            "TestAsset",
	AssetMock:            "MockAsset",
}

func (a AssetType) Valid() bool {
	_, ok := assetTypeNames[a]
	return ok
}

func (a AssetType) String() string {
	if name, ok := assetTypeNames[a]; ok {
		return name
	}
	return "AssetType(" + strconv.Itoa(int(a)) + ")"
}

// IsFungible is false only for NFTs.
func (a AssetType) IsFungible() bool { return a != AssetNFT }

func (a AssetType) IsBlockchainNative() bool { return a >= 50 && a <= 149 }

func (a AssetType) IsDeFi() bool { return a >= 100 && a <= 149 }

func (a AssetType) IsDerivative() bool { return a >= 150 && a <= 199 }
