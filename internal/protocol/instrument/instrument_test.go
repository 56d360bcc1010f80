package instrument

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	usdcAddr = "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"
	wethAddr = "0xc02aaa39b223fe8d0a0e5c4f27ead87eac495271"
	daiAddr  = "0x6b175474e89094c44da98b954eedeac495271d0f"
)

func mustToken(t *testing.T, addr string) ID {
	t.Helper()
	id, err := EthereumToken(addr)
	require.NoError(t, err)
	return id
}

func TestEthereumTokenTruncatesAddressBigEndian(t *testing.T) {
	usdc := mustToken(t, usdcAddr)

	venue, err := usdc.Venue()
	require.NoError(t, err)
	assert.Equal(t, VenueEthereum, venue)
	asset, err := usdc.AssetType()
	require.NoError(t, err)
	assert.Equal(t, AssetToken, asset)
	assert.Equal(t, uint64(0xa0b86991c6218b36), usdc.AssetID)

	again := mustToken(t, usdcAddr)
	assert.Equal(t, usdc.Bytes(), again.Bytes())

	noPrefix, err := EthereumToken(usdcAddr[2:])
	require.NoError(t, err)
	assert.Equal(t, usdc, noPrefix)

	poly, err := PolygonToken(usdcAddr)
	require.NoError(t, err)
	assert.Equal(t, uint16(VenuePolygon), poly.VenueCode)
	assert.Equal(t, usdc.AssetID, poly.AssetID)
}

func TestEthereumTokenRejectsMalformedAddress(t *testing.T) {
	cases := map[string]string{
		"short":   "0xa0b8",
		"long":    usdcAddr + "00",
		"non-hex": "0xzzb86991c6218b36c1d19d4a2e9eb0ce3606eb48",
		"empty":   "",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := EthereumToken(in)
			var invalid *InvalidInstrumentError
			require.True(t, errors.As(err, &invalid), "got %v", err)
		})
	}
}

func TestPoolIsOrderIndependent(t *testing.T) {
	usdc := mustToken(t, usdcAddr)
	weth := mustToken(t, wethAddr)

	a := Pool(VenueUniswapV3, usdc, weth)
	b := Pool(VenueUniswapV3, weth, usdc)
	assert.Equal(t, a, b)
	assert.Equal(t, uint8(AssetPool), a.TypeCode)
	assert.Equal(t, uint8(0), a.Reserved)

	lo, hi := usdc.AssetID, weth.AssetID
	assert.Equal(t, lo*31+hi, a.AssetID)
}

func TestPoolHashWraps(t *testing.T) {
	hi := uint64(math.MaxUint64)
	lo := hi - 1
	p := Pool(VenueUniswapV2, ID{AssetID: hi}, ID{AssetID: lo})
	assert.Equal(t, lo*31+hi, p.AssetID)

	small := Pool(VenueUniswapV2, ID{AssetID: 2}, ID{AssetID: 1})
	assert.Equal(t, uint64(33), small.AssetID)
}

func TestTriangularPoolFlagsAndSorts(t *testing.T) {
	usdc := mustToken(t, usdcAddr)
	weth := mustToken(t, wethAddr)
	dai := mustToken(t, daiAddr)

	p1 := TriangularPool(VenueBalancer, usdc, weth, dai)
	p2 := TriangularPool(VenueBalancer, dai, usdc, weth)
	assert.Equal(t, p1, p2)
	assert.Equal(t, ReservedTriangular, p1.Reserved)

	tri := TriangularPool(VenueBalancer, ID{AssetID: 3}, ID{AssetID: 1}, ID{AssetID: 2})
	assert.Equal(t, uint64(1*31+2*17+3), tri.AssetID)
	assert.Contains(t, tri.DebugInfo(), "TriPool")
}

func TestLPTokenInheritsPoolAssetID(t *testing.T) {
	pool := Pool(VenueUniswapV2, ID{AssetID: 10}, ID{AssetID: 20})
	lp := LPToken(VenueUniswapV2, pool)
	assert.Equal(t, pool.AssetID, lp.AssetID)
	assert.Equal(t, uint8(AssetLPToken), lp.TypeCode)
}

func TestOptionBitPacking(t *testing.T) {
	opt := Option(VenueDeribit, "BTC", 50000, 20241225, true)
	assert.Equal(t, uint64(50000), opt.AssetID>>32)
	assert.Equal(t, uint64(20241225&0xFFFFF), (opt.AssetID>>12)&0xFFFFF)
	assert.Equal(t, uint64(1), (opt.AssetID>>11)&1)
	assert.Equal(t, symbolBits("BTC")&0x7FF, opt.AssetID&0x7FF)
	assert.Contains(t, opt.DebugInfo(), "Call Option strike=50000")

	put := Option(VenueDeribit, "BTC", 50000, 20241225, false)
	assert.Equal(t, uint64(0), (put.AssetID>>11)&1)
	assert.Contains(t, put.DebugInfo(), "Put")
}

func TestSymbolPacking(t *testing.T) {
	for _, sym := range []string{"AAPL", "MSFT", "GOOGL", "BTC", "ETH"} {
		assert.Equal(t, sym, bitsSymbol(symbolBits(sym)))
	}
	assert.Equal(t, "VERYLONG", bitsSymbol(symbolBits("VERYLONGSYMBOL")))

	aapl := Stock(VenueNASDAQ, "AAPL")
	assert.Equal(t, "NASDAQ Stock: AAPL", aapl.DebugInfo())
	eth := Coin(VenueEthereum, "ETH")
	assert.Equal(t, "Ethereum Coin: ETH", eth.DebugInfo())
}

func TestCacheKeyIsLossless(t *testing.T) {
	ids := []ID{
		mustToken(t, usdcAddr),
		Stock(VenueNYSE, "IBM"),
		TriangularPool(VenueCurve, ID{AssetID: math.MaxUint64}, ID{AssetID: 7}, ID{AssetID: 9}),
		Option(VenueDeribit, "ETH", math.MaxUint32, 0xFFFFF, true),
		{AssetID: math.MaxUint64, VenueCode: math.MaxUint16, TypeCode: math.MaxUint8, Reserved: math.MaxUint8},
		{},
	}
	for _, id := range ids {
		assert.Equal(t, id, FromCacheKey(id.CacheKey()), id.DebugInfo())
	}
}

func TestU64FormPreservesVenueAndAssetType(t *testing.T) {
	usdc := mustToken(t, usdcAddr)
	back := FromU64(usdc.ToU64())
	assert.Equal(t, usdc.VenueCode, back.VenueCode)
	assert.Equal(t, usdc.TypeCode, back.TypeCode)
	assert.Equal(t, usdc.AssetID&0xFFFFFFFFFF, back.AssetID)

	small := Stock(VenueNYSE, "")
	small.AssetID = 12345
	assert.Equal(t, small, FromU64(small.ToU64()))
}

func TestWireBytesRoundTrip(t *testing.T) {
	id := TriangularPool(VenueBalancer, ID{AssetID: 1}, ID{AssetID: 2}, ID{AssetID: 3})
	raw := id.Bytes()
	assert.Equal(t, uint8(ReservedTriangular), raw[11])
	back, err := FromBytes(raw[:])
	require.NoError(t, err)
	assert.Equal(t, id, back)

	_, err = FromBytes(raw[:5])
	var invalid *InvalidInstrumentError
	assert.True(t, errors.As(err, &invalid))
}

func TestAccessorsRejectCorruptCodes(t *testing.T) {
	bad := ID{AssetID: 1, VenueCode: 9999, TypeCode: 7}

	_, err := bad.Venue()
	var venueErr *InvalidVenueError
	require.True(t, errors.As(err, &venueErr))
	assert.Equal(t, uint16(9999), venueErr.Code)

	_, err = bad.AssetType()
	var assetErr *InvalidAssetTypeError
	require.True(t, errors.As(err, &assetErr))
	assert.Equal(t, uint8(7), assetErr.Code)

	assert.Equal(t, "Invalid 9999/7 #1", bad.DebugInfo())
}

func TestCanPairWith(t *testing.T) {
	usdc := mustToken(t, usdcAddr)
	weth := mustToken(t, wethAddr)
	aapl := Stock(VenueNASDAQ, "AAPL")
	nft := ID{AssetID: 5, VenueCode: uint16(VenueEthereum), TypeCode: uint8(AssetNFT)}

	assert.True(t, usdc.CanPairWith(weth))
	assert.True(t, weth.CanPairWith(usdc))
	assert.False(t, usdc.CanPairWith(aapl), "different venue")
	assert.False(t, usdc.CanPairWith(usdc), "same asset id")
	assert.False(t, usdc.CanPairWith(nft), "non-fungible")
}

func TestVenueProperties(t *testing.T) {
	chain, ok := VenueUniswapV3.Blockchain()
	assert.True(t, ok)
	assert.Equal(t, VenueEthereum, chain)
	_, ok = VenueBinance.Blockchain()
	assert.False(t, ok)

	assert.True(t, VenueUniswapV3.SupportsPools())
	assert.False(t, VenueBinance.SupportsPools())
	assert.True(t, VenueBinance.IsCentralized())
	assert.True(t, VenueUniswapV3.IsDeFi())
	assert.False(t, VenueNYSE.IsDeFi())

	for venue, want := range map[Venue]uint64{
		VenueEthereum: 1, VenuePolygon: 137, VenueBinanceSmartChain: 56,
		VenueArbitrum: 42161, VenueQuickSwap: 137,
	} {
		got, ok := venue.ChainID()
		assert.True(t, ok, venue.String())
		assert.Equal(t, want, got, venue.String())
	}
	_, ok = VenueNYSE.ChainID()
	assert.False(t, ok)

	assert.True(t, AssetOption.IsDerivative())
	assert.True(t, AssetToken.IsBlockchainNative())
	assert.False(t, AssetStock.IsBlockchainNative())
	assert.Equal(t, "Venue(9999)", Venue(9999).String())
}

func TestFormatAddressEIP55(t *testing.T) {
	for _, want := range []string{
		"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
		"0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359",
		"0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB",
		"0xD1220A0cf47c7B9Be7A2E6BA89F429762e7b9aDb",
	} {
		addr, err := ParseAddress(want)
		require.NoError(t, err)
		assert.Equal(t, want, FormatAddress(addr))
		assert.Equal(t, want, addr.String())
	}
}
