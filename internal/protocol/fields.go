package protocol

import (
	"encoding/binary"

	"github.com/shopspring/decimal"

	"github.com/danmuck/tlvwire/internal/protocol/instrument"
	"github.com/danmuck/tlvwire/internal/protocol/tlv"
)

const (
	TradeSize = 16

	// FixedPointScale is the number of implied decimals in price and volume.
	FixedPointScale = 8
)

// Trade is the market-data trade payload: price i64 | volume i64, both LE
// fixed point with FixedPointScale decimals.
type Trade struct {
	Price  int64
	Volume int64
}

// NewTrade converts decimals to fixed point, truncating past 8 decimals.
func NewTrade(price, volume decimal.Decimal) Trade {
	return Trade{
		Price:  price.Shift(FixedPointScale).IntPart(),
		Volume: volume.Shift(FixedPointScale).IntPart(),
	}
}

func (t Trade) PutBytes(dst []byte) {
	_ = dst[TradeSize-1]
	binary.LittleEndian.PutUint64(dst[0:8], uint64(t.Price))
	binary.LittleEndian.PutUint64(dst[8:16], uint64(t.Volume))
}

func (t Trade) Bytes() [TradeSize]byte {
	var out [TradeSize]byte
	t.PutBytes(out[:])
	return out
}

func (t Trade) PriceDecimal() decimal.Decimal {
	return decimal.New(t.Price, -FixedPointScale)
}

func (t Trade) VolumeDecimal() decimal.Decimal {
	return decimal.New(t.Volume, -FixedPointScale)
}

// DecodeTrade reads a trade payload. The payload must be exactly TradeSize bytes.
func DecodeTrade(payload []byte) (Trade, error) {
	if len(payload) != TradeSize {
		return Trade{}, &PayloadLengthError{Type: TypeTrade, Want: TradeSize, Got: len(payload)}
	}
	return Trade{
		Price:  int64(binary.LittleEndian.Uint64(payload[0:8])),
		Volume: int64(binary.LittleEndian.Uint64(payload[8:16])),
	}, nil
}

// PoolAddress extracts the pool address from a pool-identity record. It
// returns false for other types or payloads shorter than 20 bytes.
func PoolAddress(v tlv.View) (instrument.Address, bool) {
	var addr instrument.Address
	if !IsPoolType(v.Type) || len(v.Payload) < instrument.AddressLen {
		return addr, false
	}
	copy(addr[:], v.Payload[:instrument.AddressLen])
	return addr, true
}
