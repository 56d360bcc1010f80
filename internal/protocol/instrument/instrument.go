// Package instrument implements the bijective 12-byte instrument identifier.
//
// An ID is self-describing: venue and asset type travel inside the value, so
// no registry lookup is needed to interpret it. Construction is pure.
package instrument

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
)

// Size is the wire size of an ID.
const Size = 12

const (
	// ReservedTriangular marks a three-token pool.
	ReservedTriangular uint8 = 1

	lossyAssetMask = 0xFFFFFFFFFF
)

// ID is the value object carried inside TLV payloads.
//
// Wire layout (little-endian): asset_id u64 | venue u16 | asset_type u8 | reserved u8.
type ID struct {
	AssetID   uint64
	VenueCode uint16
	TypeCode  uint8
	Reserved  uint8
}

type InvalidInstrumentError struct {
	Input  string
	Reason string
}

func (e *InvalidInstrumentError) Error() string {
	return fmt.Sprintf("instrument: invalid instrument %q: %s", e.Input, e.Reason)
}

type InvalidVenueError struct {
	Code uint16
}

func (e *InvalidVenueError) Error() string {
	return fmt.Sprintf("instrument: invalid venue code %d", e.Code)
}

type InvalidAssetTypeError struct {
	Code uint8
}

func (e *InvalidAssetTypeError) Error() string {
	return fmt.Sprintf("instrument: invalid asset type code %d", e.Code)
}

func EthereumToken(address string) (ID, error) { return evmToken(VenueEthereum, address) }

func PolygonToken(address string) (ID, error) { return evmToken(VenuePolygon, address) }

func BSCToken(address string) (ID, error) { return evmToken(VenueBinanceSmartChain, address) }

func ArbitrumToken(address string) (ID, error) { return evmToken(VenueArbitrum, address) }

// evmToken keeps the first 8 bytes of the 20-byte contract address, big-endian.
func evmToken(venue Venue, address string) (ID, error) {
	addr, err := ParseAddress(address)
	if err != nil {
		return ID{}, err
	}
	return ID{
		AssetID:   binary.BigEndian.Uint64(addr[:8]),
		VenueCode: uint16(venue),
		TypeCode:  uint8(AssetToken),
	}, nil
}

func Stock(exchange Venue, symbol string) ID {
	return ID{AssetID: symbolBits(symbol), VenueCode: uint16(exchange), TypeCode: uint8(AssetStock)}
}

func Bond(exchange Venue, symbol string) ID {
	return ID{AssetID: symbolBits(symbol), VenueCode: uint16(exchange), TypeCode: uint8(AssetBond)}
}

func Coin(chain Venue, symbol string) ID {
	return ID{AssetID: symbolBits(symbol), VenueCode: uint16(chain), TypeCode: uint8(AssetCoin)}
}

// Pool derives a two-token pool id. Token order does not matter.
//
// The mix is lo*31 + hi with wrapping arithmetic; it is weak and may collide,
// but other producers compute the same value so it must not change.
func Pool(dex Venue, token0, token1 ID) ID {
	lo, hi := token0.AssetID, token1.AssetID
	if lo > hi {
		lo, hi = hi, lo
	}
	return ID{
		AssetID:   lo*31 + hi,
		VenueCode: uint16(dex),
		TypeCode:  uint8(AssetPool),
	}
}

// TriangularPool derives a three-token pool id, flagged with ReservedTriangular.
func TriangularPool(dex Venue, token0, token1, token2 ID) ID {
	a, b, c := sort3(token0.AssetID, token1.AssetID, token2.AssetID)
	return ID{
		AssetID:   a*31 + b*17 + c,
		VenueCode: uint16(dex),
		TypeCode:  uint8(AssetPool),
		Reserved:  ReservedTriangular,
	}
}

// LPToken inherits the pool's asset id.
func LPToken(dex Venue, pool ID) ID {
	return ID{AssetID: pool.AssetID, VenueCode: uint16(dex), TypeCode: uint8(AssetLPToken)}
}

// Option packs strike(32) | expiry(20) | is_call(1) | symbol_hash(11).
func Option(exchange Venue, underlying string, strike uint64, expiry uint32, isCall bool) ID {
	var call uint64
	if isCall {
		call = 1
	}
	id := (strike&0xFFFFFFFF)<<32 |
		(uint64(expiry)&0xFFFFF)<<12 |
		call<<11 |
		symbolBits(underlying)&0x7FF
	return ID{AssetID: id, VenueCode: uint16(exchange), TypeCode: uint8(AssetOption)}
}

// Venue decodes the stored venue code.
func (id ID) Venue() (Venue, error) {
	v := Venue(id.VenueCode)
	if !v.Valid() {
		return 0, &InvalidVenueError{Code: id.VenueCode}
	}
	return v, nil
}

// AssetType decodes the stored asset type code.
func (id ID) AssetType() (AssetType, error) {
	a := AssetType(id.TypeCode)
	if !a.Valid() {
		return 0, &InvalidAssetTypeError{Code: id.TypeCode}
	}
	return a, nil
}

// ToU64 is the lossy 64-bit cache form: venue:16 | asset_type:8 | asset_id:40.
// Reserved is dropped and asset_id is truncated.
func (id ID) ToU64() uint64 {
	return uint64(id.VenueCode)<<48 | uint64(id.TypeCode)<<40 | id.AssetID&lossyAssetMask
}

func FromU64(v uint64) ID {
	return ID{
		VenueCode: uint16(v >> 48),
		TypeCode:  uint8(v >> 40),
		AssetID:   v & lossyAssetMask,
	}
}

// Key is the lossless 128-bit cache form.
type Key struct {
	Hi uint64 // venue:16 (bits 16..31) | asset_type:8 | reserved:8
	Lo uint64 // asset_id
}

// CacheKey packs every field: venue<<80 | asset_type<<72 | reserved<<64 | asset_id.
func (id ID) CacheKey() Key {
	return Key{
		Hi: uint64(id.VenueCode)<<16 | uint64(id.TypeCode)<<8 | uint64(id.Reserved),
		Lo: id.AssetID,
	}
}

func FromCacheKey(k Key) ID {
	return ID{
		VenueCode: uint16(k.Hi >> 16),
		TypeCode:  uint8(k.Hi >> 8),
		Reserved:  uint8(k.Hi),
		AssetID:   k.Lo,
	}
}

func (k Key) String() string {
	return fmt.Sprintf("%016x%016x", k.Hi, k.Lo)
}

// PutBytes writes the 12-byte wire form into dst. dst must hold Size bytes.
func (id ID) PutBytes(dst []byte) {
	_ = dst[Size-1]
	binary.LittleEndian.PutUint64(dst[0:8], id.AssetID)
	binary.LittleEndian.PutUint16(dst[8:10], id.VenueCode)
	dst[10] = id.TypeCode
	dst[11] = id.Reserved
}

func (id ID) Bytes() [Size]byte {
	var out [Size]byte
	id.PutBytes(out[:])
	return out
}

// FromBytes reads the 12-byte wire form.
func FromBytes(b []byte) (ID, error) {
	if len(b) < Size {
		return ID{}, &InvalidInstrumentError{
			Input:  hex.EncodeToString(b),
			Reason: fmt.Sprintf("need %d bytes, got %d", Size, len(b)),
		}
	}
	return ID{
		AssetID:   binary.LittleEndian.Uint64(b[0:8]),
		VenueCode: binary.LittleEndian.Uint16(b[8:10]),
		TypeCode:  b[10],
		Reserved:  b[11],
	}, nil
}

// CanPairWith requires same venue, fungible asset types on both sides and
// distinct asset ids.
func (id ID) CanPairWith(other ID) bool {
	a, err := id.AssetType()
	if err != nil {
		a = AssetTest
	}
	b, err := other.AssetType()
	if err != nil {
		b = AssetTest
	}
	return a.IsFungible() && b.IsFungible() &&
		id.VenueCode == other.VenueCode &&
		id.AssetID != other.AssetID
}

func (id ID) ChainID() (uint64, bool) {
	v, err := id.Venue()
	if err != nil {
		return 0, false
	}
	return v.ChainID()
}

// DebugInfo renders the id without any lossy conversion.
func (id ID) DebugInfo() string {
	venue, verr := id.Venue()
	asset, aerr := id.AssetType()
	if verr != nil || aerr != nil {
		return fmt.Sprintf("Invalid %d/%d #%d", id.VenueCode, id.TypeCode, id.AssetID)
	}
	switch asset {
	case AssetToken:
		return fmt.Sprintf("%s Token 0x%016x", venue, id.AssetID)
	case AssetStock:
		return fmt.Sprintf("%s Stock: %s", venue, bitsSymbol(id.AssetID))
	case AssetCoin:
		return fmt.Sprintf("%s Coin: %s", venue, bitsSymbol(id.AssetID))
	case AssetPool:
		if id.Reserved == ReservedTriangular {
			return fmt.Sprintf("%s TriPool #%d", venue, id.AssetID)
		}
		return fmt.Sprintf("%s Pool #%d", venue, id.AssetID)
	case AssetOption:
		kind := "Put"
		if (id.AssetID>>11)&1 == 1 {
			kind = "Call"
		}
		return fmt.Sprintf("%s %s Option strike=%d exp=%d sym=0x%x",
			venue, kind, id.AssetID>>32, (id.AssetID>>12)&0xFFFFF, id.AssetID&0x7FF)
	default:
		return fmt.Sprintf("%s %s #%d", venue, asset, id.AssetID)
	}
}

func (id ID) String() string { return id.DebugInfo() }

// symbolBits packs up to 8 ASCII bytes big-endian, zero padded.
func symbolBits(symbol string) uint64 {
	var buf [8]byte
	copy(buf[:], symbol)
	return binary.BigEndian.Uint64(buf[:])
}

func bitsSymbol(v uint64) string {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	s := string(buf[:])
	if i := strings.IndexByte(s, 0); i >= 0 {
		s = s[:i]
	}
	return s
}

func sort3(a, b, c uint64) (uint64, uint64, uint64) {
	if a > b {
		a, b = b, a
	}
	if b > c {
		b, c = c, b
	}
	if a > b {
		a, b = b, a
	}
	return a, b, c
}
