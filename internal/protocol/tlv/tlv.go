// Package tlv implements the payload record format carried after the message
// header.
//
// Two wire shapes exist, selected by the first byte:
//
//	standard: type u8 (1..254) | len u8 | payload
//	extended: 0xFF | reserved u8 | type u8 | len u16 LE | payload
//
// Encoders write 0 into the reserved byte; decoders ignore it.
//
// Decoding never copies: views point into the caller's buffer.
package tlv

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	StandardHeaderLen = 2
	ExtendedHeaderLen = 5

	// ExtendedMarker is the first byte of an extended record.
	ExtendedMarker uint8 = 255

	MaxStandardPayload = 255
	MaxPayload         = 65535
)

var (
	ErrPayloadTooLarge = errors.New("tlv: payload exceeds 65535 bytes")
	ErrReservedType    = errors.New("tlv: type 255 is reserved for the extended marker")
	ErrZeroType        = errors.New("tlv: standard records use types 1-254")
	ErrShortBuffer     = errors.New("tlv: destination buffer too small")
)

// TruncatedError reports a record whose header or declared length runs past
// the end of the payload.
type TruncatedError struct {
	Offset    int   // start of the offending record
	Type      uint8 // 0 when the header itself is incomplete
	Declared  int   // bytes the record claims to need, header included
	Remaining int   // bytes left from Offset
}

func (e *TruncatedError) Error() string {
	return fmt.Sprintf("tlv: truncated record type %d at offset %d: need %d bytes, have %d",
		e.Type, e.Offset, e.Declared, e.Remaining)
}

// View is a non-owning record. Payload aliases the parsed buffer.
type View struct {
	Type     uint8
	Extended bool
	Offset   int
	Payload  []byte
}

// Len is the encoded size of the record including its header.
func (v View) Len() int {
	if v.Extended {
		return ExtendedHeaderLen + len(v.Payload)
	}
	return StandardHeaderLen + len(v.Payload)
}

// Next decodes the record starting at off. It returns the view and the offset
// of the following record.
func Next(payload []byte, off int) (View, int, error) {
	remaining := len(payload) - off
	if remaining < StandardHeaderLen {
		return View{}, off, &TruncatedError{Offset: off, Declared: StandardHeaderLen, Remaining: remaining}
	}
	if payload[off] != ExtendedMarker {
		typ := payload[off]
		need := StandardHeaderLen + int(payload[off+1])
		if need > remaining {
			return View{}, off, &TruncatedError{Offset: off, Type: typ, Declared: need, Remaining: remaining}
		}
		return View{
			Type:    typ,
			Offset:  off,
			Payload: payload[off+StandardHeaderLen : off+need : off+need],
		}, off + need, nil
	}

	if remaining < ExtendedHeaderLen {
		return View{}, off, &TruncatedError{Offset: off, Type: ExtendedMarker, Declared: ExtendedHeaderLen, Remaining: remaining}
	}
	typ := payload[off+2]
	need := ExtendedHeaderLen + int(binary.LittleEndian.Uint16(payload[off+3:off+5]))
	if need > remaining {
		return View{}, off, &TruncatedError{Offset: off, Type: typ, Declared: need, Remaining: remaining}
	}
	return View{
		Type:     typ,
		Extended: true,
		Offset:   off,
		Payload:  payload[off+ExtendedHeaderLen : off+need : off+need],
	}, off + need, nil
}

// Walk calls fn for each record in order and stops at the first decode error
// or the first error returned by fn.
func Walk(payload []byte, fn func(View) error) error {
	for off := 0; off < len(payload); {
		v, next, err := Next(payload, off)
		if err != nil {
			return err
		}
		if err := fn(v); err != nil {
			return err
		}
		off = next
	}
	return nil
}

// Parse appends every record of payload to dst. Passing a dst with spare
// capacity keeps decoding allocation free.
func Parse(dst []View, payload []byte) ([]View, error) {
	for off := 0; off < len(payload); {
		v, next, err := Next(payload, off)
		if err != nil {
			return dst, err
		}
		dst = append(dst, v)
		off = next
	}
	return dst, nil
}

// Count returns the number of well-formed records, or the first decode error.
func Count(payload []byte) (int, error) {
	n := 0
	err := Walk(payload, func(View) error {
		n++
		return nil
	})
	return n, err
}

// EncodedLen is the size Put will write for a payload of n bytes.
func EncodedLen(n int) int {
	if n > MaxStandardPayload {
		return ExtendedHeaderLen + n
	}
	return StandardHeaderLen + n
}

// PutStandard writes a standard record into dst and returns the bytes written.
func PutStandard(dst []byte, typ uint8, payload []byte) (int, error) {
	if typ == ExtendedMarker {
		return 0, ErrReservedType
	}
	if typ == 0 {
		return 0, ErrZeroType
	}
	if len(payload) > MaxStandardPayload {
		return 0, fmt.Errorf("tlv: standard payload of %d bytes exceeds %d", len(payload), MaxStandardPayload)
	}
	n := StandardHeaderLen + len(payload)
	if len(dst) < n {
		return 0, ErrShortBuffer
	}
	dst[0] = typ
	dst[1] = uint8(len(payload))
	copy(dst[StandardHeaderLen:], payload)
	return n, nil
}

// PutExtended writes an extended record into dst and returns the bytes written.
func PutExtended(dst []byte, typ uint8, payload []byte) (int, error) {
	if len(payload) > MaxPayload {
		return 0, ErrPayloadTooLarge
	}
	n := ExtendedHeaderLen + len(payload)
	if len(dst) < n {
		return 0, ErrShortBuffer
	}
	dst[0] = ExtendedMarker
	dst[1] = 0
	dst[2] = typ
	binary.LittleEndian.PutUint16(dst[3:5], uint16(len(payload)))
	copy(dst[ExtendedHeaderLen:], payload)
	return n, nil
}

// Put picks the standard form when the payload fits, extended otherwise.
// Type 255 always uses the extended form.
func Put(dst []byte, typ uint8, payload []byte) (int, error) {
	if len(payload) > MaxStandardPayload || typ == ExtendedMarker {
		return PutExtended(dst, typ, payload)
	}
	return PutStandard(dst, typ, payload)
}

// Append is Put into a growing slice.
func Append(dst []byte, typ uint8, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayload {
		return dst, ErrPayloadTooLarge
	}
	start := len(dst)
	need := EncodedLen(len(payload))
	if typ == ExtendedMarker {
		need = ExtendedHeaderLen + len(payload)
	}
	dst = append(dst, make([]byte, need)...)
	n, err := Put(dst[start:], typ, payload)
	return dst[:start+n], err
}
