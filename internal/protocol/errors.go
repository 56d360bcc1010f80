package protocol

import (
	"errors"
	"fmt"
	"math/bits"
)

var (
	ErrShortHeader      = errors.New("protocol: header needs 32 bytes")
	ErrPayloadTooLarge  = errors.New("protocol: payload exceeds u32 length")
	ErrBufferTooSmall   = errors.New("protocol: destination buffer too small")
	ErrChecksumMismatch = errors.New("protocol: checksum mismatch")
)

// InvalidMagicError carries a best-effort diagnosis of what produced the bytes.
type InvalidMagicError struct {
	Expected uint32
	Actual   uint32
}

func (e *InvalidMagicError) Diagnosis() string {
	switch {
	case e.Actual == 0:
		return "uninitialized buffer"
	case e.Actual == 0xFFFFFFFF:
		return "corrupted buffer or wrong endianness"
	case bits.ReverseBytes32(e.Actual) == e.Expected:
		return "byte order mismatch"
	default:
		return "data corruption or wrong protocol version"
	}
}

func (e *InvalidMagicError) Error() string {
	return fmt.Sprintf("protocol: invalid magic 0x%08x, want 0x%08x (%s)", e.Actual, e.Expected, e.Diagnosis())
}

type InvalidDomainError struct {
	Domain uint8
}

func (e *InvalidDomainError) Error() string {
	return fmt.Sprintf("protocol: invalid relay domain %d", e.Domain)
}

type InvalidSourceError struct {
	Source uint8
}

func (e *InvalidSourceError) Error() string {
	return fmt.Sprintf("protocol: invalid source %d, want 1..%d", e.Source, MaxSourceID)
}

type MessageTooSmallError struct {
	Size int
}

func (e *MessageTooSmallError) Error() string {
	return fmt.Sprintf("protocol: message of %d bytes is smaller than the %d byte header", e.Size, HeaderSize)
}

// PayloadSizeMismatchError means the header's payload_size disagrees with the
// bytes that actually follow it.
type PayloadSizeMismatchError struct {
	Declared uint32
	Actual   int
}

func (e *PayloadSizeMismatchError) Error() string {
	return fmt.Sprintf("protocol: payload_size %d does not match %d trailing bytes", e.Declared, e.Actual)
}

type PayloadLengthError struct {
	Type uint8
	Want int
	Got  int
}

func (e *PayloadLengthError) Error() string {
	return fmt.Sprintf("protocol: tlv type %d payload is %d bytes, want %d", e.Type, e.Got, e.Want)
}
