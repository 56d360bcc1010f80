package validation

import (
	"errors"
	"fmt"

	"github.com/danmuck/tlvwire/internal/bufpool"
	"github.com/danmuck/tlvwire/internal/protocol"
	"github.com/danmuck/tlvwire/internal/protocol/instrument"
	"github.com/danmuck/tlvwire/internal/protocol/schema"
	"github.com/danmuck/tlvwire/internal/protocol/tlv"
)

// Kind groups rejections by how callers should react to them.
type Kind uint8

const (
	KindUnknown Kind = iota
	// KindProtocol: malformed structure. Fatal for the message.
	KindProtocol
	// KindIntegrity: checksum mismatch.
	KindIntegrity
	// KindOrdering: gap or duplicate. Fatal for the message, not the stream.
	KindOrdering
	// KindTemporal: timestamp outside the accepted window.
	KindTemporal
	// KindCapacity: message or buffer limits.
	KindCapacity
	// KindDiscovery: unknown pool. Advisory.
	KindDiscovery
)

func (k Kind) String() string {
	switch k {
	case KindProtocol:
		return "protocol"
	case KindIntegrity:
		return "integrity"
	case KindOrdering:
		return "ordering"
	case KindTemporal:
		return "temporal"
	case KindCapacity:
		return "capacity"
	case KindDiscovery:
		return "discovery"
	default:
		return "unknown"
	}
}

type DuplicateSequenceError struct {
	Source   uint8
	Sequence uint64
}

func (e *DuplicateSequenceError) Error() string {
	return fmt.Sprintf("validation: duplicate sequence %d from source %d", e.Sequence, e.Source)
}

type SequenceGapError struct {
	Source   uint8
	Expected uint64
	Actual   uint64
	Gap      uint64
}

func (e *SequenceGapError) Error() string {
	return fmt.Sprintf("validation: sequence gap for source %d: expected %d, got %d (gap %d)",
		e.Source, e.Expected, e.Actual, e.Gap)
}

type InvalidTimestampError struct {
	Reason      string
	Timestamp   uint64
	CurrentTime uint64
}

func (e *InvalidTimestampError) Error() string {
	return fmt.Sprintf("validation: invalid timestamp %d (now %d): %s", e.Timestamp, e.CurrentTime, e.Reason)
}

type MessageTooLargeError struct {
	Domain  protocol.RelayDomain
	Size    int
	MaxSize int
}

func (e *MessageTooLargeError) Error() string {
	return fmt.Sprintf("validation: %s payload of %d bytes exceeds limit %d", e.Domain, e.Size, e.MaxSize)
}

type InvalidTLVForDomainError struct {
	Type   uint8
	Domain protocol.RelayDomain
	Offset int
}

func (e *InvalidTLVForDomainError) Error() string {
	return fmt.Sprintf("validation: tlv type %d at offset %d not valid for domain %s", e.Type, e.Offset, e.Domain)
}

// UnknownPoolError is advisory: the message passed every other check and
// the pools were queued for discovery.
type UnknownPoolError struct {
	Pool   instrument.Address // first unknown pool in the message
	Queued int                // unknown pool records in the message
}

func (e *UnknownPoolError) Error() string {
	return fmt.Sprintf("validation: unknown pool %s queued for discovery", e.Pool)
}

// IsAdvisory reports whether err leaves the returned message usable.
func IsAdvisory(err error) bool {
	var up *UnknownPoolError
	return errors.As(err, &up)
}

// KindOf classifies any error produced by the codec, buffer pool or validator.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var (
		checksum  *protocol.ChecksumError
		dup       *DuplicateSequenceError
		gap       *SequenceGapError
		ts        *InvalidTimestampError
		tooLarge  *MessageTooLargeError
		bufLarge  *bufpool.MessageTooLargeError
		unknown   *UnknownPoolError
		magic     *protocol.InvalidMagicError
		domain    *protocol.InvalidDomainError
		source    *protocol.InvalidSourceError
		small     *protocol.MessageTooSmallError
		mismatch  *protocol.PayloadSizeMismatchError
		trunc     *tlv.TruncatedError
		forDomain *InvalidTLVForDomainError
		schemaErr schema.ValidationError
	)
	switch {
	case errors.As(err, &checksum):
		return KindIntegrity
	case errors.As(err, &dup), errors.As(err, &gap):
		return KindOrdering
	case errors.As(err, &ts):
		return KindTemporal
	case errors.As(err, &tooLarge), errors.As(err, &bufLarge), errors.Is(err, bufpool.ErrAlreadyBorrowed):
		return KindCapacity
	case errors.As(err, &unknown):
		return KindDiscovery
	case errors.As(err, &magic), errors.As(err, &domain), errors.As(err, &source),
		errors.As(err, &small), errors.As(err, &mismatch), errors.As(err, &trunc),
		errors.As(err, &forDomain), errors.As(err, &schemaErr):
		return KindProtocol
	default:
		return KindUnknown
	}
}
