// Package frame reads and writes whole messages on byte streams.
//
// A stream is a plain concatenation of messages; the header's payload_size
// delimits each one.
package frame

import (
	"encoding/binary"
	"errors"
	"io"

	"github.com/danmuck/tlvwire/internal/protocol"
)

var (
	ErrShortHeader     = errors.New("frame: short fixed header")
	ErrPayloadTooLarge = errors.New("frame: payload too large")
	ErrTruncated       = errors.New("frame: truncated payload")
)

// Limits constrains frame decode/encode memory use.
type Limits struct {
	MaxPayloadBytes uint32
}

func DefaultLimits() Limits {
	return Limits{MaxPayloadBytes: 64 * 1024}
}

// ReadMessage reads one message and returns it in a fresh buffer.
func ReadMessage(r io.Reader, limits Limits) ([]byte, error) {
	return ReadMessageInto(r, nil, limits)
}

// ReadMessageInto reads one message, reusing buf when it is large enough.
// The magic is checked before the payload length is trusted so a
// desynchronised stream fails fast instead of allocating.
func ReadMessageInto(r io.Reader, buf []byte, limits Limits) ([]byte, error) {
	var fixed [protocol.HeaderSize]byte
	if _, err := io.ReadFull(r, fixed[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrShortHeader
		}
		return nil, err
	}

	if magic := binary.LittleEndian.Uint32(fixed[0:4]); magic != protocol.Magic {
		return nil, &protocol.InvalidMagicError{Expected: protocol.Magic, Actual: magic}
	}
	payloadLen := binary.LittleEndian.Uint32(fixed[24:28])
	if payloadLen > limits.MaxPayloadBytes {
		return nil, ErrPayloadTooLarge
	}

	total := protocol.HeaderSize + int(payloadLen)
	if cap(buf) < total {
		buf = make([]byte, total)
	}
	buf = buf[:total]
	copy(buf, fixed[:])
	if payloadLen > 0 {
		if _, err := io.ReadFull(r, buf[protocol.HeaderSize:]); err != nil {
			if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
				return nil, ErrTruncated
			}
			return nil, err
		}
	}
	return buf, nil
}

// WriteMessage writes msg after checking it is self-consistent.
func WriteMessage(w io.Writer, msg []byte, limits Limits) error {
	_, payload, err := protocol.Split(msg)
	if err != nil {
		return err
	}
	if uint64(len(payload)) > uint64(limits.MaxPayloadBytes) {
		return ErrPayloadTooLarge
	}
	_, err = w.Write(msg)
	return err
}
