package protocol

import (
	"encoding/binary"
	"math"
	"time"

	"github.com/danmuck/tlvwire/internal/protocol/tlv"
)

// PutHeader writes h into dst[:HeaderSize] exactly as given, checksum included.
func PutHeader(dst []byte, h Header) error {
	if len(dst) < HeaderSize {
		return ErrBufferTooSmall
	}
	binary.LittleEndian.PutUint32(dst[0:4], h.Magic)
	dst[4] = h.Version
	dst[5] = h.MessageType
	dst[6] = uint8(h.RelayDomain)
	dst[7] = uint8(h.Source)
	binary.LittleEndian.PutUint64(dst[8:16], h.Sequence)
	binary.LittleEndian.PutUint64(dst[16:24], h.TimestampNs)
	binary.LittleEndian.PutUint32(dst[24:28], h.PayloadSize)
	binary.LittleEndian.PutUint32(dst[28:32], h.Checksum)
	return nil
}

// EncodeHeader serializes h and fills the checksum over the header and
// payload. h.Checksum is ignored.
func EncodeHeader(h Header, payload []byte) [HeaderSize]byte {
	var out [HeaderSize]byte
	h.Checksum = 0
	_ = PutHeader(out[:], h)
	sum := crc32Header(out[:])
	sum = crc32Update(sum, payload)
	binary.LittleEndian.PutUint32(out[ChecksumOffset:], sum)
	return out
}

type record struct {
	typ      uint8
	payload  []byte
	extended bool
}

// Builder assembles one message. It keeps references to the payloads passed
// to Add until the message is encoded. Reset allows reuse without
// reallocating the record list.
type Builder struct {
	domain      RelayDomain
	source      Source
	messageType uint8
	sequence    uint64
	timestampNs uint64
	records     []record
	payloadLen  int
	err         error
}

func NewBuilder(domain RelayDomain, source Source) *Builder {
	return &Builder{domain: domain, source: source, records: make([]record, 0, 4)}
}

func (b *Builder) Reset(domain RelayDomain, source Source) {
	b.domain = domain
	b.source = source
	b.messageType = 0
	b.sequence = 0
	b.timestampNs = 0
	b.records = b.records[:0]
	b.payloadLen = 0
	b.err = nil
}

func (b *Builder) Sequence(seq uint64) *Builder {
	b.sequence = seq
	return b
}

// Timestamp sets the event time. Zero means "now" at encode time.
func (b *Builder) Timestamp(ns uint64) *Builder {
	b.timestampNs = ns
	return b
}

// MessageType overrides the header dispatch type. Defaults to the first record's type.
func (b *Builder) MessageType(t uint8) *Builder {
	b.messageType = t
	return b
}

// Add appends a record, extended only when the payload needs it.
func (b *Builder) Add(typ uint8, payload []byte) *Builder {
	return b.add(typ, payload, len(payload) > tlv.MaxStandardPayload || typ == tlv.ExtendedMarker)
}

// AddExtended forces the extended form.
func (b *Builder) AddExtended(typ uint8, payload []byte) *Builder {
	return b.add(typ, payload, true)
}

func (b *Builder) add(typ uint8, payload []byte, extended bool) *Builder {
	if b.err != nil {
		return b
	}
	if len(payload) > tlv.MaxPayload {
		b.err = tlv.ErrPayloadTooLarge
		return b
	}
	b.records = append(b.records, record{typ: typ, payload: payload, extended: extended})
	if extended {
		b.payloadLen += tlv.ExtendedHeaderLen + len(payload)
	} else {
		b.payloadLen += tlv.StandardHeaderLen + len(payload)
	}
	return b
}

// Size is the total encoded message length.
func (b *Builder) Size() int { return HeaderSize + b.payloadLen }

// EncodeInto writes the message at dst[0:] and returns the bytes used.
// It does not allocate.
func (b *Builder) EncodeInto(dst []byte) (int, error) {
	if b.err != nil {
		return 0, b.err
	}
	if uint64(b.payloadLen) > math.MaxUint32 {
		return 0, ErrPayloadTooLarge
	}
	size := b.Size()
	if len(dst) < size {
		return 0, ErrBufferTooSmall
	}

	off := HeaderSize
	for _, r := range b.records {
		var n int
		var err error
		if r.extended {
			n, err = tlv.PutExtended(dst[off:], r.typ, r.payload)
		} else {
			n, err = tlv.PutStandard(dst[off:], r.typ, r.payload)
		}
		if err != nil {
			return 0, err
		}
		off += n
	}

	msgType := b.messageType
	if msgType == 0 && len(b.records) > 0 {
		msgType = b.records[0].typ
	}
	ts := b.timestampNs
	if ts == 0 {
		ts = uint64(time.Now().UnixNano())
	}
	if err := PutHeader(dst, Header{
		Magic:       Magic,
		Version:     Version,
		MessageType: msgType,
		RelayDomain: b.domain,
		Source:      b.source,
		Sequence:    b.sequence,
		TimestampNs: ts,
		PayloadSize: uint32(b.payloadLen),
	}); err != nil {
		return 0, err
	}
	if err := EmbedChecksum(dst[:size]); err != nil {
		return 0, err
	}
	return size, nil
}

// Encode returns the message in a freshly allocated slice.
func (b *Builder) Encode() ([]byte, error) {
	if b.err != nil {
		return nil, b.err
	}
	buf := make([]byte, b.Size())
	n, err := b.EncodeInto(buf)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}
