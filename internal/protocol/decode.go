package protocol

import (
	"encoding/binary"

	"github.com/danmuck/tlvwire/internal/protocol/tlv"
)

// DecodeHeader reads the first 32 bytes of b. No field is checked; magic,
// domain and source are validated by CheckHeader.
func DecodeHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, &MessageTooSmallError{Size: len(b)}
	}
	return Header{
		Magic:       binary.LittleEndian.Uint32(b[0:4]),
		Version:     b[4],
		MessageType: b[5],
		RelayDomain: RelayDomain(b[6]),
		Source:      Source(b[7]),
		Sequence:    binary.LittleEndian.Uint64(b[8:16]),
		TimestampNs: binary.LittleEndian.Uint64(b[16:24]),
		PayloadSize: binary.LittleEndian.Uint32(b[24:28]),
		Checksum:    binary.LittleEndian.Uint32(b[28:32]),
	}, nil
}

// Split decodes the header and returns the payload that follows it. The
// payload length must equal the header's payload_size.
func Split(b []byte) (Header, []byte, error) {
	h, err := DecodeHeader(b)
	if err != nil {
		return Header{}, nil, err
	}
	payload := b[HeaderSize:]
	if uint64(len(payload)) != uint64(h.PayloadSize) {
		return h, nil, &PayloadSizeMismatchError{Declared: h.PayloadSize, Actual: len(payload)}
	}
	return h, payload, nil
}

// Message is a decoded message. Payload and every record view alias the
// input buffer.
type Message struct {
	Header  Header
	Payload []byte
	Records []tlv.View
}

// DecodeMessage splits header and payload and walks the records. It applies
// no policy: checksum, domain and ordering checks belong to the validator.
func DecodeMessage(b []byte) (Message, error) {
	h, payload, err := Split(b)
	if err != nil {
		return Message{}, err
	}
	records, err := tlv.Parse(nil, payload)
	if err != nil {
		return Message{}, err
	}
	return Message{Header: h, Payload: payload, Records: records}, nil
}

// Find returns the first record of type t.
func (m Message) Find(t uint8) (tlv.View, bool) {
	for _, r := range m.Records {
		if r.Type == t {
			return r, true
		}
	}
	return tlv.View{}, false
}
