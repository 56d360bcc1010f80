package inspect

import (
	"fmt"

	"github.com/danmuck/tlvwire/internal/protocol"
	"github.com/danmuck/tlvwire/internal/protocol/schema"
	"github.com/danmuck/tlvwire/internal/validation"
)

// Report is the JSON rendering of one validation outcome.
type Report struct {
	Valid    bool           `json:"valid"`
	Advisory bool           `json:"advisory,omitempty"`
	Error    string         `json:"error,omitempty"`
	Kind     string         `json:"kind,omitempty"`
	Level    string         `json:"level,omitempty"`
	Header   *HeaderReport  `json:"header,omitempty"`
	Records  []RecordReport `json:"records,omitempty"`
}

type HeaderReport struct {
	Domain      string `json:"domain"`
	Source      string `json:"source"`
	MessageType uint8  `json:"message_type"`
	Sequence    uint64 `json:"sequence"`
	TimestampNs uint64 `json:"timestamp_ns"`
	PayloadSize uint32 `json:"payload_size"`
	Checksum    string `json:"checksum"`
}

type RecordReport struct {
	Type     uint8        `json:"type"`
	Name     string       `json:"name"`
	Extended bool         `json:"extended,omitempty"`
	Offset   int          `json:"offset"`
	Size     int          `json:"payload_size"`
	Trade    *TradeReport `json:"trade,omitempty"`
	Pool     string       `json:"pool,omitempty"`
}

type TradeReport struct {
	Price  string `json:"price"`
	Volume string `json:"volume"`
}

// NewReport describes msg and err as returned by Validator.ValidateMessage.
// The header is included whenever it decoded with the right magic.
func NewReport(msg validation.Message, err error) Report {
	r := Report{Valid: err == nil || validation.IsAdvisory(err)}
	if err != nil {
		r.Error = err.Error()
		r.Advisory = validation.IsAdvisory(err)
		r.Kind = validation.KindOf(err).String()
	}
	h := msg.Header
	if h.Magic != protocol.Magic {
		return r
	}
	r.Level = msg.Level.String()
	r.Header = &HeaderReport{
		Domain:      h.RelayDomain.String(),
		Source:      h.Source.String(),
		MessageType: h.MessageType,
		Sequence:    h.Sequence,
		TimestampNs: h.TimestampNs,
		PayloadSize: h.PayloadSize,
		Checksum:    fmt.Sprintf("0x%08x", h.Checksum),
	}
	for _, v := range msg.Records {
		rec := RecordReport{
			Type:     v.Type,
			Name:     schema.Name(v.Type),
			Extended: v.Extended,
			Offset:   v.Offset,
			Size:     len(v.Payload),
		}
		if v.Type == protocol.TypeTrade {
			if t, err := protocol.DecodeTrade(v.Payload); err == nil {
				rec.Trade = &TradeReport{Price: t.PriceDecimal().String(), Volume: t.VolumeDecimal().String()}
			}
		}
		if addr, ok := protocol.PoolAddress(v); ok {
			rec.Pool = addr.String()
		}
		r.Records = append(r.Records, rec)
	}
	return r
}
