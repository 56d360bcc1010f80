// Package validation applies per-domain policy to decoded messages.
//
// Checks run in a fixed order: header, checksum, timestamp, sequence, size,
// then TLV parsing with the domain's type range and the optional schema
// size check. The domain's Level decides which of them run:
//
//	performance  header, size, tlv
//	standard     + checksum, + sequence when enforce_monotonic is set
//	audit        every check
//
// A message naming a pool the validator has not seen is still returned. The
// pool is queued for discovery and an *UnknownPoolError is returned with it;
// see IsAdvisory.
package validation

import (
	"bytes"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/tlvwire/internal/protocol"
	"github.com/danmuck/tlvwire/internal/protocol/instrument"
	"github.com/danmuck/tlvwire/internal/protocol/schema"
	"github.com/danmuck/tlvwire/internal/protocol/tlv"
)

// PoolQueue receives unknown pool addresses. Push must not block.
type PoolQueue interface {
	Push(addr instrument.Address) error
}

// Observer is told about every validation outcome. err is nil on success
// and may be advisory.
type Observer interface {
	MessageValidated(domain protocol.RelayDomain, level Level, elapsed time.Duration, err error)
	PoolQueued(addr instrument.Address)
}

// Message is a validated message. Payload and Records alias the input.
type Message struct {
	Header  protocol.Header
	Payload []byte
	Records []tlv.View
	Level   Level
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

type Option func(*Validator)

// WithDiscovery attaches the queue that unknown pools are pushed to. Without
// one the pool hook is inactive.
func WithDiscovery(q PoolQueue) Option {
	return func(v *Validator) { v.queue = q }
}

func WithObserver(o Observer) Option {
	return func(v *Validator) { v.observer = o }
}

// WithClock replaces time.Now for timestamp checks.
func WithClock(now func() time.Time) Option {
	return func(v *Validator) { v.now = now }
}

// WithKnownPools seeds the known pool set.
func WithKnownPools(addrs ...instrument.Address) Option {
	return func(v *Validator) {
		for _, a := range addrs {
			v.known[a] = struct{}{}
		}
	}
}

type Validator struct {
	cfg       Config
	sequences *SequenceTracker
	queue     PoolQueue
	observer  Observer
	now       func() time.Time

	poolMu sync.RWMutex
	known  map[instrument.Address]struct{}
}

func New(cfg Config, opts ...Option) *Validator {
	cfg = cfg.Clone()
	v := &Validator{
		cfg:       cfg,
		sequences: NewSequenceTracker(cfg.Sequence.MaxTracked),
		now:       time.Now,
		known:     make(map[instrument.Address]struct{}),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func (v *Validator) Config() Config { return v.cfg.Clone() }

func (v *Validator) Sequences() *SequenceTracker { return v.sequences }

// LevelFor returns the level applied to messages in domain d.
func (v *Validator) LevelFor(d protocol.RelayDomain) Level {
	r, _ := v.cfg.Rule(d)
	return r.Level
}

// ValidateMessage runs the domain's checks over b, a complete message. On
// success, or with an advisory error, the returned Message aliases b.
func (v *Validator) ValidateMessage(b []byte) (Message, error) {
	start := time.Now()
	msg, err := v.validate(b)
	if v.observer != nil {
		v.observer.MessageValidated(msg.Header.RelayDomain, msg.Level, time.Since(start), err)
	}
	if err != nil && !IsAdvisory(err) {
		log.Debug().Err(err).Str("kind", KindOf(err).String()).Msg("validation.ValidateMessage rejected")
		return Message{Header: msg.Header, Level: msg.Level}, err
	}
	return msg, err
}

func (v *Validator) validate(b []byte) (Message, error) {
	h, err := protocol.DecodeHeader(b)
	if err != nil {
		return Message{}, err
	}
	msg := Message{Header: h, Level: v.LevelFor(h.RelayDomain)}
	if err := protocol.CheckHeader(h); err != nil {
		return msg, err
	}
	payload := b[protocol.HeaderSize:]
	if uint64(len(payload)) != uint64(h.PayloadSize) {
		return msg, &protocol.PayloadSizeMismatchError{Declared: h.PayloadSize, Actual: len(payload)}
	}
	msg.Payload = payload

	if msg.Level >= LevelStandard {
		if err := v.validateChecksum(b); err != nil {
			return msg, err
		}
	}
	if msg.Level == LevelAudit {
		if err := v.ValidateTimestamp(h.TimestampNs); err != nil {
			return msg, err
		}
	}
	if msg.Level == LevelAudit || (msg.Level == LevelStandard && v.cfg.Sequence.EnforceMonotonic) {
		if err := v.ValidateSequence(uint8(h.Source), h.Sequence); err != nil {
			return msg, err
		}
	}
	if max := v.cfg.MaxMessageSize(h.RelayDomain); int(h.PayloadSize) > max {
		return msg, &MessageTooLargeError{Domain: h.RelayDomain, Size: int(h.PayloadSize), MaxSize: max}
	}

	msg.Records, err = v.ParseTLVZeroCopy(payload, h.RelayDomain)
	if err != nil {
		return msg, err
	}
	if v.cfg.StrictSizes {
		for _, r := range msg.Records {
			if err := schema.ValidateSize(r); err != nil {
				return msg, err
			}
		}
	}
	return msg, v.checkPools(msg.Records)
}

// validateChecksum is skipped when enforcement is off or the sender left the
// checksum field zero.
func (v *Validator) validateChecksum(b []byte) error {
	if !v.cfg.Timestamp.Enforce || protocol.StoredChecksum(b) == 0 {
		return nil
	}
	return protocol.VerifyChecksum(b)
}

// ParseTLVZeroCopy walks payload and rejects any record whose type falls
// outside domain's configured range. Views alias payload.
func (v *Validator) ParseTLVZeroCopy(payload []byte, domain protocol.RelayDomain) ([]tlv.View, error) {
	rule, _ := v.cfg.Rule(domain)
	records := make([]tlv.View, 0, 4)
	for off := 0; off < len(payload); {
		view, next, err := tlv.Next(payload, off)
		if err != nil {
			return nil, err
		}
		if !rule.Allows(view.Type) {
			return nil, &InvalidTLVForDomainError{Type: view.Type, Domain: domain, Offset: off}
		}
		records = append(records, view)
		off = next
	}
	return records, nil
}

// ValidateTimestamp rejects timestamps beyond now+MaxFutureDrift or before
// now-MaxAge. It is a no-op when enforcement is off.
func (v *Validator) ValidateTimestamp(ts uint64) error {
	if !v.cfg.Timestamp.Enforce {
		return nil
	}
	now := uint64(v.now().UnixNano())
	drift := uint64(v.cfg.Timestamp.MaxFutureDrift)
	age := uint64(v.cfg.Timestamp.MaxAge)

	if ts > now+drift {
		return &InvalidTimestampError{
			Reason:      "timestamp too far in future (>" + v.cfg.Timestamp.MaxFutureDrift.String() + ")",
			Timestamp:   ts,
			CurrentTime: now,
		}
	}
	var floor uint64
	if now > age {
		floor = now - age
	}
	if ts < floor {
		return &InvalidTimestampError{
			Reason:      "timestamp too old (>" + v.cfg.Timestamp.MaxAge.String() + ")",
			Timestamp:   ts,
			CurrentTime: now,
		}
	}
	return nil
}

// ValidateSequence records seq for source, rejecting duplicates and gaps
// larger than the configured maximum.
func (v *Validator) ValidateSequence(source uint8, seq uint64) error {
	return v.sequences.Validate(source, seq, v.cfg.Sequence.MaxGap)
}

func (v *Validator) checkPools(records []tlv.View) error {
	if !v.cfg.PoolDiscovery.Enabled || v.queue == nil {
		return nil
	}
	var first *UnknownPoolError
	for _, r := range records {
		addr, ok := protocol.PoolAddress(r)
		if !ok || v.IsKnownPool(addr) {
			continue
		}
		if err := v.queue.Push(addr); err != nil {
			log.Error().Err(err).Str("pool", addr.String()).Msg("validation: pool discovery queue unavailable")
		} else if v.observer != nil {
			v.observer.PoolQueued(addr)
		}
		if first == nil {
			first = &UnknownPoolError{Pool: addr}
		}
		first.Queued++
	}
	if first == nil {
		return nil
	}
	return first
}

// AddKnownPool marks addr as resolved. It reports whether addr was new.
func (v *Validator) AddKnownPool(addr instrument.Address) bool {
	v.poolMu.Lock()
	defer v.poolMu.Unlock()
	if _, ok := v.known[addr]; ok {
		return false
	}
	v.known[addr] = struct{}{}
	return true
}

func (v *Validator) IsKnownPool(addr instrument.Address) bool {
	v.poolMu.RLock()
	_, ok := v.known[addr]
	v.poolMu.RUnlock()
	return ok
}

// KnownPools returns the known set in byte order.
func (v *Validator) KnownPools() []instrument.Address {
	v.poolMu.RLock()
	out := make([]instrument.Address, 0, len(v.known))
	for a := range v.known {
		out = append(out, a)
	}
	v.poolMu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i][:], out[j][:]) < 0 })
	return out
}
