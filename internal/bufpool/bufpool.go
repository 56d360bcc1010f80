// Package bufpool hands hot-path producers reusable scratch buffers so
// message construction does not allocate.
//
// Go has no thread-local storage, so buffers are owned by a Worker obtained
// once per producer goroutine from a shared Pool. A Worker must not be used
// from more than one goroutine at a time; the borrow guard only protects
// against re-entrant use from inside a callback.
package bufpool

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/danmuck/tlvwire/internal/protocol"
	"github.com/danmuck/tlvwire/internal/protocol/tlv"
)

const (
	HotPathSize    = 1024
	SignalSize     = 512
	ValidationSize = 512

	// SizeHintThreshold is the largest estimate routed to the signal buffer first.
	SizeHintThreshold = 400
)

var ErrAlreadyBorrowed = errors.New("bufpool: buffer already borrowed")

// Tier names one of the three per-worker buffers.
type Tier uint8

const (
	TierHotPath Tier = iota
	TierSignal
	TierValidation
)

func (t Tier) String() string {
	switch t {
	case TierHotPath:
		return "hot_path"
	case TierSignal:
		return "signal"
	case TierValidation:
		return "validation"
	default:
		return fmt.Sprintf("tier_%d", uint8(t))
	}
}

// Size is the capacity of the tier's buffer.
func (t Tier) Size() int {
	switch t {
	case TierHotPath:
		return HotPathSize
	case TierSignal:
		return SignalSize
	default:
		return ValidationSize
	}
}

// MessageTooLargeError means the callback reported more bytes than the buffer holds.
type MessageTooLargeError struct {
	Tier        Tier
	MessageSize int
	BufferSize  int
}

func (e *MessageTooLargeError) Error() string {
	return fmt.Sprintf("bufpool: %s message of %d bytes exceeds buffer of %d", e.Tier, e.MessageSize, e.BufferSize)
}

// ConstructionError wraps an error returned by the caller's callback.
type ConstructionError struct {
	Tier Tier
	Err  error
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("bufpool: %s construction failed: %v", e.Tier, e.Err)
}

func (e *ConstructionError) Unwrap() error { return e.Err }

type buffer struct {
	borrowed atomic.Bool
	data     []byte
}

// newBuffer returns a zeroed buffer whose first byte is 8-byte aligned.
func newBuffer(size int) *buffer {
	words := make([]uint64, (size+7)/8)
	return &buffer{data: unsafe.Slice((*byte)(unsafe.Pointer(&words[0])), size)}
}

// FailureHook observes rejected borrows. reason is one of "already_borrowed",
// "message_too_large" or "construction".
type FailureHook func(tier Tier, reason string)

// Worker owns one buffer per tier.
type Worker struct {
	id         int
	hotPath    *buffer
	signal     *buffer
	validation *buffer
	onFailure  FailureHook
}

func (w *Worker) ID() int { return w.id }

func (w *Worker) buffer(t Tier) *buffer {
	switch t {
	case TierHotPath:
		return w.hotPath
	case TierSignal:
		return w.signal
	default:
		return w.validation
	}
}

func (w *Worker) fail(t Tier, reason string) {
	if w.onFailure != nil {
		w.onFailure(t, reason)
	}
}

// Borrowed reports whether the tier's buffer is checked out.
func (w *Worker) Borrowed(t Tier) bool {
	return w.buffer(t).borrowed.Load()
}

type Option func(*Pool)

func WithFailureHook(fn FailureHook) Option {
	return func(p *Pool) { p.onFailure = fn }
}

// Pool maps worker ids to their buffers. Workers are created lazily.
type Pool struct {
	mu        sync.RWMutex
	workers   map[int]*Worker
	onFailure FailureHook
}

func New(opts ...Option) *Pool {
	p := &Pool{workers: make(map[int]*Worker)}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Worker returns the buffers for id, creating them on first use.
func (p *Pool) Worker(id int) *Worker {
	p.mu.RLock()
	w, ok := p.workers[id]
	p.mu.RUnlock()
	if ok {
		return w
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if w, ok = p.workers[id]; ok {
		return w
	}
	w = &Worker{
		id:         id,
		hotPath:    newBuffer(HotPathSize),
		signal:     newBuffer(SignalSize),
		validation: newBuffer(ValidationSize),
		onFailure:  p.onFailure,
	}
	p.workers[id] = w
	return w
}

// Release drops a worker's buffers when its goroutine exits.
func (p *Pool) Release(id int) {
	p.mu.Lock()
	delete(p.workers, id)
	p.mu.Unlock()
}

// IDs returns the live worker ids in ascending order.
func (p *Pool) IDs() []int {
	p.mu.RLock()
	out := make([]int, 0, len(p.workers))
	for id := range p.workers {
		out = append(out, id)
	}
	p.mu.RUnlock()
	sort.Ints(out)
	return out
}

// with runs fn on the tier's buffer. fn writes from offset 0 and returns its
// result plus the number of bytes used.
func with[T any](w *Worker, t Tier, fn func(buf []byte) (T, int, error)) (T, error) {
	var zero T
	b := w.buffer(t)
	if !b.borrowed.CompareAndSwap(false, true) {
		w.fail(t, "already_borrowed")
		return zero, ErrAlreadyBorrowed
	}
	defer b.borrowed.Store(false)

	v, n, err := fn(b.data)
	if err != nil {
		w.fail(t, "construction")
		return zero, &ConstructionError{Tier: t, Err: err}
	}
	if n > len(b.data) || n < 0 {
		w.fail(t, "message_too_large")
		return zero, &MessageTooLargeError{Tier: t, MessageSize: n, BufferSize: len(b.data)}
	}
	return v, nil
}

func WithHotPathBuffer[T any](w *Worker, fn func(buf []byte) (T, int, error)) (T, error) {
	return with(w, TierHotPath, fn)
}

func WithSignalBuffer[T any](w *Worker, fn func(buf []byte) (T, int, error)) (T, error) {
	return with(w, TierSignal, fn)
}

// WithValidationBuffer uses a separate buffer so test and validation code
// never disturbs hot-path state.
func WithValidationBuffer[T any](w *Worker, fn func(buf []byte) (T, int, error)) (T, error) {
	return with(w, TierValidation, fn)
}

// BuildWithSizeHint tries the signal buffer for small estimates and retries
// on the hot-path buffer when the message turns out not to fit.
func BuildWithSizeHint[T any](w *Worker, estimated int, fn func(buf []byte) (T, int, error)) (T, error) {
	if estimated > SizeHintThreshold {
		return WithHotPathBuffer(w, fn)
	}
	v, err := WithSignalBuffer(w, fn)
	if err != nil && outgrew(err) {
		return WithHotPathBuffer(w, fn)
	}
	return v, err
}

func outgrew(err error) bool {
	var tooLarge *MessageTooLargeError
	if errors.As(err, &tooLarge) {
		return true
	}
	return errors.Is(err, protocol.ErrBufferTooSmall) || errors.Is(err, tlv.ErrShortBuffer)
}
