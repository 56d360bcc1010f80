// Package discovery resolves pools the validator has not seen before.
//
// The validator pushes unknown pool addresses into a Queue from any number
// of goroutines. A single Worker drains the matching Receiver, resolves
// each pool through a Resolver and marks it known.
package discovery

import (
	"context"
	"errors"
	"sync"

	"github.com/danmuck/tlvwire/internal/protocol/instrument"
)

var ErrReceiverClosed = errors.New("discovery: receiver closed")

type state struct {
	mu     sync.Mutex
	items  []instrument.Address
	closed bool
	notify chan struct{}
}

// Queue is the producer half. Push never blocks.
type Queue struct {
	s *state
}

// Receiver is the single consumer half.
type Receiver struct {
	s *state
}

func NewQueue() (*Queue, *Receiver) {
	s := &state{notify: make(chan struct{}, 1)}
	return &Queue{s: s}, &Receiver{s: s}
}

// Push appends addr. It fails only once the receiver has been closed.
func (q *Queue) Push(addr instrument.Address) error {
	q.s.mu.Lock()
	if q.s.closed {
		q.s.mu.Unlock()
		return ErrReceiverClosed
	}
	q.s.items = append(q.s.items, addr)
	q.s.mu.Unlock()

	select {
	case q.s.notify <- struct{}{}:
	default:
	}
	return nil
}

// Len is the number of addresses waiting.
func (q *Queue) Len() int {
	q.s.mu.Lock()
	defer q.s.mu.Unlock()
	return len(q.s.items)
}

// Recv blocks until an address is available, ctx is done or the receiver is closed.
func (r *Receiver) Recv(ctx context.Context) (instrument.Address, error) {
	for {
		r.s.mu.Lock()
		if r.s.closed {
			r.s.mu.Unlock()
			return instrument.Address{}, ErrReceiverClosed
		}
		if len(r.s.items) > 0 {
			addr := r.s.items[0]
			r.s.items = r.s.items[1:]
			r.s.mu.Unlock()
			return addr, nil
		}
		r.s.mu.Unlock()

		select {
		case <-ctx.Done():
			return instrument.Address{}, ctx.Err()
		case <-r.s.notify:
		}
	}
}

// Close drops pending addresses; later pushes fail with ErrReceiverClosed.
func (r *Receiver) Close() {
	r.s.mu.Lock()
	r.s.closed = true
	r.s.items = nil
	r.s.mu.Unlock()

	select {
	case r.s.notify <- struct{}{}:
	default:
	}
}
