package discovery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/tlvwire/internal/protocol/instrument"
)

// PoolInfo is what a resolver knows about a pool.
type PoolInfo struct {
	Pool   instrument.Address
	Token0 instrument.Address
	Token1 instrument.Address
	Venue  instrument.Venue
	FeeBps uint32
}

// Resolver looks up pool metadata. ErrPoolNotFound is not retried.
type Resolver interface {
	Resolve(ctx context.Context, pool instrument.Address) (PoolInfo, error)
}

var ErrPoolNotFound = errors.New("discovery: pool not found")

// Marker records resolved pools; *validation.Validator satisfies it.
type Marker interface {
	AddKnownPool(addr instrument.Address) bool
	IsKnownPool(addr instrument.Address) bool
}

// ResultHook observes each finished resolution. result is "resolved",
// "not_found", "failed" or "skipped".
type ResultHook func(pool instrument.Address, result string)

type WorkerConfig struct {
	RequestTimeout time.Duration
	Backoff        BackoffConfig
}

func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{RequestTimeout: 5 * time.Second, Backoff: DefaultBackoffConfig()}
}

type Worker struct {
	rx       *Receiver
	resolver Resolver
	marker   Marker
	cfg      WorkerConfig
	onResult ResultHook
	onInfo   func(PoolInfo)
	rng      *rand.Rand

	mu    sync.RWMutex
	pools map[instrument.Address]PoolInfo
}

func NewWorker(rx *Receiver, resolver Resolver, marker Marker, cfg WorkerConfig) *Worker {
	return &Worker{
		rx:       rx,
		resolver: resolver,
		marker:   marker,
		cfg:      cfg,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		pools:    make(map[instrument.Address]PoolInfo),
	}
}

func (w *Worker) OnResult(fn ResultHook) { w.onResult = fn }

// OnResolved is called with the metadata of every newly resolved pool,
// e.g. to persist it.
func (w *Worker) OnResolved(fn func(PoolInfo)) { w.onInfo = fn }

// Preload records pools resolved by an earlier run and marks them known.
func (w *Worker) Preload(infos []PoolInfo) {
	w.mu.Lock()
	for _, info := range infos {
		w.pools[info.Pool] = info
	}
	w.mu.Unlock()
	for _, info := range infos {
		w.marker.AddKnownPool(info.Pool)
	}
}

// Run drains the receiver until ctx is done. It closes the receiver on
// return so producers see ErrReceiverClosed instead of queueing forever.
func (w *Worker) Run(ctx context.Context) error {
	defer w.rx.Close()
	log.Info().Msg("discovery worker started")
	for {
		addr, err := w.rx.Recv(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				log.Info().Msg("discovery worker stopped")
				return nil
			}
			return err
		}
		w.handle(ctx, addr)
	}
}

func (w *Worker) handle(ctx context.Context, addr instrument.Address) {
	if w.marker.IsKnownPool(addr) {
		w.report(addr, "skipped")
		return
	}
	info, err := w.resolve(ctx, addr)
	switch {
	case err == nil:
		w.mu.Lock()
		w.pools[addr] = info
		w.mu.Unlock()
		w.marker.AddKnownPool(addr)
		if w.onInfo != nil {
			w.onInfo(info)
		}
		log.Info().Str("pool", addr.String()).Str("venue", info.Venue.String()).Msg("discovery: pool resolved")
		w.report(addr, "resolved")
	case errors.Is(err, ErrPoolNotFound):
		log.Warn().Str("pool", addr.String()).Msg("discovery: pool not found")
		w.report(addr, "not_found")
	case ctx.Err() != nil:
		// shutting down
	default:
		log.Error().Err(err).Str("pool", addr.String()).Msg("discovery: pool resolution failed")
		w.report(addr, "failed")
	}
}

func (w *Worker) resolve(ctx context.Context, addr instrument.Address) (PoolInfo, error) {
	var lastErr error
	n := w.cfg.Backoff.attempts()
	for attempt := 1; attempt <= n; attempt++ {
		info, err := w.resolveOnce(ctx, addr)
		if err == nil {
			return info, nil
		}
		if errors.Is(err, ErrPoolNotFound) {
			return PoolInfo{}, err
		}
		lastErr = err
		if attempt == n {
			break
		}
		log.Debug().Err(err).Str("pool", addr.String()).Int("attempt", attempt).Msg("discovery: retrying")
		t := time.NewTimer(w.cfg.Backoff.Delay(attempt, w.rng))
		select {
		case <-ctx.Done():
			t.Stop()
			return PoolInfo{}, ctx.Err()
		case <-t.C:
		}
	}
	return PoolInfo{}, fmt.Errorf("discovery: resolve %s after %d attempts: %w", addr, n, lastErr)
}

func (w *Worker) resolveOnce(ctx context.Context, addr instrument.Address) (PoolInfo, error) {
	if w.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.cfg.RequestTimeout)
		defer cancel()
	}
	return w.resolver.Resolve(ctx, addr)
}

func (w *Worker) report(addr instrument.Address, result string) {
	if w.onResult != nil {
		w.onResult(addr, result)
	}
}

// Pool returns the resolved metadata for addr.
func (w *Worker) Pool(addr instrument.Address) (PoolInfo, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	info, ok := w.pools[addr]
	return info, ok
}

// Pools returns every resolved pool ordered by address.
func (w *Worker) Pools() []PoolInfo {
	w.mu.RLock()
	out := make([]PoolInfo, 0, len(w.pools))
	for _, info := range w.pools {
		out = append(out, info)
	}
	w.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i].Pool[:], out[j].Pool[:]) < 0 })
	return out
}
