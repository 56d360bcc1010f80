package discovery

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danmuck/tlvwire/internal/protocol/instrument"
	"github.com/danmuck/tlvwire/internal/testutil/testlog"
)

func addr(b byte) instrument.Address {
	var a instrument.Address
	for i := range a {
		a[i] = b
	}
	return a
}

func TestQueueIsFIFO(t *testing.T) {
	q, rx := NewQueue()
	for i := byte(1); i <= 3; i++ {
		require.NoError(t, q.Push(addr(i)))
	}
	assert.Equal(t, 3, q.Len())

	ctx := context.Background()
	for i := byte(1); i <= 3; i++ {
		got, err := rx.Recv(ctx)
		require.NoError(t, err)
		assert.Equal(t, addr(i), got)
	}
	assert.Zero(t, q.Len())
}

func TestQueuePushAfterCloseFails(t *testing.T) {
	q, rx := NewQueue()
	require.NoError(t, q.Push(addr(1)))
	rx.Close()
	assert.ErrorIs(t, q.Push(addr(2)), ErrReceiverClosed)

	_, err := rx.Recv(context.Background())
	assert.ErrorIs(t, err, ErrReceiverClosed)
}

func TestRecvHonoursContext(t *testing.T) {
	_, rx := NewQueue()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := rx.Recv(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRecvWakesOnPush(t *testing.T) {
	q, rx := NewQueue()
	done := make(chan instrument.Address, 1)
	go func() {
		a, err := rx.Recv(context.Background())
		if err == nil {
			done <- a
		}
	}()
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, q.Push(addr(9)))
	select {
	case got := <-done:
		assert.Equal(t, addr(9), got)
	case <-time.After(time.Second):
		t.Fatal("receiver was not woken")
	}
}

func TestConcurrentProducers(t *testing.T) {
	q, rx := NewQueue()
	var wg sync.WaitGroup
	for p := 0; p < 8; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				_ = q.Push(addr(byte(p)))
			}
		}(p)
	}
	wg.Wait()

	counts := map[instrument.Address]int{}
	ctx := context.Background()
	for i := 0; i < 800; i++ {
		a, err := rx.Recv(ctx)
		require.NoError(t, err)
		counts[a]++
	}
	for p := 0; p < 8; p++ {
		assert.Equal(t, 100, counts[addr(byte(p))])
	}
}

type fakeMarker struct {
	mu    sync.Mutex
	known map[instrument.Address]bool
}

func newFakeMarker() *fakeMarker { return &fakeMarker{known: map[instrument.Address]bool{}} }

func (m *fakeMarker) AddKnownPool(a instrument.Address) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.known[a] {
		return false
	}
	m.known[a] = true
	return true
}

func (m *fakeMarker) IsKnownPool(a instrument.Address) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.known[a]
}

type fakeResolver struct {
	mu       sync.Mutex
	failures map[instrument.Address]int
	missing  map[instrument.Address]bool
	calls    map[instrument.Address]int
}

func (r *fakeResolver) Resolve(ctx context.Context, a instrument.Address) (PoolInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls[a]++
	if r.missing[a] {
		return PoolInfo{}, ErrPoolNotFound
	}
	if r.failures[a] > 0 {
		r.failures[a]--
		return PoolInfo{}, errors.New("rpc timeout")
	}
	return PoolInfo{Pool: a, Venue: instrument.VenueUniswapV3, FeeBps: 30}, nil
}

func runWorker(t *testing.T, res Resolver, marker Marker, attempts int) (*Queue, *Worker, chan string) {
	t.Helper()
	q, rx := NewQueue()
	cfg := WorkerConfig{
		RequestTimeout: time.Second,
		Backoff:        BackoffConfig{MaxAttempts: attempts, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2},
	}
	w := NewWorker(rx, res, marker, cfg)
	results := make(chan string, 16)
	w.OnResult(func(_ instrument.Address, r string) { results <- r })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})
	return q, w, results
}

func waitResult(t *testing.T, ch chan string) string {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("no discovery result")
		return ""
	}
}

func TestWorkerResolvesAndMarks(t *testing.T) {
	testlog.Start(t)
	res := &fakeResolver{failures: map[instrument.Address]int{addr(1): 2}, missing: map[instrument.Address]bool{}, calls: map[instrument.Address]int{}}
	marker := newFakeMarker()
	q, w, results := runWorker(t, res, marker, 3)

	require.NoError(t, q.Push(addr(1)))
	assert.Equal(t, "resolved", waitResult(t, results))
	assert.True(t, marker.IsKnownPool(addr(1)))

	info, ok := w.Pool(addr(1))
	require.True(t, ok)
	assert.Equal(t, uint32(30), info.FeeBps)
	assert.Len(t, w.Pools(), 1)

	require.NoError(t, q.Push(addr(1)))
	assert.Equal(t, "skipped", waitResult(t, results))
	res.mu.Lock()
	assert.Equal(t, 3, res.calls[addr(1)])
	res.mu.Unlock()
}

func TestWorkerGivesUpAfterMaxAttempts(t *testing.T) {
	testlog.Start(t)
	res := &fakeResolver{failures: map[instrument.Address]int{addr(2): 10}, missing: map[instrument.Address]bool{}, calls: map[instrument.Address]int{}}
	marker := newFakeMarker()
	q, _, results := runWorker(t, res, marker, 2)

	require.NoError(t, q.Push(addr(2)))
	assert.Equal(t, "failed", waitResult(t, results))
	assert.False(t, marker.IsKnownPool(addr(2)))
	res.mu.Lock()
	assert.Equal(t, 2, res.calls[addr(2)])
	res.mu.Unlock()
}

func TestWorkerDoesNotRetryNotFound(t *testing.T) {
	testlog.Start(t)
	res := &fakeResolver{failures: map[instrument.Address]int{}, missing: map[instrument.Address]bool{addr(3): true}, calls: map[instrument.Address]int{}}
	q, _, results := runWorker(t, res, newFakeMarker(), 5)

	require.NoError(t, q.Push(addr(3)))
	assert.Equal(t, "not_found", waitResult(t, results))
	res.mu.Lock()
	assert.Equal(t, 1, res.calls[addr(3)])
	res.mu.Unlock()
}

func TestWorkerClosesReceiverOnExit(t *testing.T) {
	q, rx := NewQueue()
	w := NewWorker(rx, &fakeResolver{}, newFakeMarker(), DefaultWorkerConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, w.Run(ctx))
	assert.ErrorIs(t, q.Push(addr(1)), ErrReceiverClosed)
}

func TestReplyCodec(t *testing.T) {
	pool := addr(0xAB)
	table := map[instrument.Address]PoolInfo{
		pool: {Pool: pool, Token0: addr(1), Token1: addr(2), Venue: instrument.VenueUniswapV2, FeeBps: 30},
	}

	got, err := decodeReply(pool, encodeReply([]byte(`{"pool":"`+pool.String()+`"}`), table))
	require.NoError(t, err)
	assert.Equal(t, table[pool], got)

	other := addr(0xCD)
	_, err = decodeReply(other, encodeReply([]byte(`{"pool":"`+other.String()+`"}`), table))
	assert.ErrorIs(t, err, ErrPoolNotFound)

	_, err = decodeReply(pool, encodeReply([]byte(`{"pool":"nope"}`), table))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad pool")

	_, err = decodeReply(other, encodeReply([]byte(`{"pool":"`+pool.String()+`"}`), table))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "asked for")
}

func TestBackoffDelay(t *testing.T) {
	cfg := BackoffConfig{InitialDelay: 100 * time.Millisecond, MaxDelay: time.Second, Multiplier: 2}
	assert.Equal(t, 100*time.Millisecond, cfg.Delay(1, nil))
	assert.Equal(t, 200*time.Millisecond, cfg.Delay(2, nil))
	assert.Equal(t, 400*time.Millisecond, cfg.Delay(3, nil))
	assert.Equal(t, time.Second, cfg.Delay(10, nil))

	cfg.Multiplier = 0.5
	assert.Equal(t, 100*time.Millisecond, cfg.Delay(4, nil), "multiplier below 1 is clamped")

	cfg = BackoffConfig{InitialDelay: 100 * time.Millisecond, Multiplier: 1, Jitter: true}
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 50; i++ {
		d := cfg.Delay(1, rng)
		assert.GreaterOrEqual(t, d, 50*time.Millisecond)
		assert.Less(t, d, 150*time.Millisecond)
	}
	assert.Zero(t, BackoffConfig{}.Delay(3, nil))
	assert.Equal(t, 1, BackoffConfig{}.attempts())
}
