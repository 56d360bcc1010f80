package bufpool

import (
	"bytes"
	"errors"
	"sync"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danmuck/tlvwire/internal/protocol"
)

func TestBufferCapacityLimits(t *testing.T) {
	w := New().Worker(1)
	report := func(n int) func([]byte) (int, int, error) {
		return func(buf []byte) (int, int, error) { return n, n, nil }
	}

	_, err := WithSignalBuffer(w, report(SignalSize+1))
	var tooLarge *MessageTooLargeError
	require.True(t, errors.As(err, &tooLarge), "got %v", err)
	assert.Equal(t, SignalSize+1, tooLarge.MessageSize)
	assert.Equal(t, SignalSize, tooLarge.BufferSize)
	assert.Equal(t, TierSignal, tooLarge.Tier)

	got, err := WithHotPathBuffer(w, report(SignalSize+1))
	require.NoError(t, err)
	assert.Equal(t, SignalSize+1, got)

	_, err = WithHotPathBuffer(w, report(HotPathSize+1))
	require.True(t, errors.As(err, &tooLarge))

	_, err = WithValidationBuffer(w, report(ValidationSize))
	require.NoError(t, err)
}

func TestReentrantBorrowFailsFast(t *testing.T) {
	w := New().Worker(1)
	var inner error
	_, err := WithHotPathBuffer(w, func(buf []byte) (struct{}, int, error) {
		assert.True(t, w.Borrowed(TierHotPath))
		_, inner = WithHotPathBuffer(w, func(buf []byte) (struct{}, int, error) {
			return struct{}{}, 0, nil
		})
		_, sigErr := WithSignalBuffer(w, func(buf []byte) (struct{}, int, error) {
			return struct{}{}, 0, nil
		})
		assert.NoError(t, sigErr, "other tiers stay available")
		return struct{}{}, 0, nil
	})
	require.NoError(t, err)
	assert.ErrorIs(t, inner, ErrAlreadyBorrowed)
	assert.False(t, w.Borrowed(TierHotPath), "guard released after callback")
}

func TestGuardReleasedAfterPanic(t *testing.T) {
	w := New().Worker(1)
	func() {
		defer func() { _ = recover() }()
		_, _ = WithSignalBuffer(w, func(buf []byte) (int, int, error) {
			panic("boom")
		})
	}()
	assert.False(t, w.Borrowed(TierSignal))
}

func TestCallbackErrorsAreWrapped(t *testing.T) {
	w := New().Worker(1)
	cause := errors.New("encode failed")
	_, err := WithHotPathBuffer(w, func(buf []byte) (int, int, error) {
		return 0, 0, cause
	})
	var ce *ConstructionError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, TierHotPath, ce.Tier)
	assert.ErrorIs(t, err, cause)
}

func TestBuffersAreAlignedAndZeroed(t *testing.T) {
	w := New().Worker(7)
	for _, tier := range []Tier{TierHotPath, TierSignal, TierValidation} {
		b := w.buffer(tier)
		assert.Len(t, b.data, tier.Size())
		assert.Zero(t, uintptr(unsafe.Pointer(&b.data[0]))%8, tier.String())
		assert.True(t, bytes.Equal(b.data, make([]byte, tier.Size())), "%s not zero filled", tier)
	}
}

func TestValidationNamespaceIsSeparate(t *testing.T) {
	w := New().Worker(1)
	_, err := WithHotPathBuffer(w, func(buf []byte) (int, int, error) {
		copy(buf, "hot")
		return 0, 3, nil
	})
	require.NoError(t, err)
	_, err = WithValidationBuffer(w, func(buf []byte) (int, int, error) {
		for i := range buf {
			buf[i] = 0xFF
		}
		return 0, len(buf), nil
	})
	require.NoError(t, err)

	_, err = WithHotPathBuffer(w, func(buf []byte) (int, int, error) {
		assert.Equal(t, "hot", string(buf[:3]))
		assert.Zero(t, buf[3])
		return 0, 0, nil
	})
	require.NoError(t, err)
}

func TestWorkersAreIsolatedAndReused(t *testing.T) {
	p := New()
	a := p.Worker(1)
	b := p.Worker(2)
	assert.Same(t, a, p.Worker(1))
	assert.NotSame(t, a.buffer(TierHotPath), b.buffer(TierHotPath))
	assert.Equal(t, []int{1, 2}, p.IDs())

	p.Release(1)
	assert.Equal(t, []int{2}, p.IDs())
	assert.NotSame(t, a, p.Worker(1))
}

func TestConcurrentWorkersDoNotContend(t *testing.T) {
	p := New()
	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for id := 0; id < 16; id++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			w := p.Worker(id)
			for i := 0; i < 200; i++ {
				_, err := WithHotPathBuffer(w, func(buf []byte) (int, int, error) {
					buf[0] = byte(id)
					if buf[0] != byte(id) {
						return 0, 0, errors.New("buffer shared across workers")
					}
					return 0, 1, nil
				})
				if err != nil {
					errs <- err
					return
				}
			}
		}(id)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}
}

func TestBuildWithSizeHint(t *testing.T) {
	var failures []string
	p := New(WithFailureHook(func(tier Tier, reason string) {
		failures = append(failures, tier.String()+":"+reason)
	}))
	w := p.Worker(1)

	capacity := func(buf []byte) (int, int, error) { return len(buf), 10, nil }
	got, err := BuildWithSizeHint(w, 100, capacity)
	require.NoError(t, err)
	assert.Equal(t, SignalSize, got)

	got, err = BuildWithSizeHint(w, SizeHintThreshold+1, capacity)
	require.NoError(t, err)
	assert.Equal(t, HotPathSize, got)

	// estimate was wrong: signal overflows, hot path succeeds
	got, err = BuildWithSizeHint(w, 10, func(buf []byte) (int, int, error) { return len(buf), 600, nil })
	require.NoError(t, err)
	assert.Equal(t, HotPathSize, got)
	assert.Equal(t, []string{"signal:message_too_large"}, failures)

	_, err = BuildWithSizeHint(w, 10, func(buf []byte) (int, int, error) { return 0, 2000, nil })
	var tooLarge *MessageTooLargeError
	require.True(t, errors.As(err, &tooLarge))
	assert.Equal(t, HotPathSize, tooLarge.BufferSize)
}

func TestBuildWithSizeHintRetriesBuilderOverflow(t *testing.T) {
	w := New().Worker(1)
	payload := bytes.Repeat([]byte{1}, 250)
	b := protocol.NewBuilder(protocol.DomainMarketData, protocol.SourceBinanceCollector).
		Sequence(1).Timestamp(1).
		Add(protocol.TypeOrderBook, payload).
		Add(protocol.TypeOrderBook, payload)

	msg, err := BuildWithSizeHint(w, 100, func(buf []byte) ([]byte, int, error) {
		n, err := b.EncodeInto(buf)
		if err != nil {
			return nil, 0, err
		}
		return bytes.Clone(buf[:n]), n, nil
	})
	require.NoError(t, err)
	assert.Len(t, msg, b.Size())
	require.NoError(t, protocol.VerifyChecksum(msg))
}

func TestHotPathEncodeDoesNotAllocate(t *testing.T) {
	p := New()
	w := p.Worker(1)
	raw := protocol.Trade{Price: 4512345000000, Volume: 150000000}.Bytes()
	b := protocol.NewBuilder(protocol.DomainMarketData, protocol.SourcePolygonCollector)
	var seq uint64
	encode := func(buf []byte) (int, int, error) {
		seq++
		b.Reset(protocol.DomainMarketData, protocol.SourcePolygonCollector)
		n, err := b.Sequence(seq).Timestamp(1).Add(protocol.TypeTrade, raw[:]).EncodeInto(buf)
		return n, n, err
	}
	// first use creates the worker's buffers
	_, err := WithHotPathBuffer(w, encode)
	require.NoError(t, err)

	allocs := testing.AllocsPerRun(200, func() {
		if _, err := WithHotPathBuffer(w, encode); err != nil {
			t.Fatal(err)
		}
	})
	assert.Zero(t, allocs, "WithHotPathBuffer")

	allocs = testing.AllocsPerRun(200, func() {
		if _, err := BuildWithSizeHint(w, 64, encode); err != nil {
			t.Fatal(err)
		}
	})
	assert.Zero(t, allocs, "BuildWithSizeHint")

	allocs = testing.AllocsPerRun(200, func() {
		if p.Worker(1) != w {
			t.Fatal("worker changed")
		}
	})
	assert.Zero(t, allocs, "Pool.Worker lookup")
}
