package poolstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danmuck/tlvwire/internal/discovery"
	"github.com/danmuck/tlvwire/internal/protocol/instrument"
)

func addr(b byte) instrument.Address {
	var a instrument.Address
	a[0], a[19] = b, b
	return a
}

func TestSaveLoadAndUpsert(t *testing.T) {
	ctx := context.Background()
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	b := discovery.PoolInfo{Pool: addr(2), Token0: addr(3), Token1: addr(4), Venue: instrument.VenueUniswapV3, FeeBps: 5}
	a := discovery.PoolInfo{Pool: addr(1), Token0: addr(3), Token1: addr(4), Venue: instrument.VenueUniswapV2, FeeBps: 30}
	require.NoError(t, s.Save(ctx, b))
	require.NoError(t, s.Save(ctx, a))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []discovery.PoolInfo{a, b}, got)

	b.FeeBps = 100
	require.NoError(t, s.Save(ctx, b))
	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint32(100), got[1].FeeBps)
}

func TestStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "pools.db")

	s, err := Open(path)
	require.NoError(t, err)
	info := discovery.PoolInfo{Pool: addr(9), Venue: instrument.VenueSushiSwap}
	require.NoError(t, s.Save(ctx, info))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []discovery.PoolInfo{info}, got)
}

func TestCorruptRowIsReported(t *testing.T) {
	ctx := context.Background()
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	_, err = s.db.Exec(`INSERT INTO pools VALUES ('zz', '', '', 0, 0, 0)`)
	require.NoError(t, err)
	_, err = s.Load(ctx)
	assert.Error(t, err)
}
