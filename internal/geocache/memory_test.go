package geocache_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/DeafMist/geonews/backend/internal/geocache"
	"github.com/DeafMist/geonews/backend/internal/models"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := geocache.NewMemoryStore(0)

	_, ok, err := s.Get(ctx, "salvador")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.Set(ctx, "salvador", geocache.Entry{Point: &models.Geopoint{Lat: -12.97, Lon: -38.5}}))
	e, ok, err := s.Get(ctx, "salvador")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, -12.97, e.Point.Lat)
}

func TestMemoryStoreKeepsNegativeEntries(t *testing.T) {
	ctx := context.Background()
	s := geocache.NewMemoryStore(0)

	require.NoError(t, s.Set(ctx, "atlantis", geocache.Entry{}))
	e, ok, err := s.Get(ctx, "atlantis")
	require.NoError(t, err)
	require.True(t, ok)
	require.Nil(t, e.Point)
}

func TestMemoryStoreCapacityEvictsOldest(t *testing.T) {
	ctx := context.Background()
	s := geocache.NewMemoryStore(1)

	require.NoError(t, s.Set(ctx, "first", geocache.Entry{}))
	require.NoError(t, s.Set(ctx, "second", geocache.Entry{}))

	_, ok, _ := s.Get(ctx, "first")
	require.False(t, ok)
	_, ok, _ = s.Get(ctx, "second")
	require.True(t, ok)
	require.Equal(t, 1, s.Len())
}

func TestMemoryStoreOverwriteDoesNotDuplicateOrder(t *testing.T) {
	ctx := context.Background()
	s := geocache.NewMemoryStore(2)

	require.NoError(t, s.Set(ctx, "a", geocache.Entry{}))
	require.NoError(t, s.Set(ctx, "a", geocache.Entry{Point: &models.Geopoint{Lat: 1}}))
	require.NoError(t, s.Set(ctx, "b", geocache.Entry{}))

	e, ok, _ := s.Get(ctx, "a")
	require.True(t, ok)
	require.Equal(t, 1.0, e.Point.Lat)
	require.Equal(t, 2, s.Len())
}

func TestUnboundedStoreLoadsEachQueryOnce(t *testing.T) {
	ctx := context.Background()
	c := geocache.New(geocache.NewMemoryStore(0), nil)
	calls := 0
	load := func() (*models.Geopoint, error) {
		calls++
		return nil, nil
	}

	for round := 0; round < 2; round++ {
		for i := 0; i < 5000; i++ {
			_, err := c.Lookup(ctx, fmt.Sprintf("place-%d", i), load)
			require.NoError(t, err)
		}
	}
	require.Equal(t, 5000, calls)
}

func TestBoundedStoreReloadsEvictedQuery(t *testing.T) {
	ctx := context.Background()
	c := geocache.New(geocache.NewMemoryStore(1), nil)
	calls := 0
	load := func() (*models.Geopoint, error) {
		calls++
		return nil, nil
	}

	for _, q := range []string{"lima", "rio", "lima"} {
		_, err := c.Lookup(ctx, q, load)
		require.NoError(t, err)
	}
	require.Equal(t, 3, calls)
}
