package redis

import (
	"context"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/user/price-intel/internal/entity"
	"github.com/user/price-intel/internal/repository"
)

type fakeCatalog struct {
	entries   []entity.SourceCatalogEntry
	activeHit int
	byIDHit   int
	failures  int
	successes int
}

func (f *fakeCatalog) GetAllActive(context.Context) ([]entity.SourceCatalogEntry, error) {
	f.activeHit++
	return f.entries, nil
}

func (f *fakeCatalog) GetByFirmID(_ context.Context, propFirmID string) (*entity.SourceCatalogEntry, error) {
	f.byIDHit++
	for i := range f.entries {
		if f.entries[i].PropFirmID == propFirmID {
			return &f.entries[i], nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeCatalog) Save(context.Context, *entity.SourceCatalogEntry) error { return nil }

func (f *fakeCatalog) RecordFailure(context.Context, string) error {
	f.failures++
	return nil
}

func (f *fakeCatalog) RecordSuccess(context.Context, string) error {
	f.successes++
	return nil
}

// unreachableClient points at a port nothing listens on, so every cache
// operation fails fast with a connection error.
func unreachableClient() *goredis.Client {
	return goredis.NewClient(&goredis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
}

func TestCatalogCache_DegradesToInnerOnCacheFailure(t *testing.T) {
	inner := &fakeCatalog{entries: []entity.SourceCatalogEntry{
		{PropFirmID: "apex", IsActive: true},
	}}
	cache := NewCatalogCache(inner, unreachableClient(), time.Minute, zap.NewNop())

	entries, err := cache.GetAllActive(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 1, inner.activeHit)

	entry, err := cache.GetByFirmID(context.Background(), "apex")
	require.NoError(t, err)
	assert.Equal(t, "apex", entry.PropFirmID)
	assert.Equal(t, 1, inner.byIDHit)
}

func TestCatalogCache_NotFoundPassesThrough(t *testing.T) {
	cache := NewCatalogCache(&fakeCatalog{}, unreachableClient(), time.Minute, zap.NewNop())

	_, err := cache.GetByFirmID(context.Background(), "ghost")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCatalogCache_WritesReachInnerDespiteCacheFailure(t *testing.T) {
	inner := &fakeCatalog{}
	cache := NewCatalogCache(inner, unreachableClient(), time.Minute, zap.NewNop())

	require.NoError(t, cache.RecordFailure(context.Background(), "apex"))
	require.NoError(t, cache.RecordSuccess(context.Background(), "apex"))
	assert.Equal(t, 1, inner.failures)
	assert.Equal(t, 1, inner.successes)
}
