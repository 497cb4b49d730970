//go:build integration

package infra

import (
	"context"
	"testing"
	"time"

	"candycost/internal/dto"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func TestProductCache_SetSkipsAfterInvalidate(t *testing.T) {
	ctx := context.Background()
	rdC, err := tcRedis.RunContainer(ctx, testcontainers.WithImage("redis:7-alpine"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdC.Terminate(ctx) })

	url, err := rdC.ConnectionString(ctx)
	require.NoError(t, err)
	rdb, err := NewRedis(url)
	require.NoError(t, err)

	cache := NewProductCache(rdb, nil, time.Minute)
	id := uuid.New()

	_, gen, ok := cache.Get(ctx, id)
	require.False(t, ok)
	assert.Equal(t, "0", gen)

	// Invalidated between the read and the fill: the stale fill is dropped.
	cache.Invalidate(ctx, id)
	cache.Set(ctx, &dto.ProductResponse{ID: id.String(), Name: "stale"}, gen)
	_, gen, ok = cache.Get(ctx, id)
	require.False(t, ok)
	assert.Equal(t, "1", gen)

	cache.Set(ctx, &dto.ProductResponse{ID: id.String(), Name: "fresh"}, gen)
	got, _, ok := cache.Get(ctx, id)
	require.True(t, ok)
	assert.Equal(t, "fresh", got.Name)

	ttl, err := rdb.TTL(ctx, genKey(id)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Hour)
}
