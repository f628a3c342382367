package decisioncache

import (
	"context"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/models"
)

func TestCacheWithoutClientDegradesToMiss(t *testing.T) {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	cache := NewCache(nil, logger, time.Hour)
	ctx := context.Background()

	decision, err := cache.Get(ctx, "tenant-1", "fp-1")
	require.NoError(t, err)
	assert.Nil(t, decision)

	err = cache.Set(ctx, "tenant-1", "fp-1", &models.DuplicateDecision{IsDuplicate: true})
	require.NoError(t, err)

	err = cache.Invalidate(ctx, "tenant-1", "fp-1")
	require.NoError(t, err)
}

func TestCacheEmptyFingerprintNeverCached(t *testing.T) {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	cache := NewCache(nil, logger, 0)
	ctx := context.Background()

	assert.Equal(t, DefaultTTL, cache.ttl)

	decision, err := cache.Get(ctx, "tenant-1", "")
	require.NoError(t, err)
	assert.Nil(t, decision)
}

func TestCacheKeyIsTenantScoped(t *testing.T) {
	assert.Equal(t, "dedupe:tenant-1:abc123", cacheKey("tenant-1", "abc123"))
	assert.NotEqual(t, cacheKey("tenant-1", "abc123"), cacheKey("tenant-2", "abc123"))
}
