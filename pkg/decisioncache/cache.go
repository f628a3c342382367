// Package decisioncache caches duplicate decisions in Redis keyed by tenant
// and record fingerprint. The cache is best effort: a nil client or a Redis
// failure degrades to a miss, never to an error.
package decisioncache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/redis"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

const DefaultTTL = 24 * time.Hour

type Cache struct {
	client *redis.Client
	logger ectologger.Logger
	ttl    time.Duration
}

func NewCache(client *redis.Client, logger ectologger.Logger, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		client: client,
		logger: logger,
		ttl:    ttl,
	}
}

func cacheKey(tenantID, fp string) string {
	return fmt.Sprintf("dedupe:%s:%s", tenantID, fp)
}

// Get returns the cached decision for the fingerprint, or nil on a miss
func (c *Cache) Get(ctx context.Context, tenantID, fp string) (*models.DuplicateDecision, error) {
	ctx, span := tracing.StartSpan(ctx, "decisioncache.Cache.Get")
	defer span.End()

	if c.client == nil || fp == "" {
		metrics.RecordCacheLookup("miss")
		return nil, nil
	}

	raw, err := c.client.Get(ctx, cacheKey(tenantID, fp))
	if err != nil {
		if !redis.IsNotFound(err) {
			c.logger.WithContext(ctx).WithError(err).Warn("Failed to read decision cache")
		}
		metrics.RecordCacheLookup("miss")
		return nil, nil
	}

	var decision models.DuplicateDecision
	if err := json.Unmarshal([]byte(raw), &decision); err != nil {
		c.logger.WithContext(ctx).WithError(err).Warn("Discarding unreadable cached decision")
		metrics.RecordCacheLookup("miss")
		return nil, nil
	}

	metrics.RecordCacheLookup("hit")
	return &decision, nil
}

// Set stores the decision under the fingerprint for the configured TTL
func (c *Cache) Set(ctx context.Context, tenantID, fp string, decision *models.DuplicateDecision) error {
	ctx, span := tracing.StartSpan(ctx, "decisioncache.Cache.Set")
	defer span.End()

	if c.client == nil || fp == "" || decision == nil {
		return nil
	}

	payload, err := json.Marshal(decision)
	if err != nil {
		return fmt.Errorf("failed to marshal duplicate decision: %w", err)
	}

	if err := c.client.Set(ctx, cacheKey(tenantID, fp), payload, c.ttl); err != nil {
		c.logger.WithContext(ctx).WithError(err).Warn("Failed to write decision cache")
	}
	return nil
}

// Invalidate drops the cached decision for the fingerprint. Merges and
// record updates call this so stale decisions never outlive the data they
// were computed from.
func (c *Cache) Invalidate(ctx context.Context, tenantID, fp string) error {
	ctx, span := tracing.StartSpan(ctx, "decisioncache.Cache.Invalidate")
	defer span.End()

	if c.client == nil || fp == "" {
		return nil
	}
	return c.client.Del(ctx, cacheKey(tenantID, fp))
}
