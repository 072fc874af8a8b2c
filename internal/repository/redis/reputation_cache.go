package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"risk-service/internal/client"
	"risk-service/internal/reputation"
	"risk-service/internal/util"
)

const reputationPrefix = "reputation:"

// ReputationCache keeps recent reputation verdicts so repeated observations
// of the same address skip the paid external lookup.
type ReputationCache struct {
	client *client.RedisClient
	ttl    time.Duration
}

func NewReputationCache(redisClient *client.RedisClient, ttl time.Duration) *ReputationCache {
	return &ReputationCache{
		client: redisClient,
		ttl:    ttl,
	}
}

// Get returns the cached verdict for an address, or (nil, nil) on a miss.
// Cache failures are returned so the caller can decide to fall through to the
// provider; they are never fatal.
func (c *ReputationCache) Get(ctx context.Context, address string) (*reputation.Result, error) {
	raw, err := c.client.GetOrNil(ctx, reputationPrefix+address)
	if err != nil {
		return nil, fmt.Errorf("failed to read reputation cache: %w", err)
	}
	if raw == "" {
		return nil, nil
	}

	var result reputation.Result
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		// Stale or corrupt entry: treat as a miss and drop it.
		_ = c.client.Del(ctx, reputationPrefix+address)
		return nil, nil
	}

	util.Debug("Reputation cache hit", zap.String("address", address))
	return &result, nil
}

// Set stores the verdict with the configured TTL.
func (c *ReputationCache) Set(ctx context.Context, address string, result *reputation.Result) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal reputation result: %w", err)
	}

	if err := c.client.Set(ctx, reputationPrefix+address, string(raw), c.ttl); err != nil {
		return fmt.Errorf("failed to write reputation cache: %w", err)
	}
	return nil
}
