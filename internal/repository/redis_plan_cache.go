package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"documind-api/internal/domain"

	"github.com/redis/go-redis/v9"
)

const (
	planCacheKey  = "billing:plans:active"
	basePlanTTL   = 10 * time.Minute
	planTTLJitter = 2 * time.Minute
)

// RedisPlanCache implements domain.PlanCache. A miss returns nil plans and no error.
type RedisPlanCache struct {
	client *redis.Client
	logger domain.Logger
}

func NewRedisPlanCache(client *redis.Client, logger domain.Logger) *RedisPlanCache {
	return &RedisPlanCache{
		client: client,
		logger: logger,
	}
}

func (c *RedisPlanCache) GetPlans(ctx context.Context) ([]*domain.Plan, error) {
	raw, err := c.client.Get(ctx, planCacheKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get plans from cache: %w", err)
	}

	var plans []*domain.Plan
	if err := json.Unmarshal(raw, &plans); err != nil {
		return nil, fmt.Errorf("failed to decode cached plans: %w", err)
	}
	return plans, nil
}

func (c *RedisPlanCache) SetPlans(ctx context.Context, plans []*domain.Plan) error {
	raw, err := json.Marshal(plans)
	if err != nil {
		return fmt.Errorf("failed to encode plans: %w", err)
	}

	ttl := basePlanTTL + time.Duration(rand.Int64N(int64(planTTLJitter)))
	if err := c.client.Set(ctx, planCacheKey, raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache plans: %w", err)
	}
	return nil
}

func (c *RedisPlanCache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, planCacheKey).Err(); err != nil {
		return fmt.Errorf("failed to invalidate plan cache: %w", err)
	}
	return nil
}
