package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// SecretCache keeps gateway client secrets warm so idempotent checkout
// retries don't round-trip to the gateway for a secret that was just issued.
// Cache failures are never fatal; callers fall back to the gateway.
type SecretCache interface {
	Get(ctx context.Context, gatewayTxnID string) (string, bool)
	Set(ctx context.Context, gatewayTxnID, clientSecret string)
}

type redisSecretCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedisSecretCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *redisSecretCache {
	return &redisSecretCache{client: client, ttl: ttl, logger: logger}
}

func key(gatewayTxnID string) string {
	return "coursepay:client_secret:" + gatewayTxnID
}

func (c *redisSecretCache) Get(ctx context.Context, gatewayTxnID string) (string, bool) {
	val, err := c.client.Get(ctx, key(gatewayTxnID)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("Failed to read client secret from cache", zap.String("gateway_txn_id", gatewayTxnID), zap.Error(err))
		}
		return "", false
	}
	return val, true
}

func (c *redisSecretCache) Set(ctx context.Context, gatewayTxnID, clientSecret string) {
	if err := c.client.Set(ctx, key(gatewayTxnID), clientSecret, c.ttl).Err(); err != nil {
		c.logger.Warn("Failed to cache client secret", zap.String("gateway_txn_id", gatewayTxnID), zap.Error(err))
	}
}
