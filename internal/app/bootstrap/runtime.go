// Package bootstrap builds the optional runtime pieces main needs, with
// graceful degradation when an external service is missing.
package bootstrap

import (
	"context"
	"crypto/tls"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/morelandlabs/dentalagent/internal/agent"
	appconfig "github.com/morelandlabs/dentalagent/internal/config"
	"github.com/morelandlabs/dentalagent/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		return nil
	}
	return client
}

// BuildSessionStore returns the dialogue session store: Redis-backed when
// enabled and reachable, otherwise in-memory. Sessions in memory do not
// survive a restart, which is acceptable for single-instance deployments.
func BuildSessionStore(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) agent.SessionStore {
	ttl := 30 * time.Minute
	if cfg != nil && cfg.SessionTTL > 0 {
		ttl = cfg.SessionTTL
	}
	if logger == nil {
		logger = logging.Default()
	}

	if cfg != nil && cfg.UseRedisSessions {
		if client := BuildRedisClient(ctx, cfg, logger, true); client != nil {
			logger.Info("using redis session store", "addr", cfg.RedisAddr, "ttl", ttl)
			return agent.NewRedisSessionStore(client, ttl)
		}
		logger.Warn("redis sessions requested but unavailable; falling back to memory")
	}

	logger.Info("using in-memory session store", "ttl", ttl)
	return agent.NewMemorySessionStore(ttl)
}
