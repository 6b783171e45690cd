package platform

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/kabsikabs/integration-core/internal/config"
)

// NewRedisClient builds the Redis client used by the cache manager and
// connection cache, sharing configuration with the sibling listeners
// service (LISTENERS_REDIS_* env vars) per the USE_LOCAL_REDIS switch.
func NewRedisClient(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	opts := &redis.Options{
		DB:           cfg.ListenersRedisDB,
		DialTimeout:  5,
		ReadTimeout:  5,
		WriteTimeout: 5,
	}

	if cfg.UseLocalRedis {
		opts.Addr = "127.0.0.1:6379"
	} else {
		opts.Addr = fmt.Sprintf("%s:%d", cfg.ListenersRedisHost, cfg.ListenersRedisPort)
		opts.Password = cfg.ListenersRedisPass
		if cfg.ListenersRedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	return client, nil
}
