package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ConnectRedis opens the Redis client that carries refresh fan-out traffic.
// The service only publishes and subscribes, so the pool is kept small.
// An empty URL disables Redis and returns a nil client.
func ConnectRedis(ctx context.Context, url, clientName string) (*redis.Client, error) {
	if url == "" {
		return nil, nil
	}

	options, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if name := redisClientName(clientName); name != "" {
		options.ClientName = name
	}
	if options.PoolSize == 0 {
		options.PoolSize = 4
	}
	options.DialTimeout = 5 * time.Second

	client := redis.NewClient(options)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return client, nil
}

// redisClientName makes an application name acceptable to CLIENT SETNAME,
// which rejects spaces.
func redisClientName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "-")
}
