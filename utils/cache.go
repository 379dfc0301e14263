// File: utils/cache.go
package utils

import (
	"context"
	"log"
	"time"

	"meetsync/config"

	"github.com/go-redis/redis/v8"
)

var (
	// SessionCacheClient holds active negotiation sessions.
	SessionCacheClient *redis.Client
	// LockCacheClient holds booking idempotency keys.
	LockCacheClient *redis.Client
)

// InitSessionCache initializes the Redis client backing negotiation sessions.
func InitSessionCache() {
	SessionCacheClient = redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisSessionDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := SessionCacheClient.Ping(ctx).Result(); err != nil {
		log.Fatalf("Failed to connect to Redis (Sessions): %v", err)
	}
}

// GetSessionCacheClient returns the session cache client.
func GetSessionCacheClient() *redis.Client {
	if SessionCacheClient == nil {
		InitSessionCache()
	}
	return SessionCacheClient
}

// InitLockCache initializes the Redis client for booking idempotency keys.
func InitLockCache() {
	LockCacheClient = redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisLockDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := LockCacheClient.Ping(ctx).Result(); err != nil {
		log.Fatalf("Failed to connect to Redis (Locks): %v", err)
	}
}

// GetLockCacheClient returns the idempotency lock client.
func GetLockCacheClient() *redis.Client {
	if LockCacheClient == nil {
		InitLockCache()
	}
	return LockCacheClient
}

// InitRedis initializes all Redis clients up front.
func InitRedis() {
	InitSessionCache()
	InitLockCache()
}
