package utils

import (
	"context"       // Context for Redis operations
	"encoding/json" // JSON encoding/decoding
	"strconv"       // Generation formatting
	"time"          // Time durations

	"github.com/redis/go-redis/v9" // Redis client
)

// GetCache retrieves a value from Redis and unmarshals it into dest
func GetCache(ctx context.Context, rdb *redis.Client, key string, dest any) (bool, error) {
	val, err := rdb.Get(ctx, key).Result() // Get value from Redis
	if err == redis.Nil {
		return false, nil // Key does not exist
	} else if err != nil {
		return false, err // Other Redis error
	}
	return true, json.Unmarshal([]byte(val), dest) // Unmarshal JSON into dest
}

// SetCache sets a value in Redis with a specified TTL
func SetCache(ctx context.Context, rdb *redis.Client, key string, value any, ttl time.Duration) error {
	b, err := json.Marshal(value) // Marshal value to JSON
	if err != nil {
		return err // Return error if marshaling fails
	}
	return rdb.Set(ctx, key, b, ttl).Err() // Set value in Redis with TTL
}

// CacheGeneration returns the current generation stored at key ("0" when unset).
// Cache keys built from it go stale as soon as BumpCacheGeneration runs.
func CacheGeneration(ctx context.Context, rdb *redis.Client, key string) (string, error) {
	gen, err := rdb.Get(ctx, key).Int64() // Read the counter
	if err == redis.Nil {
		return "0", nil // Never bumped
	} else if err != nil {
		return "", err // Other Redis error
	}
	return strconv.FormatInt(gen, 10), nil
}

// BumpCacheGeneration invalidates every cache entry keyed on the generation at key
func BumpCacheGeneration(ctx context.Context, rdb *redis.Client, key string) error {
	return rdb.Incr(ctx, key).Err() // Increment the counter
}
