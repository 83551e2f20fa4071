package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

var RedisClient *redis.Client

// InitRedis initializes the Redis client
func InitRedis() error {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://redis:6379" // Default Redis address for Docker
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return fmt.Errorf("failed to parse Redis URL: %v", err)
	}

	RedisClient = redis.NewClient(opt)

	// Test the connection
	ctx := context.Background()
	_, err = RedisClient.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %v", err)
	}

	return nil
}

// SetDriverAvailability mirrors a driver's availability flag with a TTL so
// stale presence ages out even if the disconnect path never ran
func SetDriverAvailability(ctx context.Context, driverID uint, isAvailable bool) error {
	key := fmt.Sprintf("driver:availability:%d", driverID)
	value := "false"
	if isAvailable {
		value = "true"
	}
	return RedisClient.Set(ctx, key, value, time.Hour).Err()
}

// GetDriverAvailability retrieves driver availability status
func GetDriverAvailability(ctx context.Context, driverID uint) (bool, error) {
	key := fmt.Sprintf("driver:availability:%d", driverID)
	result, err := RedisClient.Get(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return result == "true", nil
}

// CacheCityResults stores autocomplete results for a query prefix
func CacheCityResults(ctx context.Context, query string, results interface{}) error {
	data, err := json.Marshal(results)
	if err != nil {
		return err
	}
	key := fmt.Sprintf("cities:autocomplete:%s", query)
	return RedisClient.Set(ctx, key, data, 15*time.Minute).Err()
}

// GetCachedCityResults retrieves cached autocomplete results, if any
func GetCachedCityResults(ctx context.Context, query string, results interface{}) (bool, error) {
	key := fmt.Sprintf("cities:autocomplete:%s", query)
	data, err := RedisClient.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, err
	}
	return true, json.Unmarshal([]byte(data), results)
}
