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

// DriverPosition is the last reported location of a driver, cached for
// geofence pre-checks and dashboard tracking.
type DriverPosition struct {
	Lat       float64  `json:"lat"`
	Lng       float64  `json:"lng"`
	AccuracyM *float64 `json:"accuracy,omitempty"`
	Updated   int64    `json:"updated"`
}

// SetDriverPosition stores a driver's last reported position in Redis
func SetDriverPosition(ctx context.Context, driverID uint, pos DriverPosition) error {
	pos.Updated = time.Now().Unix()
	data, err := json.Marshal(pos)
	if err != nil {
		return err
	}

	key := fmt.Sprintf("driver:position:%d", driverID)
	return RedisClient.Set(ctx, key, data, time.Hour).Err()
}

// GetDriverPosition retrieves a driver's last reported position from Redis
func GetDriverPosition(ctx context.Context, driverID uint) (*DriverPosition, error) {
	key := fmt.Sprintf("driver:position:%d", driverID)
	data, err := RedisClient.Get(ctx, key).Result()
	if err != nil {
		return nil, err
	}

	var pos DriverPosition
	if err := json.Unmarshal([]byte(data), &pos); err != nil {
		return nil, err
	}
	return &pos, nil
}

// PublishLoadStatusUpdate publishes a load status change to Redis pub/sub
func PublishLoadStatusUpdate(ctx context.Context, loadID uint, previousStatus, newStatus string) error {
	updateData := map[string]interface{}{
		"loadId":         loadID,
		"previousStatus": previousStatus,
		"status":         newStatus,
		"timestamp":      time.Now().Unix(),
	}

	data, err := json.Marshal(updateData)
	if err != nil {
		return err
	}

	return RedisClient.Publish(ctx, "load:status:updates", data).Err()
}
