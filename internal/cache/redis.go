// Package cache mirrors the latest position of every car in Redis so
// read-heavy endpoints can answer without touching Mongo.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/fleetlab/carsim/internal/models"
)

// positionsKey is the hash holding the latest sample per car id.
const positionsKey = "carsim:positions"

const (
	connectTimeout = 5 * time.Second
	writeTimeout   = 1 * time.Second
)

// Cache keeps one latest position per car in a Redis hash. A nil
// *Cache is valid and means caching is disabled, so callers never
// branch on configuration.
type Cache struct {
	client *redis.Client
}

// New connects to Redis and returns the cache, or nil when redisURL is
// empty or the server cannot be reached. The cache is best-effort; the
// simulation runs fine without it.
func New(redisURL string) *Cache {
	if redisURL == "" {
		log.Info("Redis URL not provided, position caching disabled")
		return nil
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		log.WithError(err).Warn("Failed to parse Redis URL, position caching disabled")
		return nil
	}

	client := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.WithError(err).Warn("Failed to connect to Redis, position caching disabled")
		return nil
	}

	log.Info("Redis position cache initialized")
	return &Cache{client: client}
}

// EmitSample records the sample as the car's latest position. Failures
// are logged and swallowed; the store stays the source of truth.
func (c *Cache) EmitSample(pos models.Position) {
	if c == nil {
		return
	}
	data, err := json.Marshal(pos)
	if err != nil {
		log.WithError(err).Warn("Failed to encode position for cache")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := c.client.HSet(ctx, positionsKey, pos.CarID, data).Err(); err != nil {
		log.WithError(err).Warn("Failed to cache position")
	}
}

// Latest returns the cached position for one car. The bool is false
// when caching is disabled, the car is unknown, or Redis errors out.
func (c *Cache) Latest(ctx context.Context, carID string) (models.Position, bool) {
	if c == nil {
		return models.Position{}, false
	}
	data, err := c.client.HGet(ctx, positionsKey, carID).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.WithError(err).Warn("Failed to read cached position")
		}
		return models.Position{}, false
	}
	var pos models.Position
	if err := json.Unmarshal(data, &pos); err != nil {
		return models.Position{}, false
	}
	return pos, true
}

// LatestAll returns the cached latest position of every car in one
// round trip. The bool is false when the cache cannot answer at all.
func (c *Cache) LatestAll(ctx context.Context) ([]models.Position, bool) {
	if c == nil {
		return nil, false
	}
	entries, err := c.client.HGetAll(ctx, positionsKey).Result()
	if err != nil {
		log.WithError(err).Warn("Failed to read cached positions")
		return nil, false
	}
	positions := make([]models.Position, 0, len(entries))
	for _, raw := range entries {
		var pos models.Position
		if err := json.Unmarshal([]byte(raw), &pos); err != nil {
			continue
		}
		positions = append(positions, pos)
	}
	return positions, true
}

// Clear drops every cached position.
func (c *Cache) Clear(ctx context.Context) {
	if c == nil {
		return
	}
	if err := c.client.Del(ctx, positionsKey).Err(); err != nil {
		log.WithError(err).Warn("Failed to clear position cache")
	}
}

// Close releases the Redis connection.
func (c *Cache) Close() {
	if c != nil && c.client != nil {
		c.client.Close()
	}
}
