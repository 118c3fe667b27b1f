package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/VK7Cuber/Room2room-Tour/config"
	"github.com/VK7Cuber/Room2room-Tour/internal/domain"
	"github.com/redis/go-redis/v9"
)

const idempotencyDone = "done"

type RedisCache struct {
	client   *redis.Client
	toursTTL time.Duration
}

func NewRedisCache(cfg config.RedisConfig, toursTTL time.Duration) *RedisCache {
	return NewRedisCacheWithClient(redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}), toursTTL)
}

func NewRedisCacheWithClient(client *redis.Client, toursTTL time.Duration) *RedisCache {
	return &RedisCache{client: client, toursTTL: toursTTL}
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

// GetTours returns nil, nil on a cache miss.
func (c *RedisCache) GetTours(ctx context.Context, filter domain.TourFilter) ([]domain.Tour, error) {
	var tours []domain.Tour
	ok, err := c.getJSON(ctx, toursKey(filter), &tours)
	if err != nil || !ok {
		return nil, err
	}
	return tours, nil
}

func (c *RedisCache) SetTours(ctx context.Context, filter domain.TourFilter, tours []domain.Tour) error {
	return c.setJSON(ctx, toursKey(filter), tours)
}

// GetTour returns nil, nil on a cache miss.
func (c *RedisCache) GetTour(ctx context.Context, id int64) (*domain.Tour, error) {
	var tour domain.Tour
	ok, err := c.getJSON(ctx, tourKey(id), &tour)
	if err != nil || !ok {
		return nil, err
	}
	return &tour, nil
}

func (c *RedisCache) SetTour(ctx context.Context, tour *domain.Tour) error {
	return c.setJSON(ctx, tourKey(tour.ID), tour)
}

// AcquireIdempotencyKey reserves key for an in-flight request. False means the key was seen before.
func (c *RedisCache) AcquireIdempotencyKey(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return c.client.SetNX(ctx, idempotencyKey(key), "processing", ttl).Result()
}

func (c *RedisCache) CompleteIdempotencyKey(ctx context.Context, key string, ttl time.Duration) error {
	return c.client.Set(ctx, idempotencyKey(key), idempotencyDone, ttl).Err()
}

// ReleaseIdempotencyKey forgets a key whose request failed, so the client may retry it.
func (c *RedisCache) ReleaseIdempotencyKey(ctx context.Context, key string) error {
	return c.client.Del(ctx, idempotencyKey(key)).Err()
}

func (c *RedisCache) getJSON(ctx context.Context, key string, dst any) (bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("decode cached %s: %w", key, err)
	}
	return true, nil
}

func (c *RedisCache) setJSON(ctx context.Context, key string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, payload, c.toursTTL).Err()
}

// toursKey query-escapes both filter parts, so no query text can spell out another filter's key.
func toursKey(filter domain.TourFilter) string {
	v := url.Values{}
	v.Set("q", strings.ToLower(strings.TrimSpace(filter.Query)))
	v.Set("city", strings.ToLower(strings.TrimSpace(filter.City)))
	return "cache:tours:" + v.Encode()
}

func tourKey(id int64) string {
	return fmt.Sprintf("cache:tour:%d", id)
}

func idempotencyKey(key string) string {
	return "idempotency:" + key
}
