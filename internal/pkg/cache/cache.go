package cache

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/anicoll/smartbuilding/internal/pkg/model"
)

const keyPattern = "latest:device*"

// ErrCacheMiss is returned when no reading is cached for a device, which is how an offline device looks.
var ErrCacheMiss = errors.New("cache miss")

// Key is the cache key of the latest reading of a device.
func Key(deviceID int64) string {
	return fmt.Sprintf("latest:device%d", deviceID)
}

// Cache keeps the latest reading of each device with a bounded TTL. The expiry is
// the only liveness signal: a device without a key is offline.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func New(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{
		client: client,
		ttl:    ttl,
	}
}

// NewClient builds the redis client handle used by the cache.
func NewClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// Publish refreshes the latest reading of the device. It satisfies the fan-out target contract.
func (c *Cache) Publish(ctx context.Context, r model.Reading) error {
	return c.SetLatest(ctx, r)
}

func (c *Cache) SetLatest(ctx context.Context, r model.Reading) error {
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, Key(r.DeviceID), data, c.ttl).Err()
}

// Latest returns the cached reading of a device with its online status.
func (c *Cache) Latest(ctx context.Context, deviceID int64) (*model.LatestReading, error) {
	return c.latest(ctx, Key(deviceID))
}

func (c *Cache) latest(ctx context.Context, key string) (*model.LatestReading, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, err
	}
	var latest model.LatestReading
	if err := json.Unmarshal(val, &latest.Reading); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	ttl, err := c.client.TTL(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	latest.Status = model.StatusOffline
	if ttl > 0 {
		latest.Status = model.StatusOnline
	}
	return &latest, nil
}

// AllLatest returns every cached reading ordered by device id. Keys that expire
// between the scan and the read are skipped.
func (c *Cache) AllLatest(ctx context.Context) ([]model.LatestReading, error) {
	var results []model.LatestReading
	iter := c.client.Scan(ctx, 0, keyPattern, 100).Iterator()
	for iter.Next(ctx) {
		latest, err := c.latest(ctx, iter.Val())
		if err != nil {
			if errors.Is(err, ErrCacheMiss) {
				continue
			}
			return nil, err
		}
		results = append(results, *latest)
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	slices.SortFunc(results, func(a, b model.LatestReading) int {
		return cmp.Compare(a.DeviceID, b.DeviceID)
	})
	return results, nil
}

// Clear drops the cached reading of a device.
func (c *Cache) Clear(ctx context.Context, deviceID int64) error {
	return c.client.Del(ctx, Key(deviceID)).Err()
}

func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
