// Package rediscache caches the L2 depth view per symbol in Redis.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"clobengine/internal/domain"
	"clobengine/internal/port"

	"github.com/redis/go-redis/v9"
)

type Cache struct {
	client *redis.Client
}

var _ port.Cache = (*Cache)(nil)

func New(addr, password string, db int) *Cache {
	return &Cache{client: redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})}
}

func key(symbol string) string { return "l2:" + symbol }

func (c *Cache) SetL2(ctx context.Context, symbol string, snap *domain.L2Snapshot, ttl time.Duration) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key(symbol), b, ttl).Err()
}

func (c *Cache) GetL2(ctx context.Context, symbol string) (*domain.L2Snapshot, error) {
	b, err := c.client.Get(ctx, key(symbol)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var snap domain.L2Snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (c *Cache) Close() error {
	return c.client.Close()
}
