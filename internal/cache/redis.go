// Package cache keeps the latest cycle snapshot in Redis for fast reads.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/yourorg/yield-oracle/internal/model"
)

const (
	snapshotKey       = "yield:snapshot:latest"
	protocolKeyPrefix = "yield:protocol:"
)

// Cache wraps a Redis client.
type Cache struct {
	rdb *redis.Client
}

// New connects to Redis and verifies the connection.
func New(redisURL, password string) (*Cache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if password != "" {
		opts.Password = password
	}
	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Cache{rdb: rdb}, nil
}

// Close shuts down the Redis connection.
func (c *Cache) Close() error {
	return c.rdb.Close()
}

// SetSnapshot overwrites the cached snapshot wholesale and refreshes each
// protocol's latest-sample entry, all with the same TTL.
func (c *Cache) SetSnapshot(ctx context.Context, snap model.Snapshot, ttl time.Duration) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := c.rdb.Set(ctx, snapshotKey, payload, ttl).Err(); err != nil {
		return fmt.Errorf("set snapshot: %w", err)
	}

	for _, sample := range snap.Samples {
		entry, err := json.Marshal(sample)
		if err != nil {
			return fmt.Errorf("marshal sample %s: %w", sample.ProtocolID, err)
		}
		if err := c.rdb.Set(ctx, protocolKeyPrefix+sample.ProtocolID, entry, ttl).Err(); err != nil {
			return fmt.Errorf("set protocol %s: %w", sample.ProtocolID, err)
		}
	}
	return nil
}

// GetSnapshot returns the cached snapshot, or (nil, nil) when absent or
// expired.
func (c *Cache) GetSnapshot(ctx context.Context) (*model.Snapshot, error) {
	payload, err := c.rdb.Get(ctx, snapshotKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot: %w", err)
	}

	var snap model.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

// GetProtocol returns a protocol's latest cached sample, or (nil, nil) when
// absent.
func (c *Cache) GetProtocol(ctx context.Context, protocolID string) (*model.YieldSample, error) {
	payload, err := c.rdb.Get(ctx, protocolKeyPrefix+protocolID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get protocol %s: %w", protocolID, err)
	}

	var sample model.YieldSample
	if err := json.Unmarshal(payload, &sample); err != nil {
		return nil, fmt.Errorf("unmarshal sample: %w", err)
	}
	return &sample, nil
}
