// Package redis stores rate windows in Redis hashes.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/snowparadise/reactor/internal/model"
	"github.com/snowparadise/reactor/internal/store"
)

const (
	keyPrefix  = "ratelimit:"
	maxRetries = 10
)

// Config is used to initialize the Redis client.
type Config struct {
	Addr     string
	Password string
	DB       int
}

// WindowStore keeps each window in a hash {start, count} and updates it with
// optimistic WATCH/MULTI transactions.
type WindowStore struct {
	client *redis.Client
}

// Connect creates a client and pings the server.
func Connect(ctx context.Context, c Config) (*WindowStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     c.Addr,
		Password: c.Password,
		DB:       c.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &WindowStore{client: rdb}, nil
}

// NewWindowStore wraps an existing client.
func NewWindowStore(client *redis.Client) *WindowStore {
	return &WindowStore{client: client}
}

// Close closes the client.
func (s *WindowStore) Close() error {
	return s.client.Close()
}

// Ping checks connectivity.
func (s *WindowStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// UpdateWindow applies fn atomically, retrying when another writer touched
// the key between read and write.
func (s *WindowStore) UpdateWindow(ctx context.Context, key string, ttl time.Duration, fn store.WindowUpdate) error {
	rkey := keyPrefix + key

	txf := func(tx *redis.Tx) error {
		vals, err := tx.HGetAll(ctx, rkey).Result()
		if err != nil {
			return err
		}
		current, err := decodeWindow(key, vals)
		if err != nil {
			return err
		}

		next, err := fn(current)
		if err != nil || next == nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, rkey,
				"start", next.WindowStart.UnixMilli(),
				"count", next.Count,
			)
			if ttl > 0 {
				pipe.PExpireAt(ctx, rkey, next.WindowStart.Add(ttl))
			}
			return nil
		})
		return err
	}

	for i := 0; i < maxRetries; i++ {
		err := s.client.Watch(ctx, txf, rkey)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return fmt.Errorf("update window %s: %w", key, err)
		}
		return nil
	}
	return fmt.Errorf("update window %s: too many conflicts", key)
}

func decodeWindow(key string, vals map[string]string) (*model.RateWindow, error) {
	if len(vals) == 0 {
		return nil, nil
	}
	startMs, err := strconv.ParseInt(vals["start"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("decode window start: %w", err)
	}
	count, err := strconv.Atoi(vals["count"])
	if err != nil {
		return nil, fmt.Errorf("decode window count: %w", err)
	}
	return &model.RateWindow{
		Key:         key,
		WindowStart: time.UnixMilli(startMs),
		Count:       count,
	}, nil
}
