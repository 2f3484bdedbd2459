package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aouyang1/go-liftchart/dataset"
	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "liftchart:merge:"

// Redis shares merge outputs between dashboard processes. Expiry is left to redis.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis connects to addr and verifies the connection.
func NewRedis(addr string, db int, password string, ttl time.Duration) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		DB:       db,
		Password: password,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Redis{client: client, ttl: ttl}, nil
}

func redisKey(key Key) string {
	return keyPrefix + key.String()
}

func (r *Redis) Get(ctx context.Context, key Key) (*dataset.Joined, error) {
	val, err := r.client.Get(ctx, redisKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}

	var rows []dataset.JoinedRow
	if err := json.Unmarshal(val, &rows); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}
	return &dataset.Joined{Rows: rows}, nil
}

func (r *Redis) Set(ctx context.Context, key Key, joined *dataset.Joined) error {
	data, err := json.Marshal(joined.Rows)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	if err := r.client.Set(ctx, redisKey(key), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

func (r *Redis) Invalidate(ctx context.Context, key Key) error {
	if err := r.client.Del(ctx, redisKey(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
