package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Archive persists evicted sessions so a reconnecting client can resume.
type Archive interface {
	Save(ctx context.Context, state State) error
	Load(ctx context.Context, id string) (State, bool, error)
	Delete(ctx context.Context, id string) error
}

const (
	archiveKeyPrefix  = "session:"
	defaultArchiveTTL = 24 * time.Hour
)

// RedisArchive stores session state as JSON values with a TTL.
type RedisArchive struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisArchive wraps client. A non-positive ttl uses 24 hours.
func NewRedisArchive(client *redis.Client, ttl time.Duration) *RedisArchive {
	if ttl <= 0 {
		ttl = defaultArchiveTTL
	}
	return &RedisArchive{client: client, ttl: ttl}
}

// DialRedisArchive parses a redis:// URL and verifies the server answers.
func DialRedisArchive(ctx context.Context, url string, ttl time.Duration) (*RedisArchive, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisArchive(client, ttl), nil
}

// Save implements Archive.
func (a *RedisArchive) Save(ctx context.Context, state State) error {
	val, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return a.client.Set(ctx, a.key(state.ID), val, a.ttl).Err()
}

// Load implements Archive. A missing key is not an error.
func (a *RedisArchive) Load(ctx context.Context, id string) (State, bool, error) {
	val, err := a.client.Get(ctx, a.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return State{}, false, nil
	}
	if err != nil {
		return State{}, false, err
	}

	var state State
	if err := json.Unmarshal(val, &state); err != nil {
		return State{}, false, fmt.Errorf("decode archived session %s: %w", id, err)
	}
	return state, true, nil
}

// Delete implements Archive.
func (a *RedisArchive) Delete(ctx context.Context, id string) error {
	return a.client.Del(ctx, a.key(id)).Err()
}

// Close releases the underlying client.
func (a *RedisArchive) Close() error {
	return a.client.Close()
}

func (a *RedisArchive) key(id string) string {
	return archiveKeyPrefix + id
}
