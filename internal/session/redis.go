package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kalambet/askbot/internal/convo"
)

var _ Store = (*Redis)(nil)

// Redis keeps each session as a hash so several replicas can share
// conversations. A session expires ttl after its last write.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedis connects to the server at url (redis://[:password@]host:port/db)
// and verifies it with a ping.
func NewRedis(ctx context.Context, url string, ttl time.Duration) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return NewRedisFromClient(client, "", ttl), nil
}

// NewRedisFromClient wraps an existing client. prefix defaults to "askbot:session:".
func NewRedisFromClient(client *redis.Client, prefix string, ttl time.Duration) *Redis {
	if prefix == "" {
		prefix = "askbot:session:"
	}
	return &Redis{client: client, prefix: prefix, ttl: ttl}
}

func (r *Redis) key(id string) string { return r.prefix + id }

func (r *Redis) Session(id string) convo.Session {
	return &redisSession{store: r, key: r.key(id)}
}

func (r *Redis) Reset(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, r.key(id)).Err(); err != nil {
		return fmt.Errorf("redis delete: %w", err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}

type redisSession struct {
	store *Redis
	key   string
}

func (s *redisSession) Get(ctx context.Context, field string) ([]byte, bool, error) {
	val, err := s.store.client.HGet(ctx, s.key, field).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis hget: %w", err)
	}
	return val, true, nil
}

func (s *redisSession) Set(ctx context.Context, field string, value []byte) error {
	pipe := s.store.client.TxPipeline()
	pipe.HSet(ctx, s.key, field, value)
	if s.store.ttl > 0 {
		pipe.Expire(ctx, s.key, s.store.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis hset: %w", err)
	}
	return nil
}
