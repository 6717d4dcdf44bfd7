package redisstore

import (
	"context"

	"github.com/jrsteele09/go-jwt-session/internal/errors"
	"github.com/jrsteele09/go-jwt-session/tokenstore"
	"github.com/redis/go-redis/v9"
)

var _ tokenstore.Store = (*Store)(nil)

// Store keeps tokens in Redis under a key prefix. It is an alternative
// backend for the durable tier when several processes share one session.
type Store struct {
	client redis.UniversalClient
	prefix string
}

func New(client redis.UniversalClient, prefix string) *Store {
	return &Store{client: client, prefix: prefix}
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	value, err := s.client.Get(ctx, s.prefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", errors.ErrNotFound
		}
		return "", errors.Wrapf(err, "redisstore.Get %s", key)
	}
	return value, nil
}

// Set stores value without a TTL; the session decides when tokens go away.
func (s *Store) Set(ctx context.Context, key, value string) error {
	return errors.Wrapf(s.client.Set(ctx, s.prefix+key, value, 0).Err(), "redisstore.Set %s", key)
}

func (s *Store) Delete(ctx context.Context, key string) error {
	return errors.Wrapf(s.client.Del(ctx, s.prefix+key).Err(), "redisstore.Delete %s", key)
}

func (s *Store) Close() error {
	return s.client.Close()
}
