package pending

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const redisKeyPrefix = "tinbox:pending:delete:"

// RedisStore keeps confirmations in Redis with the key TTL set to the
// confirmation's remaining lifetime, so replicas share pending deletes.
type RedisStore struct {
	client *redis.Client
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Put(ctx context.Context, c Confirmation) error {
	ttl := time.Until(c.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	payload, err := json.Marshal(c)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, redisKeyPrefix+c.Token, payload, ttl).Err(); err != nil {
		return fmt.Errorf("store confirmation: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, token string) (*Confirmation, error) {
	raw, err := s.client.Get(ctx, redisKeyPrefix+token).Bytes()
	return decode(raw, err)
}

func (s *RedisStore) Take(ctx context.Context, token string) (*Confirmation, error) {
	raw, err := s.client.GetDel(ctx, redisKeyPrefix+token).Bytes()
	return decode(raw, err)
}

func (s *RedisStore) Drop(ctx context.Context, token string) (bool, error) {
	n, err := s.client.Del(ctx, redisKeyPrefix+token).Result()
	if err != nil {
		return false, fmt.Errorf("drop confirmation: %w", err)
	}
	return n > 0, nil
}

func decode(raw []byte, err error) (*Confirmation, error) {
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read confirmation: %w", err)
	}
	var c Confirmation
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("decode confirmation: %w", err)
	}
	return &c, nil
}
