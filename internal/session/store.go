package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/JonMunkholm/hivdash/internal/views"
)

// Store persists filter state by session id.
type Store interface {
	// Load returns the state for id; ok is false when none is stored.
	Load(ctx context.Context, id string) (state views.FilterState, ok bool, err error)
	Save(ctx context.Context, id string, state views.FilterState, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}

const (
	// Redis key prefix for session filter state
	stateKeyPrefix = "hivdash:session:"
)

// RedisStore keeps filter state in Redis as JSON with a sliding TTL.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore constructs a Redis-backed store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Load implements Store.
func (s *RedisStore) Load(ctx context.Context, id string) (views.FilterState, bool, error) {
	data, err := s.client.Get(ctx, stateKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return views.FilterState{}, false, nil
	}
	if err != nil {
		return views.FilterState{}, false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	var state views.FilterState
	if err := json.Unmarshal(data, &state); err != nil {
		return views.FilterState{}, false, fmt.Errorf("decode session %s: %w", id, err)
	}
	return state, true, nil
}

// Save implements Store. Uses SET with expiry so every save refreshes the TTL.
func (s *RedisStore) Save(ctx context.Context, id string, state views.FilterState, ttl time.Duration) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", id, err)
	}
	if err := s.client.Set(ctx, stateKeyPrefix+id, data, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Delete implements Store.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, stateKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}
