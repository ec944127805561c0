package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pharmachat/pharmachat/engine/core"
)

// RedisStore keeps session logs in Redis with native TTL expiry.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

func sessionKey(tenantID core.ID, sessionID string) string {
	return fmt.Sprintf("session:%s:%s", tenantID, sessionID)
}

func (s *RedisStore) Load(ctx context.Context, tenantID core.ID, sessionID string) (Log, error) {
	raw, err := s.client.Get(ctx, sessionKey(tenantID, sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session: loading %s: %w", sessionID, err)
	}
	var log Log
	if err := json.Unmarshal(raw, &log); err != nil {
		// A corrupt payload is treated like an expired session.
		return nil, nil
	}
	return log, nil
}

func (s *RedisStore) Save(ctx context.Context, tenantID core.ID, sessionID string, log Log) error {
	raw, err := json.Marshal(log.Trim())
	if err != nil {
		return fmt.Errorf("session: encoding %s: %w", sessionID, err)
	}
	if err := s.client.Set(ctx, sessionKey(tenantID, sessionID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("session: saving %s: %w", sessionID, err)
	}
	return nil
}

func (s *RedisStore) Close(_ context.Context) error {
	return s.client.Close()
}
