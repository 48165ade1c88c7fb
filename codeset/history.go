package codeset

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisHistoryStore keeps a bounded per-owner list of usage records,
// newest first. Limit zero disables persistence entirely.
type RedisHistoryStore struct {
	redis  redis.UniversalClient
	prefix string
	limit  int
	expiry time.Duration
}

// NewRedisHistoryStore describes the new redis history store operation and its observable behavior.
//
// NewRedisHistoryStore does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewRedisHistoryStore(redisClient redis.UniversalClient, prefix string, limit int, expiry time.Duration) *RedisHistoryStore {
	if prefix == "" {
		prefix = "bc"
	}
	return &RedisHistoryStore{
		redis:  redisClient,
		prefix: prefix,
		limit:  limit,
		expiry: expiry,
	}
}

func (s *RedisHistoryStore) key(ownerID string) string {
	return s.prefix + ":hist:" + ownerID
}

// Append describes the append operation and its observable behavior.
//
// Append may return an error when input validation, dependency calls, or security checks fail.
// Append does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *RedisHistoryStore) Append(ctx context.Context, ownerID string, record UsageRecord) error {
	if s.limit <= 0 {
		return nil
	}
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}

	key := s.key(ownerID)
	pipe := s.redis.TxPipeline()
	pipe.LPush(ctx, key, data)
	pipe.LTrim(ctx, key, 0, int64(s.limit)-1)
	if s.expiry > 0 {
		pipe.Expire(ctx, key, s.expiry)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// List describes the list operation and its observable behavior.
//
// List may return an error when input validation, dependency calls, or security checks fail.
// List does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *RedisHistoryStore) List(ctx context.Context, ownerID string, limit int) ([]UsageRecord, error) {
	if limit <= 0 || limit > s.limit {
		limit = s.limit
	}
	if limit <= 0 {
		return nil, nil
	}

	raw, err := s.redis.LRange(ctx, s.key(ownerID), 0, int64(limit)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	records := make([]UsageRecord, 0, len(raw))
	for _, item := range raw {
		var record UsageRecord
		if err := json.Unmarshal([]byte(item), &record); err != nil {
			continue
		}
		records = append(records, record)
	}
	return records, nil
}
