package codeset

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const codeSetRecordVersion1 = 1

// RedisStore is the bundled [Store] implementation. One key per owner,
// whole-set atomic replace on writes, WATCH/MULTI consumption.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRedisStore describes the new redis store operation and its observable behavior.
//
// NewRedisStore does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewRedisStore(redisClient redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "bc"
	}
	return &RedisStore{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *RedisStore) key(ownerID string) string {
	return s.prefix + ":set:" + ownerID
}

// SaveSet describes the save set operation and its observable behavior.
//
// SaveSet may return an error when input validation, dependency calls, or security checks fail.
// SaveSet does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *RedisStore) SaveSet(ctx context.Context, ownerID string, set *CodeSet) error {
	encoded, err := encodeCodeSet(set)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.key(ownerID), encoded, 0).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// GetSet describes the get set operation and its observable behavior.
//
// GetSet may return an error when input validation, dependency calls, or security checks fail.
// GetSet does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *RedisStore) GetSet(ctx context.Context, ownerID string) (*CodeSet, error) {
	data, err := s.redis.Get(ctx, s.key(ownerID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return decodeCodeSet(data)
}

// ConsumeMatching describes the consume matching operation and its observable behavior.
//
// The predicate runs inside a WATCH transaction; a concurrent write to the
// owner's key aborts the transaction and the scan is retried against fresh
// state, so one physical record satisfies at most one caller.
//
// ConsumeMatching may return an error when input validation, dependency calls, or security checks fail.
// ConsumeMatching does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *RedisStore) ConsumeMatching(
	ctx context.Context,
	ownerID string,
	usedAt int64,
	match func(record CodeRecord) bool,
) (ConsumeOutcome, error) {
	const maxRetries = 4
	key := s.key(ownerID)

	for i := 0; i < maxRetries; i++ {
		var outcome ConsumeOutcome
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}

			set, err := decodeCodeSet(data)
			if err != nil {
				return err
			}

			idx := -1
			for j := range set.Records {
				if set.Records[j].Used {
					continue
				}
				if match(set.Records[j]) {
					idx = j
					break
				}
			}
			if idx < 0 {
				outcome = ConsumeOutcome{Remaining: set.Remaining()}
				return nil
			}

			set.Records[idx].Used = true
			set.Records[idx].UsedAt = usedAt

			updated, err := encodeCodeSet(set)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, updated, redis.KeepTTL)
				return nil
			})
			if err != nil {
				return err
			}
			outcome = ConsumeOutcome{
				Matched:   true,
				CodeID:    set.Records[idx].ID,
				Remaining: set.Remaining(),
			}
			return nil
		}, key)

		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return ConsumeOutcome{}, ErrNotFound
			}
			return ConsumeOutcome{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return outcome, nil
	}

	return ConsumeOutcome{}, ErrConflict
}

// ClearSet describes the clear set operation and its observable behavior.
//
// ClearSet may return an error when input validation, dependency calls, or security checks fail.
// ClearSet does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *RedisStore) ClearSet(ctx context.Context, ownerID string) error {
	if err := s.redis.Del(ctx, s.key(ownerID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func encodeCodeSet(set *CodeSet) ([]byte, error) {
	payload, err := json.Marshal(set)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(payload)+1)
	out = append(out, codeSetRecordVersion1)
	out = append(out, payload...)
	return out, nil
}

func decodeCodeSet(data []byte) (*CodeSet, error) {
	if len(data) < 2 || data[0] != codeSetRecordVersion1 {
		return nil, errors.New("unsupported code set record version")
	}
	var set CodeSet
	if err := json.Unmarshal(data[1:], &set); err != nil {
		return nil, err
	}
	return &set, nil
}
