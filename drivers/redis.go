package drivers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/creastat/sessionstate"
)

const (
	// Redis key prefix for session records
	sessionKeyPrefix = "sess:"
	// Floor for key TTLs so a record whose expiry already passed still
	// produces a valid SET and is left to Redis to reap.
	minKeyTTL = time.Second
)

// RedisStore implements sessionstate.DocumentStore using Redis. Conditional
// updates run under WATCH with a transactional pipeline; a concurrent
// modification aborts the transaction and surfaces as a transient failure
// for the retry policy to absorb. Key TTLs track the record's expires field,
// so Redis itself plays the role of the background expiry sweep.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a new Redis-backed document store.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = sessionKeyPrefix
	}
	return &RedisStore{
		client: client,
		prefix: prefix,
	}
}

func (s *RedisStore) key(app, id string) string {
	return s.prefix + app + ":" + id
}

func (s *RedisStore) ttl(rec *sessionstate.SessionRecord) time.Duration {
	ttl := time.Until(rec.Expires)
	if ttl < minKeyTTL {
		ttl = minKeyTTL
	}
	return ttl
}

// FindOne implements sessionstate.DocumentStore.
// Returns nil if no record matches the filter (not an error).
func (s *RedisStore) FindOne(ctx context.Context, f sessionstate.RecordFilter) (*sessionstate.SessionRecord, error) {
	val, err := s.client.Get(ctx, s.key(f.ApplicationName, f.ID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var rec sessionstate.SessionRecord
	if err := json.Unmarshal([]byte(val), &rec); err != nil {
		return nil, fmt.Errorf("drivers: corrupt session record: %w", err)
	}
	if !f.Matches(&rec) {
		return nil, nil
	}
	return &rec, nil
}

// UpdateOne implements sessionstate.DocumentStore.
// The read-check-write cycle runs under WATCH so a concurrent writer aborts
// the transaction instead of being overwritten.
func (s *RedisStore) UpdateOne(ctx context.Context, f sessionstate.RecordFilter, u sessionstate.RecordUpdate) (int64, error) {
	key := s.key(f.ApplicationName, f.ID)

	var matched int64
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		val, err := tx.Get(ctx, key).Result()
		if err == redis.Nil {
			return nil
		}
		if err != nil {
			return err
		}

		var rec sessionstate.SessionRecord
		if err := json.Unmarshal([]byte(val), &rec); err != nil {
			return fmt.Errorf("drivers: corrupt session record: %w", err)
		}
		if !f.Matches(&rec) {
			return nil
		}

		u.Apply(&rec)
		newVal, err := json.Marshal(&rec)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, newVal, s.ttl(&rec))
			return nil
		})
		if err == nil {
			matched = 1
		}
		return err
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		return 0, fmt.Errorf("%w: concurrent record modification: %v", sessionstate.ErrTransient, err)
	}
	return matched, err
}

// DeleteOne implements sessionstate.DocumentStore.
func (s *RedisStore) DeleteOne(ctx context.Context, f sessionstate.RecordFilter) (int64, error) {
	key := s.key(f.ApplicationName, f.ID)

	var deleted int64
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		val, err := tx.Get(ctx, key).Result()
		if err == redis.Nil {
			return nil
		}
		if err != nil {
			return err
		}

		var rec sessionstate.SessionRecord
		if err := json.Unmarshal([]byte(val), &rec); err != nil {
			return fmt.Errorf("drivers: corrupt session record: %w", err)
		}
		if !f.Matches(&rec) {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			return nil
		})
		if err == nil {
			deleted = 1
		}
		return err
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		return 0, fmt.Errorf("%w: concurrent record modification: %v", sessionstate.ErrTransient, err)
	}
	return deleted, err
}

// Upsert implements sessionstate.DocumentStore.
func (s *RedisStore) Upsert(ctx context.Context, f sessionstate.RecordFilter, rec *sessionstate.SessionRecord) error {
	val, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(f.ApplicationName, f.ID), val, s.ttl(rec)).Err()
}

// EnsureExpiryIndex implements sessionstate.DocumentStore. Redis expires
// keys natively (the TTL set on every write), so there is nothing to
// register.
func (s *RedisStore) EnsureExpiryIndex(ctx context.Context) error {
	return nil
}

// Close implements sessionstate.DocumentStore.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
