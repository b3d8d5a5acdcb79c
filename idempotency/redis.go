// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each record in a hash that expires on its own.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

// DialRedis parses a redis:// URL and checks the server answers.
func DialRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return rdb, nil
}

func redisKey(userID, key string) string {
	return "idem:vote:" + userID + ":" + key
}

// claimScript creates the pending hash only when the key is free, with its
// expiry set in the same step.
var claimScript = redis.NewScript(`
if redis.call("HSETNX", KEYS[1], "fingerprint", ARGV[1]) == 0 then
	return 0
end
redis.call("HSET", KEYS[1], "status", "0", "body", "")
redis.call("PEXPIRE", KEYS[1], ARGV[2])
return 1
`)

func (s *RedisStore) Get(ctx context.Context, userID, key string) (*Record, error) {
	fields, err := s.rdb.HGetAll(ctx, redisKey(userID, key)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load idempotency record: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}

	var rec Record
	if err := mapstructure.WeakDecode(fields, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode idempotency record: %w", err)
	}
	return &rec, nil
}

func (s *RedisStore) Claim(ctx context.Context, userID, key, fingerprint string) (*Record, error) {
	k := redisKey(userID, key)
	claimed, err := claimScript.Run(ctx, s.rdb, []string{k}, fingerprint, s.ttl.Milliseconds()).Int()
	if err != nil {
		return nil, fmt.Errorf("failed to claim idempotency key: %w", err)
	}
	if claimed == 1 {
		return nil, nil
	}

	rec, err := s.Get(ctx, userID, key)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("idempotency record for %q expired while claiming", key)
	}
	return rec, nil
}

func (s *RedisStore) Save(ctx context.Context, userID, key string, rec Record) error {
	k := redisKey(userID, key)
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, k, map[string]interface{}{
			"fingerprint": rec.Fingerprint,
			"status":      rec.Status,
			"body":        rec.Body,
		})
		pipe.Expire(ctx, k, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save idempotency record: %w", err)
	}
	return nil
}

// Release drops a pending claim. A finished record is left alone.
func (s *RedisStore) Release(ctx context.Context, userID, key string) error {
	k := redisKey(userID, key)
	err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		status, err := tx.HGet(ctx, k, "status").Result()
		if err == redis.Nil || (err == nil && status != "0") {
			return nil
		}
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, k)
			return nil
		})
		return err
	}, k)
	if err != nil {
		return fmt.Errorf("failed to release idempotency key: %w", err)
	}
	return nil
}
