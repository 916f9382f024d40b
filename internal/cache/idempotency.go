package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// IdempotencyStore records request keys so a retried submission is applied
// at most once. A key is claimed before the write and completed with the
// stored result after it. Each key remembers the fingerprint of the request
// that claimed it.
type IdempotencyStore struct {
	cache  *RedisCache
	prefix string
	ttl    time.Duration
}

// Entry is the stored state of a request key.
type Entry struct {
	Fingerprint string          `json:"fingerprint"`
	Done        bool            `json:"done"`
	Result      json.RawMessage `json:"result,omitempty"`
}

// NewIdempotencyStore keeps keys under prefix for ttl.
func NewIdempotencyStore(cache *RedisCache, prefix string, ttl time.Duration) *IdempotencyStore {
	if prefix == "" {
		prefix = "roster:idem:"
	}
	return &IdempotencyStore{cache: cache, prefix: prefix, ttl: ttl}
}

// Claim marks key as in flight for the request identified by fingerprint.
// It returns false if the key is already known.
func (s *IdempotencyStore) Claim(ctx context.Context, key, fingerprint string) (bool, error) {
	data, err := json.Marshal(Entry{Fingerprint: fingerprint})
	if err != nil {
		return false, fmt.Errorf("encoding idempotency entry: %w", err)
	}
	ok, err := s.cache.SetNX(ctx, s.prefix+key, data, s.ttl)
	if err != nil {
		return false, fmt.Errorf("claiming idempotency key: %w", err)
	}
	return ok, nil
}

// Complete stores the result of a claimed key. result must be JSON.
func (s *IdempotencyStore) Complete(ctx context.Context, key, fingerprint string, result []byte) error {
	data, err := json.Marshal(Entry{Fingerprint: fingerprint, Done: true, Result: result})
	if err != nil {
		return fmt.Errorf("encoding idempotency entry: %w", err)
	}
	if err := s.cache.Set(ctx, s.prefix+key, data, s.ttl); err != nil {
		return fmt.Errorf("completing idempotency key: %w", err)
	}
	return nil
}

// Lookup returns the stored entry of key. found is false for an unknown or
// expired key.
func (s *IdempotencyStore) Lookup(ctx context.Context, key string) (entry Entry, found bool, err error) {
	v, err := s.cache.Get(ctx, s.prefix+key)
	if errors.Is(err, redis.Nil) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("reading idempotency key: %w", err)
	}
	if err := json.Unmarshal([]byte(v), &entry); err != nil {
		return Entry{}, false, fmt.Errorf("decoding idempotency key: %w", err)
	}
	return entry, true, nil
}

// Release forgets key so the request can be retried.
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	if err := s.cache.Delete(ctx, s.prefix+key); err != nil {
		return fmt.Errorf("releasing idempotency key: %w", err)
	}
	return nil
}
