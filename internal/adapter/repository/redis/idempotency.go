package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iho/clienttx/internal/infrastructure/metrics"
	"github.com/iho/clienttx/internal/usecase"
)

// IdempotencyStore implements usecase.IdempotencyStore using Redis.
type IdempotencyStore struct {
	client  *redis.Client
	prefix  string
	metrics *metrics.Metrics
}

// record is the value stored under an idempotency key. Response stays nil
// while the first request is still being processed.
type record struct {
	Fingerprint string `json:"fingerprint"`
	Response    []byte `json:"response,omitempty"`
}

// NewIdempotencyStore creates a new IdempotencyStore. m may be nil.
func NewIdempotencyStore(client *redis.Client, m *metrics.Metrics) *IdempotencyStore {
	return &IdempotencyStore{
		client:  client,
		prefix:  "clienttx:idempotency:",
		metrics: m,
	}
}

// claimAttempts bounds how often CheckAndSet retries SETNX when the key
// disappears between SETNX and GET.
const claimAttempts = 2

// CheckAndSet atomically claims key for a request with the given fingerprint.
// It returns exists=false when the caller owns the key. Otherwise it returns
// the stored response, which is nil while the first request is in flight.
func (s *IdempotencyStore) CheckAndSet(ctx context.Context, key, fingerprint string, ttl time.Duration) (bool, []byte, error) {
	fullKey := s.prefix + key

	placeholder, err := json.Marshal(record{Fingerprint: fingerprint})
	if err != nil {
		return false, nil, err
	}

	for attempt := 1; ; attempt++ {
		var set bool
		if err := s.observe("setnx", func() error {
			var err error
			set, err = s.client.SetNX(ctx, fullKey, placeholder, ttl).Result()
			return err
		}); err != nil {
			return false, nil, err
		}
		if set {
			return false, nil, nil
		}

		var raw []byte
		err := s.observe("get", func() error {
			var err error
			raw, err = s.client.Get(ctx, fullKey).Bytes()
			return err
		})
		if errors.Is(err, redis.Nil) {
			// Expired or released between SETNX and GET.
			if attempt < claimAttempts {
				continue
			}
			return true, nil, nil
		}
		if err != nil {
			return false, nil, err
		}

		var existing record
		if err := json.Unmarshal(raw, &existing); err != nil {
			return false, nil, err
		}
		if existing.Fingerprint != fingerprint {
			return true, nil, usecase.ErrIdempotencyKeyReused
		}
		return true, existing.Response, nil
	}
}

// Update stores the final response for key.
func (s *IdempotencyStore) Update(ctx context.Context, key, fingerprint string, response []byte, ttl time.Duration) error {
	value, err := json.Marshal(record{Fingerprint: fingerprint, Response: response})
	if err != nil {
		return err
	}

	return s.observe("set", func() error {
		return s.client.Set(ctx, s.prefix+key, value, ttl).Err()
	})
}

// Release removes key so the request can be retried.
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	return s.observe("del", func() error {
		return s.client.Del(ctx, s.prefix+key).Err()
	})
}

// observe runs op and records its metrics.
func (s *IdempotencyStore) observe(operation string, op func() error) error {
	start := time.Now()
	err := op()

	if s.metrics != nil {
		s.metrics.RedisOperations.WithLabelValues(operation).Inc()
		s.metrics.RedisDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
		if err != nil && !errors.Is(err, redis.Nil) {
			s.metrics.RedisErrors.WithLabelValues(operation).Inc()
		}
	}
	return err
}
