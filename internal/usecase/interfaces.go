package usecase

import (
	"context"
	"time"

	"github.com/iho/clienttx/internal/domain"
)

// ClientTransactionRepository stores client transaction aggregates.
// Implementations do not synchronise access to the aggregates they return;
// ClientTransactionUseCase does that per key.
type ClientTransactionRepository interface {
	// Get returns domain.ErrClientTransactionNotFound for unknown keys.
	Get(ctx context.Context, key domain.ClientTransactionKey) (*domain.ClientTransaction, error)
	Save(ctx context.Context, ct *domain.ClientTransaction) error
	ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.ClientTransaction, error)
}

// OutboxRepository defines data access for outbox events.
type OutboxRepository interface {
	Create(ctx context.Context, event *domain.OutboxEvent) error
	GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, id string, publishedAt time.Time) error
	DeletePublished(ctx context.Context, before time.Time) error
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// fingerprint identifies the request body; reusing a key with another
	// fingerprint returns ErrIdempotencyKeyReused.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key, fingerprint string, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key, fingerprint string, response []byte, ttl time.Duration) error
	// Release drops a key whose request did not complete successfully.
	Release(ctx context.Context, key string) error
}
