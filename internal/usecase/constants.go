package usecase

import (
	"errors"
	"time"
)

const (
	// IdempotencyKeyTTL is how long idempotency keys are cached
	IdempotencyKeyTTL = 24 * time.Hour

	// DefaultPageSize and MaxPageSize bound list queries.
	DefaultPageSize = 20
	MaxPageSize     = 100
)

var (
	// ErrMissingIdentifier is returned when a request lacks the client
	// transaction id or the account id.
	ErrMissingIdentifier = errors.New("client transaction id and account id are required")

	// ErrIdempotencyKeyReused is returned when an idempotency key is replayed
	// with a different request body.
	ErrIdempotencyKeyReused = errors.New("idempotency key reused with a different request")
)
