package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/iho/clienttx/internal/domain"
)

// OutboxRepository implements usecase.OutboxRepository. Events are returned
// in insertion order.
type OutboxRepository struct {
	mu     sync.Mutex
	events []*domain.OutboxEvent
	index  map[string]*domain.OutboxEvent
}

// NewOutboxRepository creates a new OutboxRepository.
func NewOutboxRepository() *OutboxRepository {
	return &OutboxRepository{
		index: make(map[string]*domain.OutboxEvent),
	}
}

// Create stores a copy of event.
func (r *OutboxRepository) Create(ctx context.Context, event *domain.OutboxEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	stored, err := copyEvent(event)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.index[stored.ID]; exists {
		return fmt.Errorf("outbox event %s already exists", stored.ID)
	}
	r.events = append(r.events, stored)
	r.index[stored.ID] = stored
	return nil
}

// GetUnpublished retrieves up to limit unpublished events.
func (r *OutboxRepository) GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	events := make([]*domain.OutboxEvent, 0)
	for _, event := range r.events {
		if event.Published {
			continue
		}
		if limit > 0 && len(events) == limit {
			break
		}
		cp, err := copyEvent(event)
		if err != nil {
			return nil, err
		}
		events = append(events, cp)
	}
	return events, nil
}

// MarkPublished marks an event as published.
func (r *OutboxRepository) MarkPublished(ctx context.Context, id string, publishedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	event, ok := r.index[id]
	if !ok {
		return fmt.Errorf("outbox event %s not found", id)
	}
	event.Published = true
	event.PublishedAt = &publishedAt
	return nil
}

// DeletePublished deletes published events older than the given time.
func (r *OutboxRepository) DeletePublished(ctx context.Context, before time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.events[:0]
	for _, event := range r.events {
		if event.Published && event.PublishedAt != nil && event.PublishedAt.Before(before) {
			delete(r.index, event.ID)
			continue
		}
		kept = append(kept, event)
	}
	r.events = kept
	return nil
}

// Len returns the number of stored events.
func (r *OutboxRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// copyEvent detaches the payload the same way a database round trip would.
func copyEvent(event *domain.OutboxEvent) (*domain.OutboxEvent, error) {
	cp := *event

	if event.Payload != nil {
		raw, err := json.Marshal(event.Payload)
		if err != nil {
			return nil, err
		}
		var payload map[string]any
		if err := json.Unmarshal(raw, &payload); err != nil {
			return nil, err
		}
		cp.Payload = payload
	}

	if event.PublishedAt != nil {
		t := *event.PublishedAt
		cp.PublishedAt = &t
	}
	return &cp, nil
}
