package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iho/clienttx/internal/domain"
)

// ClientTransactionRepository implements usecase.ClientTransactionRepository
// on top of a process-local map.
type ClientTransactionRepository struct {
	mu    sync.RWMutex
	items map[domain.ClientTransactionKey]*storedTransaction
}

// storedTransaction keeps the start datetime captured at Save so listing
// never reads an aggregate that a concurrent submit may be extending.
type storedTransaction struct {
	ct    *domain.ClientTransaction
	start time.Time
}

// NewClientTransactionRepository creates a new ClientTransactionRepository.
func NewClientTransactionRepository() *ClientTransactionRepository {
	return &ClientTransactionRepository{
		items: make(map[domain.ClientTransactionKey]*storedTransaction),
	}
}

// Get retrieves a client transaction by key.
func (r *ClientTransactionRepository) Get(ctx context.Context, key domain.ClientTransactionKey) (*domain.ClientTransaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[key]
	if !ok {
		return nil, domain.ErrClientTransactionNotFound
	}
	return item.ct, nil
}

// Save stores a client transaction under its key. The caller must hold the
// aggregate's write lock.
func (r *ClientTransactionRepository) Save(ctx context.Context, ct *domain.ClientTransaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	start, _ := ct.StartDatetime()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[ct.Key()] = &storedTransaction{ct: ct, start: start}
	return nil
}

// ListByAccount returns the client transactions of an account ordered by
// start datetime, then client transaction id.
func (r *ClientTransactionRepository) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.ClientTransaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	matched := make([]storedTransaction, 0)
	for key, item := range r.items {
		if key.AccountID == accountID {
			matched = append(matched, *item)
		}
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].start.Equal(matched[j].start) {
			return matched[i].start.Before(matched[j].start)
		}
		return matched[i].ct.ID() < matched[j].ct.ID()
	})

	if offset >= len(matched) {
		return []*domain.ClientTransaction{}, nil
	}
	end := len(matched)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}

	page := make([]*domain.ClientTransaction, 0, end-offset)
	for _, item := range matched[offset:end] {
		page = append(page, item.ct)
	}
	return page, nil
}

// Count returns the number of stored client transactions.
func (r *ClientTransactionRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}
