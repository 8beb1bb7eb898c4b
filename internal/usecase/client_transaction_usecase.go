package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/clienttx/internal/domain"
	logging "github.com/iho/clienttx/internal/infrastructure/logger"
	"github.com/iho/clienttx/internal/infrastructure/metrics"
)

// ClientTransactionUseCase accepts posting instructions and answers balance
// queries. Calls for the same (client transaction id, account id) are
// serialised; calls for different keys run independently.
type ClientTransactionUseCase struct {
	repo       ClientTransactionRepository
	outboxRepo OutboxRepository
	idGen      IDGenerator
	locks      *keyedLocks
	logger     zerolog.Logger
	metrics    *metrics.Metrics
	now        func() time.Time
}

// NewClientTransactionUseCase creates a new ClientTransactionUseCase.
// outboxRepo and metrics may be nil.
func NewClientTransactionUseCase(
	repo ClientTransactionRepository,
	outboxRepo OutboxRepository,
	idGen IDGenerator,
	logger zerolog.Logger,
	metrics *metrics.Metrics,
) *ClientTransactionUseCase {
	return &ClientTransactionUseCase{
		repo:       repo,
		outboxRepo: outboxRepo,
		idGen:      idGen,
		locks:      newKeyedLocks(),
		logger:     logger.With().Str("component", "client_transaction_usecase").Logger(),
		metrics:    metrics,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// SubmitInstructionInput represents one posting instruction.
type SubmitInstructionInput struct {
	ClientTransactionID string
	AccountID           string
	InstructionType     domain.InstructionType
	AtDatetime          time.Time
	Final               bool
	Postings            []domain.CommittedPosting
}

// Key returns the client transaction key the input targets.
func (in SubmitInstructionInput) Key() domain.ClientTransactionKey {
	return domain.ClientTransactionKey{ClientTransactionID: in.ClientTransactionID, AccountID: in.AccountID}
}

// SubmitResult is the outcome of an accepted instruction.
type SubmitResult struct {
	Key      domain.ClientTransactionKey
	Sequence int
	Update   domain.ClientTransactionUpdate
	State    domain.LedgerState
}

// Submit applies a posting instruction to its client transaction, creating the
// transaction on its first instruction. A rejected instruction leaves no trace.
func (uc *ClientTransactionUseCase) Submit(ctx context.Context, input SubmitInstructionInput) (*SubmitResult, error) {
	start := time.Now()
	key := input.Key()
	if key.ClientTransactionID == "" || key.AccountID == "" {
		return nil, ErrMissingIdentifier
	}

	unlock := uc.locks.Lock(key)
	defer unlock()

	ct, err := uc.repo.Get(ctx, key)
	created := false
	if errors.Is(err, domain.ErrClientTransactionNotFound) {
		ct = domain.NewClientTransaction(key.ClientTransactionID, key.AccountID)
		created = true
	} else if err != nil {
		return nil, err
	}

	update, err := ct.Submit(input.AtDatetime, input.Postings, input.InstructionType, input.Final)
	if err != nil {
		uc.recordRejection(input, err)
		return nil, err
	}

	if err := uc.repo.Save(ctx, ct); err != nil {
		return nil, err
	}

	result := &SubmitResult{
		Key:      key,
		Sequence: ct.Len(),
		Update:   update,
		State:    ct.State(),
	}

	uc.emitEvent(ctx, result)
	uc.recordAcceptance(input, result, created, time.Since(start))

	return result, nil
}

func (uc *ClientTransactionUseCase) emitEvent(ctx context.Context, result *SubmitResult) {
	if uc.outboxRepo == nil {
		return
	}

	event := &domain.OutboxEvent{
		ID:            uc.idGen.Generate(),
		AggregateID:   result.Key.String(),
		AggregateType: domain.AggregateTypeClientTransaction,
		EventType:     domain.EventTypeFor(result.Update),
		Payload:       domain.ClientTransactionUpdatedPayload(result.Key, result.Sequence, result.Update),
		CreatedAt:     uc.now(),
		Published:     false,
	}

	// The update is already part of the history; a lost event is logged, not
	// turned into a rejection.
	if err := uc.outboxRepo.Create(ctx, event); err != nil {
		log := logging.ForClientTransaction(uc.logger, result.Key)
		log.Error().
			Err(err).
			Str("event_type", event.EventType).
			Msg("failed to write outbox event")
	}
}

func (uc *ClientTransactionUseCase) recordRejection(input SubmitInstructionInput, err error) {
	reason := domain.RejectionReason(err)

	log := logging.ForClientTransaction(uc.logger, input.Key())
	log.Warn().
		Str("instruction_type", input.InstructionType.String()).
		Str("reason", reason).
		Err(err).
		Msg("posting instruction rejected")

	if uc.metrics != nil {
		uc.metrics.Submissions.WithLabelValues(input.InstructionType.String(), "rejected").Inc()
		uc.metrics.Rejections.WithLabelValues(reason).Inc()
	}
}

func (uc *ClientTransactionUseCase) recordAcceptance(input SubmitInstructionInput, result *SubmitResult, created bool, elapsed time.Duration) {
	log := logging.ForClientTransaction(uc.logger, input.Key())
	log.Info().
		Str("instruction_type", input.InstructionType.String()).
		Int("sequence", result.Sequence).
		Int("postings", len(input.Postings)).
		Bool("completed", result.Update.Completed).
		Bool("released", result.Update.Released).
		Msg("posting instruction accepted")

	if uc.metrics == nil {
		return
	}

	uc.metrics.Submissions.WithLabelValues(input.InstructionType.String(), "accepted").Inc()
	uc.metrics.SubmitDuration.Observe(elapsed.Seconds())
	for _, p := range input.Postings {
		uc.metrics.PostingAmount.WithLabelValues(p.Denomination).Observe(p.Amount.InexactFloat64())
	}
	if created {
		uc.metrics.TransactionsOpen.WithLabelValues(result.State.Chain.String()).Inc()
	}
	switch {
	case result.Update.Completed:
		uc.metrics.TransactionsFinal.WithLabelValues("completed").Inc()
	case result.Update.Released:
		uc.metrics.TransactionsFinal.WithLabelValues("released").Inc()
	}
}

// GetBalances returns the cumulative balances as of at (nil for latest).
func (uc *ClientTransactionUseCase) GetBalances(ctx context.Context, key domain.ClientTransactionKey, at *time.Time) (domain.Balances, error) {
	var balances domain.Balances
	err := uc.read(ctx, key, "balances", func(ct *domain.ClientTransaction) error {
		balances = ct.BalancesAt(at)
		return nil
	})
	return balances, err
}

// GetLatestUpdate returns the most recent update of a client transaction.
func (uc *ClientTransactionUseCase) GetLatestUpdate(ctx context.Context, key domain.ClientTransactionKey) (*domain.ClientTransactionUpdate, error) {
	var latest *domain.ClientTransactionUpdate
	err := uc.read(ctx, key, "latest", func(ct *domain.ClientTransaction) error {
		update, ok := ct.LatestUpdate()
		if !ok {
			return domain.ErrClientTransactionNotFound
		}
		latest = &update
		return nil
	})
	return latest, err
}

// GetEffects returns the effects of a client transaction as of at. Custom
// instruction chains have no effects and yield nil.
func (uc *ClientTransactionUseCase) GetEffects(ctx context.Context, key domain.ClientTransactionKey, at *time.Time) (*domain.ClientTransactionEffects, error) {
	var effects *domain.ClientTransactionEffects
	err := uc.read(ctx, key, "effects", func(ct *domain.ClientTransaction) error {
		var err error
		effects, err = ct.Effects(at)
		return err
	})
	return effects, err
}

// GetClientTransaction returns a read-only snapshot of a client transaction.
func (uc *ClientTransactionUseCase) GetClientTransaction(ctx context.Context, key domain.ClientTransactionKey) (*Snapshot, error) {
	var snapshot *Snapshot
	err := uc.read(ctx, key, "snapshot", func(ct *domain.ClientTransaction) error {
		snapshot = newSnapshot(ct)
		return nil
	})
	return snapshot, err
}

// ListByAccountInput represents input for listing client transactions.
type ListByAccountInput struct {
	AccountID string
	Limit     int
	Offset    int
}

// ListByAccount lists client transactions of an account.
func (uc *ClientTransactionUseCase) ListByAccount(ctx context.Context, input ListByAccountInput) ([]*Snapshot, error) {
	if input.Limit <= 0 {
		input.Limit = DefaultPageSize
	}
	if input.Limit > MaxPageSize {
		input.Limit = MaxPageSize
	}
	if input.Offset < 0 {
		input.Offset = 0
	}

	cts, err := uc.repo.ListByAccount(ctx, input.AccountID, input.Limit, input.Offset)
	if err != nil {
		return nil, err
	}

	snapshots := make([]*Snapshot, 0, len(cts))
	for _, ct := range cts {
		unlock := uc.locks.RLock(ct.Key())
		snapshots = append(snapshots, newSnapshot(ct))
		unlock()
	}
	return snapshots, nil
}

func (uc *ClientTransactionUseCase) read(ctx context.Context, key domain.ClientTransactionKey, query string, fn func(*domain.ClientTransaction) error) error {
	if key.ClientTransactionID == "" || key.AccountID == "" {
		return ErrMissingIdentifier
	}
	if uc.metrics != nil {
		uc.metrics.Queries.WithLabelValues(query).Inc()
	}

	unlock := uc.locks.RLock(key)
	defer unlock()

	ct, err := uc.repo.Get(ctx, key)
	if err != nil {
		return err
	}
	return fn(ct)
}
