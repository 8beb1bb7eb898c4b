package domain

import "time"

// Event types
const (
	EventTypeClientTransactionUpdated   = "client_transaction.updated"
	EventTypeClientTransactionCompleted = "client_transaction.completed"
	EventTypeClientTransactionReleased  = "client_transaction.released"
)

// AggregateTypeClientTransaction is the aggregate type of every event above.
const AggregateTypeClientTransaction = "client_transaction"

// OutboxEvent represents an event to be published
type OutboxEvent struct {
	ID            string
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       map[string]any
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Published     bool
}

// EventTypeFor returns the event type describing update.
func EventTypeFor(update ClientTransactionUpdate) string {
	switch {
	case update.Completed:
		return EventTypeClientTransactionCompleted
	case update.Released:
		return EventTypeClientTransactionReleased
	default:
		return EventTypeClientTransactionUpdated
	}
}

// ClientTransactionUpdatedPayload builds the outbox payload for an accepted
// instruction. Amounts are decimal strings.
func ClientTransactionUpdatedPayload(key ClientTransactionKey, sequence int, update ClientTransactionUpdate) map[string]any {
	balances := make([]map[string]any, 0, len(update.Balances))
	for _, k := range update.Balances.Keys() {
		v := update.Balances[k]
		balances = append(balances, map[string]any{
			"account_address": k.AccountAddress,
			"asset":           k.Asset,
			"denomination":    k.Denomination,
			"phase":           k.Phase.String(),
			"debit":           v.Debit.String(),
			"credit":          v.Credit.String(),
		})
	}

	return map[string]any{
		"client_transaction_id": key.ClientTransactionID,
		"account_id":            key.AccountID,
		"sequence":              sequence,
		"instruction_type":      update.InstructionType.String(),
		"at_datetime":           update.AtDatetime.UTC().Format(time.RFC3339Nano),
		"posting_count":         len(update.CommittedPostings),
		"completed":             update.Completed,
		"released":              update.Released,
		"balances":              balances,
	}
}
