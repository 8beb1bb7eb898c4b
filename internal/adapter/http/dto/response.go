package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/clienttx/internal/domain"
	"github.com/iho/clienttx/internal/usecase"
)

// PostingResponse represents a committed posting in API responses.
type PostingResponse struct {
	AccountID      string          `json:"account_id"`
	Amount         decimal.Decimal `json:"amount"`
	Denomination   string          `json:"denomination"`
	Credit         bool            `json:"credit"`
	Phase          domain.Phase    `json:"phase"`
	AccountAddress string          `json:"account_address"`
	Asset          string          `json:"asset"`
}

// BalanceResponse represents one balance entry in API responses.
type BalanceResponse struct {
	AccountAddress string          `json:"account_address"`
	Asset          string          `json:"asset"`
	Denomination   string          `json:"denomination"`
	Phase          domain.Phase    `json:"phase"`
	Debit          decimal.Decimal `json:"debit"`
	Credit         decimal.Decimal `json:"credit"`
}

// BalancesFromDomain converts balances to responses in key order.
func BalancesFromDomain(b domain.Balances) []BalanceResponse {
	keys := b.Keys()
	result := make([]BalanceResponse, len(keys))
	for i, k := range keys {
		v := b.Get(k)
		result[i] = BalanceResponse{
			AccountAddress: k.AccountAddress,
			Asset:          k.Asset,
			Denomination:   k.Denomination,
			Phase:          k.Phase,
			Debit:          v.Debit,
			Credit:         v.Credit,
		}
	}
	return result
}

// UpdateResponse represents a client transaction update in API responses.
type UpdateResponse struct {
	AtDatetime      time.Time              `json:"at_datetime"`
	InstructionType domain.InstructionType `json:"instruction_type"`
	Completed       bool                   `json:"completed"`
	Released        bool                   `json:"released"`
	Postings        []PostingResponse      `json:"postings"`
	Balances        []BalanceResponse      `json:"balances"`
}

// UpdateFromDomain converts a domain update to response.
func UpdateFromDomain(u domain.ClientTransactionUpdate) *UpdateResponse {
	postings := make([]PostingResponse, len(u.CommittedPostings))
	for i, p := range u.CommittedPostings {
		key := p.Key()
		postings[i] = PostingResponse{
			AccountID:      p.AccountID,
			Amount:         p.Amount,
			Denomination:   p.Denomination,
			Credit:         p.Credit,
			Phase:          p.Phase,
			AccountAddress: key.AccountAddress,
			Asset:          key.Asset,
		}
	}

	return &UpdateResponse{
		AtDatetime:      u.AtDatetime,
		InstructionType: u.InstructionType,
		Completed:       u.Completed,
		Released:        u.Released,
		Postings:        postings,
		Balances:        BalancesFromDomain(u.Balances),
	}
}

// StateResponse represents the lifecycle state of a client transaction.
type StateResponse struct {
	Phase     string `json:"phase"`
	Chain     string `json:"chain"`
	CanExtend bool   `json:"can_extend"`
}

// StateFromDomain converts a ledger state to response.
func StateFromDomain(s domain.LedgerState) StateResponse {
	return StateResponse{
		Phase:     s.Phase.String(),
		Chain:     s.Chain.String(),
		CanExtend: s.CanExtend(),
	}
}

// SubmitResponse represents an accepted posting instruction.
type SubmitResponse struct {
	ClientTransactionID string          `json:"client_transaction_id"`
	AccountID           string          `json:"account_id"`
	Sequence            int             `json:"sequence"`
	State               StateResponse   `json:"state"`
	Update              *UpdateResponse `json:"update"`
}

// SubmitFromUseCase converts a submit result to response.
func SubmitFromUseCase(r *usecase.SubmitResult) *SubmitResponse {
	return &SubmitResponse{
		ClientTransactionID: r.Key.ClientTransactionID,
		AccountID:           r.Key.AccountID,
		Sequence:            r.Sequence,
		State:               StateFromDomain(r.State),
		Update:              UpdateFromDomain(r.Update),
	}
}

// BalancesResponse represents balances of a client transaction at a point in time.
type BalancesResponse struct {
	ClientTransactionID string            `json:"client_transaction_id"`
	AccountID           string            `json:"account_id"`
	At                  *time.Time        `json:"at,omitempty"`
	Balances            []BalanceResponse `json:"balances"`
}

// EffectsResponse represents the effects of a client transaction.
// Custom is true for custom instruction chains, which have no effects.
type EffectsResponse struct {
	ClientTransactionID string           `json:"client_transaction_id"`
	AccountID           string           `json:"account_id"`
	At                  *time.Time       `json:"at,omitempty"`
	Custom              bool             `json:"custom"`
	Authorised          *decimal.Decimal `json:"authorised,omitempty"`
	Settled             *decimal.Decimal `json:"settled,omitempty"`
	Unsettled           *decimal.Decimal `json:"unsettled,omitempty"`
}

// EffectsFromDomain converts effects to response. A nil effects marks a
// custom chain.
func EffectsFromDomain(key domain.ClientTransactionKey, at *time.Time, e *domain.ClientTransactionEffects) *EffectsResponse {
	resp := &EffectsResponse{
		ClientTransactionID: key.ClientTransactionID,
		AccountID:           key.AccountID,
		At:                  at,
	}
	if e == nil {
		resp.Custom = true
		return resp
	}
	resp.Authorised = &e.Authorised
	resp.Settled = &e.Settled
	resp.Unsettled = &e.Unsettled
	return resp
}

// ClientTransactionResponse represents a client transaction snapshot.
type ClientTransactionResponse struct {
	ClientTransactionID string                  `json:"client_transaction_id"`
	AccountID           string                  `json:"account_id"`
	FirstType           *domain.InstructionType `json:"first_instruction_type,omitempty"`
	State               StateResponse           `json:"state"`
	IsCustom            bool                    `json:"is_custom"`
	Completed           bool                    `json:"completed"`
	Released            bool                    `json:"released"`
	StartDatetime       *time.Time              `json:"start_datetime,omitempty"`
	Denomination        string                  `json:"denomination,omitempty"`
	Updates             []*UpdateResponse       `json:"updates"`
}

// ClientTransactionFromSnapshot converts a snapshot to response.
func ClientTransactionFromSnapshot(s *usecase.Snapshot) *ClientTransactionResponse {
	updates := make([]*UpdateResponse, len(s.Updates))
	for i, u := range s.Updates {
		updates[i] = UpdateFromDomain(u)
	}

	return &ClientTransactionResponse{
		ClientTransactionID: s.Key.ClientTransactionID,
		AccountID:           s.Key.AccountID,
		FirstType:           s.FirstType,
		State:               StateFromDomain(s.State),
		IsCustom:            s.IsCustom,
		Completed:           s.Completed,
		Released:            s.Released,
		StartDatetime:       s.StartDatetime,
		Denomination:        s.Denomination,
		Updates:             updates,
	}
}

// ClientTransactionsFromSnapshots converts snapshots to responses.
func ClientTransactionsFromSnapshots(snapshots []*usecase.Snapshot) []*ClientTransactionResponse {
	result := make([]*ClientTransactionResponse, len(snapshots))
	for i, s := range snapshots {
		result[i] = ClientTransactionFromSnapshot(s)
	}
	return result
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message,omitempty"`
	Code    string            `json:"code,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}
