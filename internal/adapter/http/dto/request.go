package dto

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/clienttx/internal/domain"
	"github.com/iho/clienttx/internal/usecase"
)

// PostingRequest represents one committed posting leg.
type PostingRequest struct {
	AccountID      string          `json:"account_id"`
	Amount         decimal.Decimal `json:"amount"`
	Denomination   string          `json:"denomination"    validate:"required"`
	Credit         bool            `json:"credit"`
	Phase          string          `json:"phase"           validate:"required,oneof=pending_in pending_out committed"`
	AccountAddress string          `json:"account_address,omitempty"`
	Asset          string          `json:"asset,omitempty"`
}

// ToDomain converts to a domain posting. Empty address and asset take the
// defaults.
func (p *PostingRequest) ToDomain() (domain.CommittedPosting, error) {
	phase, err := domain.ParsePhase(p.Phase)
	if err != nil {
		return domain.CommittedPosting{}, err
	}

	posting := domain.NewCommittedPosting(p.AccountID, p.Amount, p.Denomination, p.Credit, phase)
	if p.AccountAddress != "" {
		posting.AccountAddress = p.AccountAddress
	}
	if p.Asset != "" {
		posting.Asset = p.Asset
	}
	return posting, nil
}

// SubmitInstructionRequest represents a posting instruction batch.
type SubmitInstructionRequest struct {
	InstructionType string           `json:"instruction_type" validate:"required"`
	AtDatetime      *time.Time       `json:"at_datetime"`
	Final           bool             `json:"final"`
	Postings        []PostingRequest `json:"postings"         validate:"dive"`
}

// ToUseCaseInput converts to use case input for the given client transaction.
func (r *SubmitInstructionRequest) ToUseCaseInput(clientTransactionID, accountID string) (usecase.SubmitInstructionInput, error) {
	instructionType, err := domain.ParseInstructionType(r.InstructionType)
	if err != nil {
		return usecase.SubmitInstructionInput{}, err
	}

	postings := make([]domain.CommittedPosting, len(r.Postings))
	for i := range r.Postings {
		posting, err := r.Postings[i].ToDomain()
		if err != nil {
			return usecase.SubmitInstructionInput{}, fmt.Errorf("postings[%d]: %w", i, err)
		}
		postings[i] = posting
	}

	var at time.Time
	if r.AtDatetime != nil {
		at = r.AtDatetime.UTC()
	}

	return usecase.SubmitInstructionInput{
		ClientTransactionID: clientTransactionID,
		AccountID:           accountID,
		InstructionType:     instructionType,
		AtDatetime:          at,
		Final:               r.Final,
		Postings:            postings,
	}, nil
}
