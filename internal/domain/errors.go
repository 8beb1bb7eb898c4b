package domain

import (
	"errors"
	"fmt"
)

var (
	// Batch errors
	ErrEmptyBatch       = errors.New("committed postings required")
	ErrAccountMismatch  = errors.New("posting account does not match client transaction account")
	ErrNegativeAmount   = errors.New("posting amount must not be negative")
	ErrInvalidPhase     = errors.New("invalid posting phase")
	ErrInvalidFinalFlag = errors.New("final flag can only be used with settlement instructions")
	ErrMissingTimestamp = errors.New("posting instruction has no value datetime")

	// Sequencing errors
	ErrIllegalChainStart      = errors.New("client transaction cannot start with this instruction type")
	ErrIllegalExtension       = errors.New("instruction type cannot extend an existing client transaction")
	ErrChainKindMismatch      = errors.New("instruction type does not match the client transaction chain")
	ErrBackdating             = errors.New("client transaction does not support backdating")
	ErrAlreadyFinalised       = errors.New("client transaction has already been finalised")
	ErrUnknownInstructionType = errors.New("unknown instruction type")

	// Query errors
	ErrClientTransactionNotFound = errors.New("client transaction not found")
	ErrMixedBalanceDimensions    = errors.New("client transaction spans more than one address, asset or denomination")
)

// SubmissionError is returned when a posting instruction is rejected.
// Err is always one of the sentinel errors above.
type SubmissionError struct {
	ClientTransactionID string
	AccountID           string
	InstructionType     InstructionType
	Err                 error
	Detail              string
}

func (e *SubmissionError) Error() string {
	msg := fmt.Sprintf("client transaction %s (account %s): %s rejected: %v",
		e.ClientTransactionID, e.AccountID, e.InstructionType, e.Err)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// Reason returns a stable machine readable code for the rejection.
func (e *SubmissionError) Reason() string {
	return RejectionReason(e.Err)
}

// ReasonUnknown is the code of errors that are not rejections.
const ReasonUnknown = "UNKNOWN"

// RejectionReason maps a rejection to a stable code. Errors that are not
// rejections map to ReasonUnknown.
func RejectionReason(err error) string {
	switch {
	case errors.Is(err, ErrEmptyBatch):
		return "EMPTY_BATCH"
	case errors.Is(err, ErrAccountMismatch):
		return "ACCOUNT_MISMATCH"
	case errors.Is(err, ErrNegativeAmount):
		return "NEGATIVE_AMOUNT"
	case errors.Is(err, ErrInvalidPhase):
		return "INVALID_PHASE"
	case errors.Is(err, ErrInvalidFinalFlag):
		return "INVALID_FINAL_FLAG"
	case errors.Is(err, ErrMissingTimestamp):
		return "MISSING_TIMESTAMP"
	case errors.Is(err, ErrIllegalChainStart):
		return "ILLEGAL_CHAIN_START"
	case errors.Is(err, ErrIllegalExtension):
		return "ILLEGAL_EXTENSION"
	case errors.Is(err, ErrChainKindMismatch):
		return "CHAIN_KIND_MISMATCH"
	case errors.Is(err, ErrBackdating):
		return "BACKDATING"
	case errors.Is(err, ErrAlreadyFinalised):
		return "ALREADY_FINALISED"
	case errors.Is(err, ErrUnknownInstructionType):
		return "UNKNOWN_INSTRUCTION_TYPE"
	case errors.Is(err, ErrMixedBalanceDimensions):
		return "MIXED_BALANCE_DIMENSIONS"
	default:
		return ReasonUnknown
	}
}
