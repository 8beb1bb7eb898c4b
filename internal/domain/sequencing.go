package domain

import (
	"fmt"
	"time"
)

// Submission is a posting instruction proposed for a client transaction.
type Submission struct {
	AtDatetime      time.Time
	Postings        []CommittedPosting
	InstructionType InstructionType
	// Final marks the last settlement of an authorisation chain.
	Final bool
}

// SequencingState is the part of a client transaction the validator looks at.
type SequencingState struct {
	ClientTransactionID string
	AccountID           string
	// FirstType is zero while the transaction has no updates.
	FirstType InstructionType
	// Last is nil while the transaction has no updates.
	Last *ClientTransactionUpdate
}

// ValidateSubmission decides whether sub may be appended to a client
// transaction in state. The first violated rule wins. It has no side effects.
func ValidateSubmission(state SequencingState, sub Submission) error {
	reject := func(err error, detail string) error {
		return &SubmissionError{
			ClientTransactionID: state.ClientTransactionID,
			AccountID:           state.AccountID,
			InstructionType:     sub.InstructionType,
			Err:                 err,
			Detail:              detail,
		}
	}

	if len(sub.Postings) == 0 {
		return reject(ErrEmptyBatch, "")
	}
	for i, posting := range sub.Postings {
		if posting.AccountID != state.AccountID {
			return reject(ErrAccountMismatch, fmt.Sprintf("posting %d has account %q", i, posting.AccountID))
		}
		if err := posting.Validate(); err != nil {
			return reject(err, fmt.Sprintf("posting %d", i))
		}
	}

	if sub.Final && sub.InstructionType != InstructionSettlement {
		return reject(ErrInvalidFinalFlag, "")
	}

	if sub.AtDatetime.IsZero() {
		return reject(ErrMissingTimestamp, "")
	}

	class := sub.InstructionType.Class()

	if state.Last == nil {
		switch class {
		case ClassPrimary, ClassNonChainable, ClassCustom:
			return nil
		case ClassSecondary:
			return reject(ErrIllegalChainStart, "")
		default:
			return reject(ErrUnknownInstructionType, "")
		}
	}

	last := state.Last
	if last.Completed || last.Released {
		return reject(ErrAlreadyFinalised, "")
	}

	if sub.AtDatetime.Before(last.AtDatetime) {
		return reject(ErrBackdating, fmt.Sprintf("%s is before last update at %s",
			sub.AtDatetime.Format(time.RFC3339Nano), last.AtDatetime.Format(time.RFC3339Nano)))
	}

	switch class {
	case ClassPrimary, ClassNonChainable:
		return reject(ErrIllegalExtension, "")
	case ClassSecondary:
		if state.FirstType.Class() != ClassPrimary {
			return reject(ErrChainKindMismatch, fmt.Sprintf("chain started with %s", state.FirstType))
		}
		return nil
	case ClassCustom:
		if state.FirstType.Class() != ClassCustom {
			return reject(ErrChainKindMismatch, fmt.Sprintf("chain started with %s", state.FirstType))
		}
		return nil
	default:
		return reject(ErrUnknownInstructionType, "")
	}
}
