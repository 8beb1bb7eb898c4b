package domain

import (
	"time"
)

// ClientTransactionKey identifies a client transaction as seen by one account.
type ClientTransactionKey struct {
	ClientTransactionID string
	AccountID           string
}

func (k ClientTransactionKey) String() string {
	return k.ClientTransactionID + "/" + k.AccountID
}

// ClientTransactionUpdate is the state of a client transaction right after one
// accepted posting instruction. Balances are cumulative.
type ClientTransactionUpdate struct {
	AtDatetime        time.Time
	InstructionType   InstructionType
	CommittedPostings []CommittedPosting
	Balances          Balances
	Completed         bool
	Released          bool
}

func (u ClientTransactionUpdate) clone() ClientTransactionUpdate {
	postings := make([]CommittedPosting, len(u.CommittedPostings))
	copy(postings, u.CommittedPostings)
	u.CommittedPostings = postings
	u.Balances = u.Balances.Clone()
	return u
}

// LedgerPhase is the coarse lifecycle position of a client transaction.
type LedgerPhase int

const (
	LedgerEmpty LedgerPhase = iota
	LedgerOpen
	LedgerFinalised
)

func (p LedgerPhase) String() string {
	switch p {
	case LedgerOpen:
		return "open"
	case LedgerFinalised:
		return "finalised"
	default:
		return "empty"
	}
}

// LedgerState is Empty, Open(chain) or Finalised.
type LedgerState struct {
	Phase LedgerPhase
	Chain ChainKind
}

// CanExtend reports whether any further instruction could be accepted.
// A single-shot transaction is open but can never be extended.
func (s LedgerState) CanExtend() bool {
	return s.Phase == LedgerEmpty || (s.Phase == LedgerOpen && s.Chain != ChainSingleShot)
}

// ClientTransaction owns the append-only history of updates for one
// (client transaction id, account id) pair.
//
// It is not safe for concurrent use: callers serialise Submit against any other
// call on the same instance.
type ClientTransaction struct {
	key       ClientTransactionKey
	updates   []ClientTransactionUpdate
	firstType InstructionType
}

// NewClientTransaction creates an empty client transaction.
func NewClientTransaction(clientTransactionID, accountID string) *ClientTransaction {
	return &ClientTransaction{
		key: ClientTransactionKey{
			ClientTransactionID: clientTransactionID,
			AccountID:           accountID,
		},
	}
}

// Key returns the identity of the client transaction.
func (ct *ClientTransaction) Key() ClientTransactionKey {
	return ct.key
}

// ID returns the client transaction id.
func (ct *ClientTransaction) ID() string {
	return ct.key.ClientTransactionID
}

// AccountID returns the owning account id.
func (ct *ClientTransaction) AccountID() string {
	return ct.key.AccountID
}

// FirstType returns the type of the first accepted instruction.
func (ct *ClientTransaction) FirstType() (InstructionType, bool) {
	return ct.firstType, len(ct.updates) > 0
}

// Len returns the number of accepted instructions.
func (ct *ClientTransaction) Len() int {
	return len(ct.updates)
}

// Updates returns a copy of the history, oldest first.
func (ct *ClientTransaction) Updates() []ClientTransactionUpdate {
	out := make([]ClientTransactionUpdate, len(ct.updates))
	for i, u := range ct.updates {
		out[i] = u.clone()
	}
	return out
}

// LatestUpdate returns the most recent update, if any.
func (ct *ClientTransaction) LatestUpdate() (ClientTransactionUpdate, bool) {
	if len(ct.updates) == 0 {
		return ClientTransactionUpdate{}, false
	}
	return ct.updates[len(ct.updates)-1].clone(), true
}

// State returns the lifecycle state.
func (ct *ClientTransaction) State() LedgerState {
	if len(ct.updates) == 0 {
		return LedgerState{Phase: LedgerEmpty, Chain: ChainNone}
	}
	chain := ChainKindOf(ct.firstType)
	last := ct.updates[len(ct.updates)-1]
	if last.Completed || last.Released {
		return LedgerState{Phase: LedgerFinalised, Chain: chain}
	}
	return LedgerState{Phase: LedgerOpen, Chain: chain}
}

// Submit validates a posting instruction and, if it is legal, appends a new
// update. A rejected instruction leaves the client transaction unchanged.
func (ct *ClientTransaction) Submit(
	at time.Time,
	postings []CommittedPosting,
	instructionType InstructionType,
	final bool,
) (ClientTransactionUpdate, error) {
	sub := Submission{
		AtDatetime:      at,
		Postings:        postings,
		InstructionType: instructionType,
		Final:           final,
	}
	if err := ValidateSubmission(ct.sequencingState(), sub); err != nil {
		return ClientTransactionUpdate{}, err
	}

	var previous Balances
	if n := len(ct.updates); n > 0 {
		previous = ct.updates[n-1].Balances
	}

	committed := make([]CommittedPosting, len(postings))
	copy(committed, postings)

	update := ClientTransactionUpdate{
		AtDatetime:        at,
		InstructionType:   instructionType,
		CommittedPostings: committed,
		Balances:          previous.Merge(DeriveBalanceDiff(committed)),
		Completed:         instructionType == InstructionSettlement && final,
		Released:          instructionType == InstructionRelease,
	}

	if len(ct.updates) == 0 {
		ct.firstType = instructionType
	}
	ct.updates = append(ct.updates, update)

	return update.clone(), nil
}

func (ct *ClientTransaction) sequencingState() SequencingState {
	state := SequencingState{
		ClientTransactionID: ct.key.ClientTransactionID,
		AccountID:           ct.key.AccountID,
	}
	if n := len(ct.updates); n > 0 {
		last := ct.updates[n-1]
		state.FirstType = ct.firstType
		state.Last = &last
	}
	return state
}
