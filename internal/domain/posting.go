package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	// DefaultAddress is the balance address used when a posting does not name one.
	DefaultAddress = "DEFAULT"
	// DefaultAsset is the asset used when a posting does not name one.
	DefaultAsset = "COMMERCIAL_BANK_MONEY"
)

// Phase is where in the settlement lifecycle an amount currently sits.
type Phase int

const (
	PhasePendingIn Phase = iota + 1
	PhasePendingOut
	PhaseCommitted
)

var phaseNames = map[Phase]string{
	PhasePendingIn:  "pending_in",
	PhasePendingOut: "pending_out",
	PhaseCommitted:  "committed",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// Valid reports whether p is one of the known phases.
func (p Phase) Valid() bool {
	_, ok := phaseNames[p]
	return ok
}

// ParsePhase parses the wire name of a phase.
func ParsePhase(s string) (Phase, error) {
	for phase, name := range phaseNames {
		if name == s {
			return phase, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidPhase, s)
}

// MarshalText implements encoding.TextMarshaler.
func (p Phase) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPhase, int(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Phase) UnmarshalText(text []byte) error {
	parsed, err := ParsePhase(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// CommittedPosting is one money movement inside a posting instruction.
// It is a value type; nothing in this package modifies a posting after it is built.
type CommittedPosting struct {
	AccountID      string
	Amount         decimal.Decimal
	Denomination   string
	Credit         bool
	Phase          Phase
	AccountAddress string
	Asset          string
}

// NewCommittedPosting builds a posting on the default address and asset.
func NewCommittedPosting(accountID string, amount decimal.Decimal, denomination string, credit bool, phase Phase) CommittedPosting {
	return CommittedPosting{
		AccountID:      accountID,
		Amount:         amount,
		Denomination:   denomination,
		Credit:         credit,
		Phase:          phase,
		AccountAddress: DefaultAddress,
		Asset:          DefaultAsset,
	}
}

// Key returns the balance dimension this posting contributes to.
// An empty address or asset is read as the default.
func (p CommittedPosting) Key() BalanceKey {
	address := p.AccountAddress
	if address == "" {
		address = DefaultAddress
	}
	asset := p.Asset
	if asset == "" {
		asset = DefaultAsset
	}
	return BalanceKey{
		AccountAddress: address,
		Asset:          asset,
		Denomination:   p.Denomination,
		Phase:          p.Phase,
	}
}

// Validate checks the posting in isolation.
func (p CommittedPosting) Validate() error {
	if p.Amount.IsNegative() {
		return fmt.Errorf("%w: %s", ErrNegativeAmount, p.Amount)
	}
	if !p.Phase.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidPhase, int(p.Phase))
	}
	return nil
}
