package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ClientTransactionEffects summarises what a client transaction has done to
// an account. Outbound amounts are negative.
type ClientTransactionEffects struct {
	Authorised decimal.Decimal
	Settled    decimal.Decimal
	Unsettled  decimal.Decimal
}

func zeroEffects() *ClientTransactionEffects {
	return &ClientTransactionEffects{
		Authorised: decimal.Zero,
		Settled:    decimal.Zero,
		Unsettled:  decimal.Zero,
	}
}

// Effects returns the effects of the transaction as of at (nil for latest).
// Custom instruction chains have no effects and return nil.
func (ct *ClientTransaction) Effects(at *time.Time) (*ClientTransactionEffects, error) {
	if ct.IsCustom() {
		return nil, nil
	}

	balances := ct.BalancesAt(at)
	if len(balances) == 0 {
		return zeroEffects(), nil
	}

	type dimension struct{ address, asset, denomination string }
	var dim dimension
	seen := false
	for key := range balances {
		d := dimension{key.AccountAddress, key.Asset, key.Denomination}
		if seen && d != dim {
			return nil, fmt.Errorf("%w: %s", ErrMixedBalanceDimensions, ct.key)
		}
		dim, seen = d, true
	}

	keyFor := func(phase Phase) BalanceKey {
		return BalanceKey{
			AccountAddress: dim.address,
			Asset:          dim.asset,
			Denomination:   dim.denomination,
			Phase:          phase,
		}
	}
	released := ct.Released(at)

	// Non-empty balances imply at least one update exists.
	if ct.updates[0].CommittedPostings[0].Credit {
		pending := balances.Get(keyFor(PhasePendingIn))
		effects := &ClientTransactionEffects{
			Authorised: pending.Credit,
			Settled:    balances.Get(keyFor(PhaseCommitted)).Credit,
			Unsettled:  decimal.Zero,
		}
		if !released {
			effects.Unsettled = pending.Net(TsideLiability).Abs()
		}
		return effects, nil
	}

	pending := balances.Get(keyFor(PhasePendingOut))
	effects := &ClientTransactionEffects{
		Authorised: pending.Debit.Neg(),
		Settled:    balances.Get(keyFor(PhaseCommitted)).Debit.Neg(),
		Unsettled:  decimal.Zero,
	}
	if !released {
		effects.Unsettled = pending.Net(TsideLiability).Abs().Neg()
	}
	return effects, nil
}
