package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	t0 = time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	t1 = t0.Add(time.Hour)
	t2 = t1.Add(time.Hour)
	t3 = t2.Add(time.Hour)
)

func posting(amount int64, credit bool, phase Phase) CommittedPosting {
	return NewCommittedPosting("account-a", decimal.NewFromInt(amount), "GBP", credit, phase)
}

func gbpKey(phase Phase) BalanceKey {
	return BalanceKey{AccountAddress: DefaultAddress, Asset: DefaultAsset, Denomination: "GBP", Phase: phase}
}

func value(debit, credit int64) BalanceValue {
	return BalanceValue{Debit: decimal.NewFromInt(debit), Credit: decimal.NewFromInt(credit)}
}

func assertBalances(t *testing.T, want, got Balances) {
	t.Helper()
	if !want.Equal(got) {
		t.Fatalf("balances mismatch:\nwant %v\ngot  %v", want, got)
	}
}

func authorisedTransaction(t *testing.T) *ClientTransaction {
	t.Helper()
	ct := NewClientTransaction("ctx-1", "account-a")
	_, err := ct.Submit(t1, []CommittedPosting{posting(100, true, PhasePendingIn)}, InstructionInboundAuthorisation, false)
	require.NoError(t, err)
	return ct
}

func TestClientTransaction_InboundAuthorisation(t *testing.T) {
	ct := authorisedTransaction(t)

	assertBalances(t, Balances{gbpKey(PhasePendingIn): value(0, 100)}, ct.BalancesAt(nil))

	first, ok := ct.FirstType()
	require.True(t, ok)
	assert.Equal(t, InstructionInboundAuthorisation, first)
	assert.Equal(t, LedgerState{Phase: LedgerOpen, Chain: ChainAuthorisation}, ct.State())
}

func TestClientTransaction_AdjustmentKeepsHistory(t *testing.T) {
	ct := authorisedTransaction(t)

	_, err := ct.Submit(t2, []CommittedPosting{posting(50, false, PhasePendingIn)}, InstructionAuthorisationAdjustment, false)
	require.NoError(t, err)

	assertBalances(t, Balances{gbpKey(PhasePendingIn): value(50, 100)}, ct.BalancesAt(&t2))
	assertBalances(t, Balances{gbpKey(PhasePendingIn): value(0, 100)}, ct.BalancesAt(&t1))
}

func TestClientTransaction_FinalSettlementCompletes(t *testing.T) {
	ct := authorisedTransaction(t)
	_, err := ct.Submit(t2, []CommittedPosting{posting(50, false, PhasePendingIn)}, InstructionAuthorisationAdjustment, false)
	require.NoError(t, err)

	update, err := ct.Submit(t3, []CommittedPosting{
		posting(50, false, PhasePendingIn),
		posting(100, true, PhaseCommitted),
	}, InstructionSettlement, true)
	require.NoError(t, err)

	assert.True(t, update.Completed)
	assert.False(t, update.Released)
	assertBalances(t, Balances{
		gbpKey(PhasePendingIn): value(100, 100),
		gbpKey(PhaseCommitted): value(0, 100),
	}, ct.BalancesAt(nil))
	assert.Equal(t, LedgerFinalised, ct.State().Phase)

	latest, ok := ct.LatestUpdate()
	require.True(t, ok)
	assert.True(t, latest.Completed)
}

func TestClientTransaction_NonFinalSettlementStaysOpen(t *testing.T) {
	ct := authorisedTransaction(t)

	update, err := ct.Submit(t2, []CommittedPosting{posting(40, true, PhaseCommitted)}, InstructionSettlement, false)
	require.NoError(t, err)
	assert.False(t, update.Completed)

	_, err = ct.Submit(t3, []CommittedPosting{posting(60, true, PhaseCommitted)}, InstructionSettlement, true)
	require.NoError(t, err)
	assert.True(t, ct.Completed(nil))
}

func TestClientTransaction_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(t *testing.T) *ClientTransaction
		at     time.Time
		typ    InstructionType
		legs   []CommittedPosting
		final  bool
		expect error
	}{
		{
			name:   "settlement cannot start a chain",
			setup:  func(t *testing.T) *ClientTransaction { return NewClientTransaction("ctx-1", "account-a") },
			at:     t1,
			typ:    InstructionSettlement,
			legs:   []CommittedPosting{posting(10, true, PhaseCommitted)},
			expect: ErrIllegalChainStart,
		},
		{
			name:   "primary cannot extend",
			setup:  authorisedTransaction,
			at:     t2,
			typ:    InstructionInboundAuthorisation,
			legs:   []CommittedPosting{posting(10, true, PhasePendingIn)},
			expect: ErrIllegalExtension,
		},
		{
			name: "settlement after custom start",
			setup: func(t *testing.T) *ClientTransaction {
				ct := NewClientTransaction("ctx-1", "account-a")
				_, err := ct.Submit(t1, []CommittedPosting{posting(10, true, PhaseCommitted)}, InstructionCustom, false)
				require.NoError(t, err)
				return ct
			},
			at:     t2,
			typ:    InstructionSettlement,
			legs:   []CommittedPosting{posting(10, true, PhaseCommitted)},
			expect: ErrChainKindMismatch,
		},
		{
			name:   "backdated adjustment",
			setup:  authorisedTransaction,
			at:     t0,
			typ:    InstructionAuthorisationAdjustment,
			legs:   []CommittedPosting{posting(10, false, PhasePendingIn)},
			expect: ErrBackdating,
		},
		{
			name: "adjustment after release",
			setup: func(t *testing.T) *ClientTransaction {
				ct := authorisedTransaction(t)
				_, err := ct.Submit(t2, []CommittedPosting{posting(100, false, PhasePendingIn)}, InstructionRelease, false)
				require.NoError(t, err)
				return ct
			},
			at:     t3,
			typ:    InstructionAuthorisationAdjustment,
			legs:   []CommittedPosting{posting(10, false, PhasePendingIn)},
			expect: ErrAlreadyFinalised,
		},
		{
			name: "transfer is single shot",
			setup: func(t *testing.T) *ClientTransaction {
				ct := NewClientTransaction("ctx-1", "account-a")
				_, err := ct.Submit(t1, []CommittedPosting{posting(10, true, PhaseCommitted)}, InstructionTransfer, false)
				require.NoError(t, err)
				return ct
			},
			at:     t2,
			typ:    InstructionCustom,
			legs:   []CommittedPosting{posting(10, true, PhaseCommitted)},
			expect: ErrChainKindMismatch,
		},
		{
			name:   "empty batch",
			setup:  authorisedTransaction,
			at:     t2,
			typ:    InstructionSettlement,
			expect: ErrEmptyBatch,
		},
		{
			name:   "missing timestamp",
			setup:  authorisedTransaction,
			typ:    InstructionSettlement,
			legs:   []CommittedPosting{posting(10, true, PhaseCommitted)},
			expect: ErrMissingTimestamp,
		},
		{
			name:   "final on release",
			setup:  authorisedTransaction,
			at:     t2,
			typ:    InstructionRelease,
			legs:   []CommittedPosting{posting(10, false, PhasePendingIn)},
			final:  true,
			expect: ErrInvalidFinalFlag,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ct := tt.setup(t)
			before := ct.Updates()
			beforeFirst, beforeOK := ct.FirstType()
			beforeBalances := ct.BalancesAt(nil)

			_, err := ct.Submit(tt.at, tt.legs, tt.typ, tt.final)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.expect)

			var subErr *SubmissionError
			require.True(t, errors.As(err, &subErr))
			assert.Equal(t, "ctx-1", subErr.ClientTransactionID)

			assert.Equal(t, len(before), ct.Len())
			first, ok := ct.FirstType()
			assert.Equal(t, beforeOK, ok)
			assert.Equal(t, beforeFirst, first)
			assertBalances(t, beforeBalances, ct.BalancesAt(nil))
		})
	}
}

func TestClientTransaction_EqualTimestampsAllowed(t *testing.T) {
	ct := authorisedTransaction(t)

	_, err := ct.Submit(t1, []CommittedPosting{posting(10, false, PhasePendingIn)}, InstructionAuthorisationAdjustment, false)
	require.NoError(t, err)

	assertBalances(t, Balances{gbpKey(PhasePendingIn): value(10, 100)}, ct.BalancesAt(&t1))
}

func TestClientTransaction_BalancesAtBoundaries(t *testing.T) {
	empty := NewClientTransaction("ctx-1", "account-a")
	assert.Empty(t, empty.BalancesAt(nil))
	assert.Empty(t, empty.BalancesAt(&t1))

	ct := authorisedTransaction(t)
	assert.Empty(t, ct.BalancesAt(&t0))
	assertBalances(t, ct.BalancesAt(nil), ct.BalancesAt(&t3))

	between := t1.Add(30 * time.Minute)
	assertBalances(t, ct.BalancesAt(&t1), ct.BalancesAt(&between))
}

func TestClientTransaction_ReadsDoNotMutate(t *testing.T) {
	ct := authorisedTransaction(t)

	got := ct.BalancesAt(nil)
	got[gbpKey(PhaseCommitted)] = value(1, 1)
	delete(got, gbpKey(PhasePendingIn))

	latest, ok := ct.LatestUpdate()
	require.True(t, ok)
	latest.Balances[gbpKey(PhasePendingIn)] = value(999, 999)
	latest.CommittedPostings[0].Amount = decimal.NewFromInt(999)

	assertBalances(t, Balances{gbpKey(PhasePendingIn): value(0, 100)}, ct.BalancesAt(nil))
	again, _ := ct.LatestUpdate()
	assert.True(t, again.CommittedPostings[0].Amount.Equal(decimal.NewFromInt(100)))
}

func TestClientTransaction_CallerSliceIsCopied(t *testing.T) {
	ct := NewClientTransaction("ctx-1", "account-a")
	legs := []CommittedPosting{posting(100, true, PhasePendingIn)}

	_, err := ct.Submit(t1, legs, InstructionInboundAuthorisation, false)
	require.NoError(t, err)
	legs[0].Amount = decimal.NewFromInt(1)

	latest, _ := ct.LatestUpdate()
	assert.True(t, latest.CommittedPostings[0].Amount.Equal(decimal.NewFromInt(100)))
}

func TestClientTransaction_MonotonicAndAdditive(t *testing.T) {
	ct := NewClientTransaction("ctx-1", "account-a")
	steps := []struct {
		at    time.Time
		typ   InstructionType
		legs  []CommittedPosting
		final bool
	}{
		{t0, InstructionOutboundAuthorisation, []CommittedPosting{posting(80, false, PhasePendingOut)}, false},
		{t1, InstructionAuthorisationAdjustment, []CommittedPosting{posting(20, false, PhasePendingOut)}, false},
		{t1, InstructionSettlement, []CommittedPosting{posting(30, true, PhasePendingOut), posting(30, false, PhaseCommitted)}, false},
		{t2, InstructionSettlement, []CommittedPosting{posting(70, true, PhasePendingOut), posting(70, false, PhaseCommitted)}, true},
	}

	sum := Balances{}
	var previous Balances
	for _, step := range steps {
		update, err := ct.Submit(step.at, step.legs, step.typ, step.final)
		require.NoError(t, err)

		sum = sum.Merge(DeriveBalanceDiff(step.legs))
		assertBalances(t, sum, update.Balances)

		for key, before := range previous {
			after := update.Balances.Get(key)
			assert.True(t, after.Debit.GreaterThanOrEqual(before.Debit), "debit decreased for %v", key)
			assert.True(t, after.Credit.GreaterThanOrEqual(before.Credit), "credit decreased for %v", key)
		}
		previous = update.Balances
	}

	updates := ct.Updates()
	for i := 1; i < len(updates); i++ {
		assert.False(t, updates[i].AtDatetime.Before(updates[i-1].AtDatetime))
	}

	_, err := ct.Submit(t3, []CommittedPosting{posting(1, false, PhasePendingOut)}, InstructionRelease, false)
	assert.ErrorIs(t, err, ErrAlreadyFinalised)
}

func TestClientTransaction_CustomChain(t *testing.T) {
	ct := NewClientTransaction("ctx-1", "account-a")

	for i, at := range []time.Time{t1, t2, t3} {
		update, err := ct.Submit(at, []CommittedPosting{posting(int64(i+1), i%2 == 0, PhaseCommitted)}, InstructionCustom, false)
		require.NoError(t, err)
		assert.False(t, update.Completed)
		assert.False(t, update.Released)
	}

	assert.True(t, ct.IsCustom())
	assert.Equal(t, LedgerState{Phase: LedgerOpen, Chain: ChainCustom}, ct.State())
	assertBalances(t, Balances{gbpKey(PhaseCommitted): value(2, 4)}, ct.BalancesAt(nil))
}

func TestClientTransaction_SingleShotCannotExtend(t *testing.T) {
	ct := NewClientTransaction("ctx-1", "account-a")
	_, err := ct.Submit(t1, []CommittedPosting{posting(10, true, PhaseCommitted)}, InstructionInboundHardSettlement, false)
	require.NoError(t, err)

	state := ct.State()
	assert.Equal(t, ChainSingleShot, state.Chain)
	assert.False(t, state.CanExtend())

	for _, typ := range InstructionTypes() {
		_, err := ct.Submit(t2, []CommittedPosting{posting(1, true, PhaseCommitted)}, typ, false)
		assert.Error(t, err, typ.String())
	}
	assert.Equal(t, 1, ct.Len())
}

func TestClientTransaction_CompletedReleasedAt(t *testing.T) {
	ct := authorisedTransaction(t)
	_, err := ct.Submit(t2, []CommittedPosting{posting(100, false, PhasePendingIn)}, InstructionRelease, false)
	require.NoError(t, err)

	assert.True(t, ct.Released(nil))
	assert.False(t, ct.Released(&t2))
	assert.True(t, ct.Released(&t3))
	assert.False(t, ct.Completed(nil))

	start, ok := ct.StartDatetime()
	require.True(t, ok)
	assert.Equal(t, t1, start)
	assert.Equal(t, "GBP", ct.Denomination())
}
