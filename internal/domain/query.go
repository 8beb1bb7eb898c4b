package domain

import (
	"sort"
	"time"
)

// BalancesAt returns the cumulative balances as of at. A nil at means the
// latest balances. The result is a copy; callers may modify it freely.
//
// Updates sharing a timestamp are all included once at reaches it.
func (ct *ClientTransaction) BalancesAt(at *time.Time) Balances {
	if len(ct.updates) == 0 {
		return Balances{}
	}
	if at == nil {
		return ct.updates[len(ct.updates)-1].Balances.Clone()
	}

	// AtDatetime is non-decreasing, so the first update after at is found by
	// binary search.
	i := sort.Search(len(ct.updates), func(i int) bool {
		return ct.updates[i].AtDatetime.After(*at)
	})
	if i == 0 {
		return Balances{}
	}
	return ct.updates[i-1].Balances.Clone()
}

// Completed reports whether a final settlement was accepted strictly before
// at. A nil at considers the whole history.
func (ct *ClientTransaction) Completed(at *time.Time) bool {
	return ct.anyBefore(at, func(u ClientTransactionUpdate) bool { return u.Completed })
}

// Released reports whether a release was accepted strictly before at.
// A nil at considers the whole history.
func (ct *ClientTransaction) Released(at *time.Time) bool {
	return ct.anyBefore(at, func(u ClientTransactionUpdate) bool { return u.Released })
}

func (ct *ClientTransaction) anyBefore(at *time.Time, match func(ClientTransactionUpdate) bool) bool {
	for _, u := range ct.updates {
		if at != nil && !u.AtDatetime.Before(*at) {
			break
		}
		if match(u) {
			return true
		}
	}
	return false
}

// IsCustom reports whether the transaction is a custom instruction chain.
func (ct *ClientTransaction) IsCustom() bool {
	return len(ct.updates) > 0 && ct.firstType == InstructionCustom
}

// StartDatetime returns the value datetime of the first instruction.
func (ct *ClientTransaction) StartDatetime() (time.Time, bool) {
	if len(ct.updates) == 0 {
		return time.Time{}, false
	}
	return ct.updates[0].AtDatetime, true
}

// Denomination returns the denomination of the first posting for transactions
// that did not start with a custom instruction.
func (ct *ClientTransaction) Denomination() string {
	if len(ct.updates) == 0 || ct.IsCustom() {
		return ""
	}
	return ct.updates[0].CommittedPostings[0].Denomination
}
