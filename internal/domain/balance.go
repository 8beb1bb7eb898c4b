package domain

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Tside is the accounting side of an account. It only affects how a net
// balance is signed.
type Tside int

const (
	TsideAsset Tside = iota + 1
	TsideLiability
)

func (t Tside) String() string {
	switch t {
	case TsideAsset:
		return "asset"
	case TsideLiability:
		return "liability"
	default:
		return "unknown"
	}
}

// BalanceKey is the coordinate under which debit and credit totals are tracked.
type BalanceKey struct {
	AccountAddress string
	Asset          string
	Denomination   string
	Phase          Phase
}

// BalanceValue accumulates debits and credits for one BalanceKey.
type BalanceValue struct {
	Debit  decimal.Decimal
	Credit decimal.Decimal
}

// Add returns the key-wise sum of v and other.
func (v BalanceValue) Add(other BalanceValue) BalanceValue {
	return BalanceValue{
		Debit:  v.Debit.Add(other.Debit),
		Credit: v.Credit.Add(other.Credit),
	}
}

// Net returns credit minus debit for a liability account and debit minus
// credit for an asset account.
func (v BalanceValue) Net(tside Tside) decimal.Decimal {
	net := v.Credit.Sub(v.Debit)
	if tside == TsideAsset {
		return net.Neg()
	}
	return net
}

// Equal compares amounts numerically, so 1.0 equals 1.
func (v BalanceValue) Equal(other BalanceValue) bool {
	return v.Debit.Equal(other.Debit) && v.Credit.Equal(other.Credit)
}

// Balances maps balance dimensions to their totals.
type Balances map[BalanceKey]BalanceValue

// Get returns the value stored at key, or a zero value when the key is absent.
// It never inserts.
func (b Balances) Get(key BalanceKey) BalanceValue {
	if v, ok := b[key]; ok {
		return v
	}
	return BalanceValue{Debit: decimal.Zero, Credit: decimal.Zero}
}

// Merge returns a new Balances holding b plus diff. b is left untouched.
func (b Balances) Merge(diff Balances) Balances {
	merged := b.Clone()
	for key, value := range diff {
		if existing, ok := merged[key]; ok {
			merged[key] = existing.Add(value)
			continue
		}
		merged[key] = value
	}
	return merged
}

// Clone returns a shallow copy. Values are immutable so this is a full copy.
func (b Balances) Clone() Balances {
	out := make(Balances, len(b))
	for key, value := range b {
		out[key] = value
	}
	return out
}

// Equal reports whether both mappings hold the same keys with numerically
// equal values.
func (b Balances) Equal(other Balances) bool {
	if len(b) != len(other) {
		return false
	}
	for key, value := range b {
		o, ok := other[key]
		if !ok || !value.Equal(o) {
			return false
		}
	}
	return true
}

// Keys returns the keys in a stable order: address, asset, denomination, phase.
func (b Balances) Keys() []BalanceKey {
	keys := make([]BalanceKey, 0, len(b))
	for key := range b {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, c := keys[i], keys[j]
		if a.AccountAddress != c.AccountAddress {
			return a.AccountAddress < c.AccountAddress
		}
		if a.Asset != c.Asset {
			return a.Asset < c.Asset
		}
		if a.Denomination != c.Denomination {
			return a.Denomination < c.Denomination
		}
		return a.Phase < c.Phase
	})
	return keys
}
