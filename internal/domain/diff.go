package domain

// DeriveBalanceDiff returns the debit/credit change introduced by postings
// alone. Postings sharing a dimension are summed.
func DeriveBalanceDiff(postings []CommittedPosting) Balances {
	diff := make(Balances, len(postings))
	for _, posting := range postings {
		key := posting.Key()
		value := diff.Get(key)
		if posting.Credit {
			value.Credit = value.Credit.Add(posting.Amount)
		} else {
			value.Debit = value.Debit.Add(posting.Amount)
		}
		diff[key] = value
	}
	return diff
}
