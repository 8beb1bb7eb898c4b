package usecase

import (
	"time"

	"github.com/iho/clienttx/internal/domain"
)

// Snapshot is a read-only copy of a client transaction taken under its lock.
type Snapshot struct {
	Key           domain.ClientTransactionKey
	FirstType     *domain.InstructionType
	State         domain.LedgerState
	IsCustom      bool
	Completed     bool
	Released      bool
	StartDatetime *time.Time
	Denomination  string
	Updates       []domain.ClientTransactionUpdate
}

// Latest returns the last update of the snapshot, if any.
func (s *Snapshot) Latest() (domain.ClientTransactionUpdate, bool) {
	if len(s.Updates) == 0 {
		return domain.ClientTransactionUpdate{}, false
	}
	return s.Updates[len(s.Updates)-1], true
}

func newSnapshot(ct *domain.ClientTransaction) *Snapshot {
	s := &Snapshot{
		Key:          ct.Key(),
		State:        ct.State(),
		IsCustom:     ct.IsCustom(),
		Completed:    ct.Completed(nil),
		Released:     ct.Released(nil),
		Denomination: ct.Denomination(),
		Updates:      ct.Updates(),
	}
	if first, ok := ct.FirstType(); ok {
		s.FirstType = &first
	}
	if start, ok := ct.StartDatetime(); ok {
		s.StartDatetime = &start
	}
	return s
}
