package notify

import (
	"context"

	"assetloan-backend/internal/domain/ledger"
	"assetloan-backend/internal/domain/loan"
	"assetloan-backend/internal/domain/uow"
)

// LedgerStore writes delivery receipts back onto the loan. Every write reads
// the latest stored loan and merges only the addressed ledger, so concurrent
// writers to other paths keep their receipts.
type LedgerStore struct {
	uow uow.UnitOfWork
}

func NewLedgerStore(u uow.UnitOfWork) *LedgerStore { return &LedgerStore{uow: u} }

// MergeReceipts marks the receipts sent. Nothing is written when every
// receipt was already sent.
func (s *LedgerStore) MergeReceipts(ctx context.Context, loanID string, slot loan.LedgerSlot, receipts []ledger.Entry) error {
	if len(receipts) == 0 {
		return nil
	}
	return uow.RetryStale(func() error {
		return s.uow.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *loan.Loan) error {
			changed := false
			col, err := l.UpdateLedger(slot, func(led *ledger.Ledger) {
				for _, e := range receipts {
					if !led.IsSent(e.Audience, e.Key, e.Role) {
						changed = true
					}
					led.MergeSent(e)
				}
			})
			if err != nil || !changed {
				return err
			}
			return r.Loans.Save(ctx, l, col)
		})
	})
}
