package extension

import (
	"context"

	domain "assetloan-backend/internal/domain/loan"
	"assetloan-backend/internal/domain/uow"
	"assetloan-backend/internal/usecase/notify"
)

const dateLayout = "2006-01-02"

type Usecase struct {
	uow      uow.UnitOfWork
	machine  domain.Machine
	notifier *notify.Notifier
}

func NewUsecase(tx uow.UnitOfWork, m domain.Machine, n *notify.Notifier) *Usecase {
	return &Usecase{uow: tx, machine: m, notifier: n}
}

// Request appends an extension request and notifies the deciders of every
// company on the loan.
func (u *Usecase) Request(ctx context.Context, loanID string, in RequestInput, actor domain.Actor) (*Result, error) {
	var res *Result
	var batch notify.Batch
	err := uow.RetryStale(func() error {
		return u.uow.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *domain.Loan) error {
			next, entry, err := u.machine.RequestExtension(l, domain.ExtendRequestInput{
				Note:                in.Note,
				RequestedReturnDate: in.RequestedReturnDate,
				RequestedBy:         actor.Display(),
			})
			if err != nil {
				return err
			}
			vars := map[string]string{
				"note":                entry.Note,
				"requestedReturnDate": entry.RequestedReturnDate.Format(dateLayout),
				"requestedBy":         entry.RequestBy,
			}
			slot := domain.LedgerSlot{Event: domain.EventExtendRequest, Ref: entry.ID}
			b, col, err := u.notifier.Prepare(ctx, next, slot, vars)
			if err != nil {
				return err
			}
			if err := r.Loans.Save(ctx, next, col); err != nil {
				return err
			}
			res, batch = &Result{Loan: next, Entry: latestExtend(next)}, b
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	u.notifier.Dispatch(batch, res.Loan)
	return res, nil
}

// Decide approves or rejects the latest extension request. Of two concurrent
// deciders exactly one wins; the other sees failure.ErrAlreadyProcessed.
func (u *Usecase) Decide(ctx context.Context, loanID string, in DecideInput, actor domain.Actor) (*Result, error) {
	var res *Result
	var batch notify.Batch
	err := uow.RetryStale(func() error {
		return u.uow.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *domain.Loan) error {
			next, entry, err := u.machine.DecideExtension(l, domain.Decision{Action: in.Action, Note: in.Note}, actor)
			if err != nil {
				return err
			}
			vars := map[string]string{
				"action":    string(entry.ApproveStatus),
				"note":      entry.ApproveNote,
				"decidedBy": entry.ApproveBy,
			}
			if entry.RequestedReturnDate != nil {
				vars["requestedReturnDate"] = entry.RequestedReturnDate.Format(dateLayout)
			}
			slot := domain.LedgerSlot{Event: domain.EventExtendDecision, Ref: entry.ID}
			b, col, err := u.notifier.Prepare(ctx, next, slot, vars)
			if err != nil {
				return err
			}
			if err := r.Loans.Save(ctx, next, col); err != nil {
				return err
			}
			res, batch = &Result{Loan: next, Entry: latestExtend(next)}, b
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	u.notifier.Dispatch(batch, res.Loan)
	return res, nil
}

// latestExtend re-reads the entry after Prepare so its pending ledger is included.
func latestExtend(l *domain.Loan) *domain.ExtendEntry { return l.Extends().Latest() }
