package returns

import (
	"context"
	"strconv"

	domain "assetloan-backend/internal/domain/loan"
	"assetloan-backend/internal/domain/uow"
	"assetloan-backend/internal/usecase/notify"
)

type Usecase struct {
	uow      uow.UnitOfWork
	machine  domain.Machine
	notifier *notify.Notifier
	limits   domain.AttachmentLimits
}

func NewUsecase(tx uow.UnitOfWork, m domain.Machine, n *notify.Notifier, limits domain.AttachmentLimits) *Usecase {
	return &Usecase{uow: tx, machine: m, notifier: n, limits: limits}
}

// Request files a return for a borrowed loan. Warehouse, the company deciders
// and the borrower are told.
func (u *Usecase) Request(ctx context.Context, loanID string, in RequestInput, actor domain.Actor) (*Result, error) {
	var res *Result
	var batch notify.Batch
	err := uow.RetryStale(func() error {
		return u.uow.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *domain.Loan) error {
			next, entry, err := u.machine.RequestReturn(l, domain.ReturnRequestInput{
				Note:        in.Note,
				Photos:      in.Photos,
				RequestedBy: actor.Display(),
			}, u.limits)
			if err != nil {
				return err
			}
			vars := map[string]string{
				"note":        entry.Note,
				"requestedBy": entry.RequestedBy,
				"photos":      strconv.Itoa(len(entry.PhotoResults)),
			}
			slot := domain.LedgerSlot{Event: domain.EventReturnRequest, Ref: entry.ID}
			b, col, err := u.notifier.Prepare(ctx, next, slot, vars)
			if err != nil {
				return err
			}
			if err := r.Loans.Save(ctx, next, col, "return_status"); err != nil {
				return err
			}
			res, batch = &Result{Loan: next, Entry: next.Returns().Latest()}, b
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	u.notifier.Dispatch(batch, res.Loan)
	return res, nil
}

// Decide resolves the active return request. Approval completes the loan.
func (u *Usecase) Decide(ctx context.Context, loanID string, in DecideInput, actor domain.Actor) (*Result, error) {
	var res *Result
	var batch notify.Batch
	err := uow.RetryStale(func() error {
		return u.uow.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *domain.Loan) error {
			next, entry, err := u.machine.DecideReturn(l, domain.Decision{Action: in.Action, Note: in.Note, Condition: in.Condition}, actor)
			if err != nil {
				return err
			}
			vars := map[string]string{
				"action":    entry.Status,
				"note":      entry.DecisionNote,
				"condition": entry.Condition,
				"decidedBy": entry.ProcessedBy,
			}
			slot := domain.LedgerSlot{Event: domain.EventReturnDecision, Ref: entry.ID}
			b, col, err := u.notifier.Prepare(ctx, next, slot, vars)
			if err != nil {
				return err
			}
			if err := r.Loans.Save(ctx, next, col, "return_status", "warehouse_status", "loan_status"); err != nil {
				return err
			}
			res, batch = &Result{Loan: next, Entry: findReturn(next, entry.ID)}, b
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	u.notifier.Dispatch(batch, res.Loan)
	return res, nil
}

func findReturn(l *domain.Loan, id string) *domain.ReturnEntry {
	for _, e := range l.Returns() {
		if e.ID == id {
			return &e
		}
	}
	return nil
}
