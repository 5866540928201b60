package loan

import (
	"context"
	"errors"
	"strings"

	"assetloan-backend/internal/domain/failure"
	"assetloan-backend/internal/domain/ledger"
	domain "assetloan-backend/internal/domain/loan"
	"assetloan-backend/internal/domain/uow"
	"assetloan-backend/internal/usecase/notify"
	"assetloan-backend/pkg/id"
)

type Usecase struct {
	repo     domain.Repository
	uow      uow.UnitOfWork
	machine  domain.Machine
	notifier *notify.Notifier
}

func NewUsecase(r domain.Repository, tx uow.UnitOfWork, m domain.Machine, n *notify.Notifier) *Usecase {
	return &Usecase{repo: r, uow: tx, machine: m, notifier: n}
}

// Submit creates a loan, or promotes the draft stored under in.LoanID. Drafts
// notify nobody.
func (u *Usecase) Submit(ctx context.Context, in SubmitInput, actor domain.Actor) (*domain.Loan, error) {
	mIn := domain.SubmitInput{
		LoanID:        strings.TrimSpace(in.LoanID),
		BorrowerName:  in.BorrowerName,
		BorrowerPhone: in.BorrowerPhone,
		BorrowerEmail: in.BorrowerEmail,
		EntitasID:     in.EntitasID,
		Company:       in.Company,
		UseDate:       in.UseDate,
		ReturnDate:    in.ReturnDate,
		IsDraft:       in.IsDraft,
		SubmittedBy:   actor.Display(),
	}

	var out *domain.Loan
	var batch notify.Batch

	if mIn.LoanID != "" {
		err := uow.RetryStale(func() error {
			return u.uow.WithinLoanTx(ctx, mIn.LoanID, func(r uow.Repos, prev *domain.Loan) error {
				next, err := u.machine.Submit(prev, mIn)
				if err != nil {
					return err
				}
				if !next.IsDraft {
					if batch, _, err = u.notifier.Prepare(ctx, next, domain.LedgerSlot{Event: domain.EventSubmit}, nil); err != nil {
						return err
					}
				}
				if err := r.Loans.Save(ctx, next); err != nil {
					return err
				}
				out = next
				return nil
			})
		})
		switch {
		case err == nil:
			u.notifier.Dispatch(batch, out)
			return out, nil
		case !errors.Is(err, failure.ErrNotFound):
			return nil, err
		}
		// unknown id: create it below
	} else {
		mIn.LoanID = id.NewID32()
	}

	next, err := u.machine.Submit(nil, mIn)
	if err != nil {
		return nil, err
	}
	if !next.IsDraft {
		if batch, _, err = u.notifier.Prepare(ctx, next, domain.LedgerSlot{Event: domain.EventSubmit}, nil); err != nil {
			return nil, err
		}
	}
	if err := u.repo.Create(ctx, next); err != nil {
		return nil, err
	}
	u.notifier.Dispatch(batch, next)
	return next, nil
}

// DecideApproval records a company decision. Warehouse is only told once every
// company approved.
func (u *Usecase) DecideApproval(ctx context.Context, loanID string, in ApprovalInput, actor domain.Actor) (*domain.Loan, error) {
	var out *domain.Loan
	var batch notify.Batch
	err := uow.RetryStale(func() error {
		return u.uow.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *domain.Loan) error {
			next, approved, err := u.machine.DecideApproval(l, in.Company, domain.Decision{Action: in.Action, Note: in.Reason}, actor)
			if err != nil {
				return err
			}
			var skip []ledger.Audience
			if !approved {
				skip = append(skip, ledger.AudienceWarehouse)
			}
			vars := map[string]string{"action": in.Action, "reason": in.Reason, "company": in.Company}
			b, col, err := u.notifier.Prepare(ctx, next, domain.LedgerSlot{Event: domain.EventApproval}, vars, skip...)
			if err != nil {
				return err
			}
			if err := r.Loans.Save(ctx, next, "approvals", "warehouse_status", col); err != nil {
				return err
			}
			out, batch = next, b
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	u.notifier.Dispatch(batch, out)
	return out, nil
}

// ProcessWarehouse hands out or refuses the asset of an approved loan.
func (u *Usecase) ProcessWarehouse(ctx context.Context, loanID string, in WarehouseInput, actor domain.Actor) (*domain.Loan, error) {
	var out *domain.Loan
	var batch notify.Batch
	err := uow.RetryStale(func() error {
		return u.uow.WithinLoanTx(ctx, loanID, func(r uow.Repos, l *domain.Loan) error {
			next, err := u.machine.ProcessWarehouse(l, domain.Decision{Action: in.Action, Note: in.Reason}, actor)
			if err != nil {
				return err
			}
			vars := map[string]string{"action": in.Action, "reason": in.Reason}
			b, col, err := u.notifier.Prepare(ctx, next, domain.LedgerSlot{Event: domain.EventWarehouse}, vars)
			if err != nil {
				return err
			}
			if err := r.Loans.Save(ctx, next, "warehouse_status", "out_date", "loan_status", col); err != nil {
				return err
			}
			out, batch = next, b
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	u.notifier.Dispatch(batch, out)
	return out, nil
}

func (u *Usecase) Get(ctx context.Context, loanID string) (*LoanDTO, error) {
	l, err := u.repo.GetByLoanID(ctx, loanID)
	if err != nil {
		return nil, err
	}
	return ToDTO(l), nil
}
