package uow

import (
	"context"
	"errors"

	"assetloan-backend/internal/domain/directory"
	"assetloan-backend/internal/domain/failure"
	"assetloan-backend/internal/domain/loan"
	"assetloan-backend/internal/domain/reminder"
)

// Repos is the set of repositories bound to a single transaction.
type Repos struct {
	Loans     loan.Repository
	Directory directory.Repository
	Runs      reminder.RunRepository
}

type UnitOfWork interface {
	// plain tx
	WithinTx(ctx context.Context, fn func(r Repos) error) error
	// convenience: lock loan first, then pass it in
	WithinLoanTx(ctx context.Context, loanID string, fn func(r Repos, l *loan.Loan) error) error
}

// MaxAttempts bounds how often a write that lost an optimistic race is re-read
// and re-applied.
const MaxAttempts = 3

// RetryStale runs fn until it stops failing with failure.ErrStaleVersion or the
// attempts run out.
func RetryStale(fn func() error) error {
	var err error
	for i := 0; i < MaxAttempts; i++ {
		if err = fn(); !errors.Is(err, failure.ErrStaleVersion) {
			return err
		}
	}
	return err
}
