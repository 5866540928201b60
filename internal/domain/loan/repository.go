package loan

import "context"

type Repository interface {
	Create(ctx context.Context, l *Loan) error
	GetByLoanID(ctx context.Context, loanID string) (*Loan, error)
	// GetByLoanIDForUpdate locks the row for the rest of the transaction where
	// the store supports row locks.
	GetByLoanIDForUpdate(ctx context.Context, loanID string) (*Loan, error)
	// Save writes the given columns (all when none are named) guarded by the
	// loan's version and bumps it. A concurrent writer yields failure.ErrStaleVersion.
	Save(ctx context.Context, l *Loan, columns ...string) error
	// ListForReminders pages through non-draft loans by ascending numeric id.
	ListForReminders(ctx context.Context, afterID uint64, limit int) ([]*Loan, error)
}
