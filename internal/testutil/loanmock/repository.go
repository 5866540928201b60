package loanmock

import (
	"context"

	domain "assetloan-backend/internal/domain/loan"
)

var _ domain.Repository = (*Repo)(nil)

// Repo is a function-backed mock that satisfies domain.Repository.
// Unset reads return context.Canceled; unset writes are no-ops.
type Repo struct {
	CreateFn               func(ctx context.Context, l *domain.Loan) error
	GetByLoanIDFn          func(ctx context.Context, loanID string) (*domain.Loan, error)
	GetByLoanIDForUpdateFn func(ctx context.Context, loanID string) (*domain.Loan, error)
	SaveFn                 func(ctx context.Context, l *domain.Loan, columns ...string) error
	ListForRemindersFn     func(ctx context.Context, afterID uint64, limit int) ([]*domain.Loan, error)
}

func (m *Repo) Create(ctx context.Context, l *domain.Loan) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, l)
	}
	return nil
}

func (m *Repo) GetByLoanID(ctx context.Context, loanID string) (*domain.Loan, error) {
	if m.GetByLoanIDFn != nil {
		return m.GetByLoanIDFn(ctx, loanID)
	}
	return nil, context.Canceled
}

func (m *Repo) GetByLoanIDForUpdate(ctx context.Context, loanID string) (*domain.Loan, error) {
	if m.GetByLoanIDForUpdateFn != nil {
		return m.GetByLoanIDForUpdateFn(ctx, loanID)
	}
	return nil, context.Canceled
}

func (m *Repo) Save(ctx context.Context, l *domain.Loan, columns ...string) error {
	if m.SaveFn != nil {
		return m.SaveFn(ctx, l, columns...)
	}
	return nil
}

func (m *Repo) ListForReminders(ctx context.Context, afterID uint64, limit int) ([]*domain.Loan, error) {
	if m.ListForRemindersFn != nil {
		return m.ListForRemindersFn(ctx, afterID, limit)
	}
	return nil, nil
}
