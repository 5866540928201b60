package directorymock

import (
	"context"

	"assetloan-backend/internal/domain/directory"
)

var _ directory.Repository = (*Repo)(nil)

// Repo is a function-backed mock that satisfies directory.Repository.
// Unset lookups return empty results.
type Repo struct {
	GetEntitasEmailsFn   func(ctx context.Context, code string) (map[string]string, error)
	GetCompaniesEmailsFn func(ctx context.Context, values []string) ([]directory.CompanyEmails, error)
}

func (m *Repo) GetEntitasEmails(ctx context.Context, code string) (map[string]string, error) {
	if m.GetEntitasEmailsFn != nil {
		return m.GetEntitasEmailsFn(ctx, code)
	}
	return map[string]string{}, nil
}

func (m *Repo) GetCompaniesEmails(ctx context.Context, values []string) ([]directory.CompanyEmails, error) {
	if m.GetCompaniesEmailsFn != nil {
		return m.GetCompaniesEmailsFn(ctx, values)
	}
	return nil, nil
}
