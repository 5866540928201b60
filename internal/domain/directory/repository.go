package directory

import "context"

// Repository is read-only from the loan core's point of view.
type Repository interface {
	// GetEntitasEmails returns role -> address for one entitas code.
	GetEntitasEmails(ctx context.Context, code string) (map[string]string, error)
	// GetCompaniesEmails returns one entry per known company value, in input order.
	GetCompaniesEmails(ctx context.Context, values []string) ([]CompanyEmails, error)
}
