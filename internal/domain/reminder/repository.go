package reminder

import "context"

type RunRepository interface {
	Create(ctx context.Context, r *Run) error
	// IncrementSent and IncrementChecked are atomic counter bumps on the stored row.
	IncrementSent(ctx context.Context, runID string, n int) error
	IncrementChecked(ctx context.Context, runID string, n int) error
	Finish(ctx context.Context, runID string) error
	GetByRunID(ctx context.Context, runID string) (*Run, error)
}
