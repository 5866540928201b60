package reminder

import (
	"context"
	"fmt"

	"assetloan-backend/internal/domain/failure"
	"assetloan-backend/internal/domain/ledger"
	domain "assetloan-backend/internal/domain/loan"
	"assetloan-backend/internal/usecase/notify"
)

const (
	SweepOK      = "ok"
	SweepFailed  = "failed"
	SweepSkipped = "skipped"
)

// ErrSweepInProgress is returned when another instance holds the sweep lock.
var ErrSweepInProgress = fmt.Errorf("reminder sweep already running: %w", failure.ErrAlreadyProcessed)

// Sender delivers a batch synchronously and returns the receipts of the jobs
// that went out. *notify.Dispatcher implements it.
type Sender interface {
	Send(ctx context.Context, b notify.Batch) []ledger.Entry
}

// Locker provides single-flight across instances. ok is false when another
// holder has the lock.
type Locker interface {
	TryLock(ctx context.Context) (unlock func(), ok bool, err error)
}

type Recorder interface {
	ReminderSent(trigger string)
	Sweep(outcome string)
}

type nopRecorder struct{}

func (nopRecorder) ReminderSent(string) {}
func (nopRecorder) Sweep(string)        {}

type SweepInput struct {
	DryRun bool
	// TestOffset, when set, treats every eligible loan as if it were that many
	// days before due.
	TestOffset *int
}

type DueReminder struct {
	LoanID string `json:"loanId"`
	Key    string `json:"reminderKey"`
	Offset int    `json:"offset"`
	Sent   bool   `json:"sent"`
}

type SweepResult struct {
	RunID         string        `json:"runId"`
	DryRun        bool          `json:"dryRun"`
	CheckedLoans  int           `json:"checkedLoans"`
	RemindersSent int           `json:"remindersSent"`
	Due           []DueReminder `json:"due"`
}

type ManualResult struct {
	Loan *domain.Loan `json:"loan"`
	Key  string       `json:"reminderKey"`
	Sent bool         `json:"sent"`
}
