package notify

import (
	"context"
	"log/slog"

	"assetloan-backend/internal/domain/ledger"
	"assetloan-backend/internal/domain/loan"
)

type Enqueuer interface {
	Enqueue(b Batch) bool
}

// Notifier is the part of notification handling the lifecycle usecases see:
// Prepare runs inside the transition, Dispatch after it committed.
type Notifier struct {
	resolver *Resolver
	queue    Enqueuer
	logger   *slog.Logger
}

func NewNotifier(resolver *Resolver, queue Enqueuer, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{resolver: resolver, queue: queue, logger: logger.With("component", "notifier")}
}

// Prepare resolves the recipients of l, plans the jobs for slot and records
// them as pending in the slot's ledger on l. The returned column must be
// written with the transition. Lookup failures are logged and whatever did
// resolve is still planned.
func (n *Notifier) Prepare(ctx context.Context, l *loan.Loan, slot loan.LedgerSlot, vars map[string]string, skip ...ledger.Audience) (Batch, string, error) {
	rs, err := n.resolver.Resolve(ctx, l)
	if err != nil {
		n.logger.Warn("recipient lookup failed", "loan_id", l.LoanID, "event", slot.Event, "error", err)
	}
	jobs := Plan(slot, rs.Without(skip...), vars)
	col, err := l.UpdateLedger(slot, func(led *ledger.Ledger) { Provisional(led, jobs) })
	if err != nil {
		return Batch{}, "", err
	}
	return Batch{LoanID: l.LoanID, Slot: slot, Jobs: jobs}, col, nil
}

// Dispatch queues the batch against the committed snapshot.
func (n *Notifier) Dispatch(b Batch, committed *loan.Loan) {
	if len(b.Jobs) == 0 {
		return
	}
	b.Loan = committed.Clone()
	n.queue.Enqueue(b)
}
