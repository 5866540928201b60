package reminder

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"assetloan-backend/internal/domain/failure"
	domain "assetloan-backend/internal/domain/loan"
	runs "assetloan-backend/internal/domain/reminder"
	"assetloan-backend/internal/domain/uow"
	"assetloan-backend/internal/usecase/notify"
	"assetloan-backend/pkg/id"
)

const defaultPageSize = 200

// ClaimTTL bounds how long an unsent claim blocks other senders of the same
// reminder key.
const ClaimTTL = 10 * time.Minute

// Scheduler finds the day-offset reminders that are due and sends each at
// most once per loan. Automatic and manual sends share one key namespace.
type Scheduler struct {
	loans    domain.Repository
	runs     runs.RunRepository
	uow      uow.UnitOfWork
	resolver *notify.Resolver
	sender   Sender
	lock     Locker
	recorder Recorder
	logger   *slog.Logger
	now      func() time.Time
	loc      *time.Location
	pageSize int
}

type Option func(*Scheduler)

func WithLocker(l Locker) Option { return func(s *Scheduler) { s.lock = l } }

func WithRecorder(r Recorder) Option {
	return func(s *Scheduler) {
		if r != nil {
			s.recorder = r
		}
	}
}

func WithClock(now func() time.Time) Option { return func(s *Scheduler) { s.now = now } }

// WithLocation sets the zone whose calendar days decide what is due.
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func WithPageSize(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

func NewScheduler(loans domain.Repository, runRepo runs.RunRepository, tx uow.UnitOfWork, resolver *notify.Resolver, sender Sender, logger *slog.Logger, opts ...Option) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scheduler{
		loans:    loans,
		runs:     runRepo,
		uow:      tx,
		resolver: resolver,
		sender:   sender,
		recorder: nopRecorder{},
		logger:   logger.With("component", "reminder"),
		now:      func() time.Time { return time.Now().UTC() },
		loc:      time.Local,
		pageSize: defaultPageSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunSweep checks every eligible loan once. A dry run reports what is due
// without sending or writing reminder state; it still records a run row.
func (s *Scheduler) RunSweep(ctx context.Context, in SweepInput) (*SweepResult, error) {
	if s.lock != nil {
		unlock, ok, err := s.lock.TryLock(ctx)
		switch {
		case err != nil:
			s.logger.Warn("sweep lock unavailable, running unlocked", "error", err)
		case !ok:
			s.recorder.Sweep(SweepSkipped)
			return nil, ErrSweepInProgress
		default:
			defer unlock()
		}
	}

	now := s.now()
	res := &SweepResult{RunID: id.NewRunID(now), DryRun: in.DryRun}
	tracked := true
	if err := s.runs.Create(ctx, &runs.Run{RunID: res.RunID, RanAt: now, DryRun: in.DryRun}); err != nil {
		s.logger.Error("create reminder run failed", "run_id", res.RunID, "error", err)
		tracked = false
	}

	err := s.sweep(ctx, in, now, res, tracked)
	if tracked {
		if ferr := s.runs.Finish(ctx, res.RunID); ferr != nil {
			s.logger.Error("finish reminder run failed", "run_id", res.RunID, "error", ferr)
		}
	}
	if err != nil {
		s.recorder.Sweep(SweepFailed)
		return res, err
	}
	s.recorder.Sweep(SweepOK)
	s.logger.Info("reminder sweep done",
		"run_id", res.RunID, "dry_run", in.DryRun, "checked", res.CheckedLoans, "sent", res.RemindersSent)
	return res, nil
}

func (s *Scheduler) sweep(ctx context.Context, in SweepInput, now time.Time, res *SweepResult, tracked bool) error {
	var afterID uint64
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		page, err := s.loans.ListForReminders(ctx, afterID, s.pageSize)
		if err != nil {
			return err
		}
		for _, l := range page {
			afterID = l.ID
			if !l.ReminderEligible() {
				continue
			}
			res.CheckedLoans++
			if tracked {
				s.bump(ctx, res.RunID, s.runs.IncrementChecked)
			}

			offset, ok := s.dueOffset(l, now, in.TestOffset)
			if !ok {
				continue
			}
			key := domain.ReminderKey(l.LoanID, offset)
			if l.ReminderSent(key) {
				continue
			}
			due := DueReminder{LoanID: l.LoanID, Key: key, Offset: offset}
			if !in.DryRun {
				updated, err := s.send(ctx, l, offset, domain.TriggerAutomatic, "")
				if errors.Is(err, failure.ErrAlreadyProcessed) {
					continue
				}
				if err != nil {
					s.logger.Error("reminder failed", "loan_id", l.LoanID, "reminder_key", key, "offset", offset, "error", err)
				}
				if updated != nil {
					due.Sent = true
					res.RemindersSent++
					if tracked {
						s.bump(ctx, res.RunID, s.runs.IncrementSent)
					}
				}
			}
			res.Due = append(res.Due, due)
		}
		if len(page) < s.pageSize {
			return nil
		}
	}
}

// dueOffset reports the reminder offset l is at today, if it is one of the
// reminder offsets.
func (s *Scheduler) dueOffset(l *domain.Loan, now time.Time, override *int) (int, bool) {
	var days int
	if override != nil {
		days = *override
	} else {
		due := domain.EffectiveReturnDate(l)
		if due == nil {
			return 0, false
		}
		days = domain.DaysUntil(*due, now, s.loc)
	}
	for _, o := range domain.ReminderOffsets() {
		if o == days {
			return o, true
		}
	}
	return 0, false
}

func (s *Scheduler) bump(ctx context.Context, runID string, fn func(context.Context, string, int) error) {
	if err := fn(ctx, runID, 1); err != nil {
		s.logger.Warn("reminder run counter update failed", "run_id", runID, "error", err)
	}
}

// TriggerManual sends the reminder for the offset named by token. It is
// refused when that key was sent or is claimed, whoever wrote it.
func (s *Scheduler) TriggerManual(ctx context.Context, loanID, token, requestedBy string) (*ManualResult, error) {
	offset, err := domain.ParseOffsetToken(token)
	if err != nil {
		return nil, failure.Invalid("offset", err.Error())
	}
	l, err := s.loans.GetByLoanID(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if l.IsDraft || l.IsReturned() {
		return nil, failure.Invalid("loanStatus", "loan is not active")
	}
	if !l.IsBorrowed() {
		return nil, failure.Invalid("loanStatus", "loan is not currently borrowed")
	}
	key := domain.ReminderKey(l.LoanID, offset)
	if !l.ReminderClaimable(key, s.now(), ClaimTTL) {
		return nil, failure.ErrAlreadyProcessed
	}

	updated, err := s.send(ctx, l, offset, domain.TriggerManual, requestedBy)
	if err != nil {
		return nil, err
	}
	out := &ManualResult{Loan: l, Key: key}
	if updated != nil {
		out.Loan, out.Sent = updated, true
	}
	return out, nil
}

// send claims the key, delivers the reminder and records it as sent. The claim
// is written under the loan lock before any mail goes out, so a concurrent
// sweep or manual trigger for the same key gets ErrAlreadyProcessed. When no
// job went out the claim is dropped and the offset stays due.
func (s *Scheduler) send(ctx context.Context, l *domain.Loan, offset int, trigger, by string) (*domain.Loan, error) {
	key := domain.ReminderKey(l.LoanID, offset)
	rs, err := s.resolver.Resolve(ctx, l)
	if err != nil {
		s.logger.Warn("recipient lookup failed", "loan_id", l.LoanID, "reminder_key", key, "error", err)
	}

	slot := domain.LedgerSlot{Event: domain.EventReminder, Ref: key}
	vars := map[string]string{
		"offset": strconv.Itoa(offset),
		"type":   domain.ReminderType(offset),
	}
	if due := domain.EffectiveReturnDate(l); due != nil {
		vars["dueDate"] = due.In(s.loc).Format("2006-01-02")
	}
	jobs := notify.Plan(slot, rs, vars)
	if len(jobs) == 0 {
		s.logger.Warn("reminder has no recipients", "loan_id", l.LoanID, "reminder_key", key)
		return nil, nil
	}

	claimedAt, err := s.claim(ctx, l.LoanID, key, domain.ReminderEntry{
		Type:        domain.ReminderType(offset),
		Offset:      offset,
		Trigger:     trigger,
		TriggeredBy: by,
	}, jobs)
	if err != nil {
		return nil, err
	}

	receipts := s.sender.Send(ctx, notify.Batch{LoanID: l.LoanID, Slot: slot, Jobs: jobs, Loan: l.Clone()})
	if len(receipts) == 0 {
		s.release(ctx, l.LoanID, key, claimedAt)
		return nil, nil
	}

	var out *domain.Loan
	err = uow.RetryStale(func() error {
		return s.uow.WithinLoanTx(ctx, l.LoanID, func(r uow.Repos, cur *domain.Loan) error {
			rem := cur.Reminders().Clone()
			if rem == nil {
				rem = domain.Reminders{}
			}
			entry, exists := rem[key]
			if !exists {
				entry = domain.ReminderEntry{Type: domain.ReminderType(offset), Offset: offset, Trigger: trigger, TriggeredBy: by}
				notify.Provisional(&entry.Notifications, jobs)
			}
			if !entry.Sent {
				at := receipts[0].SentAt
				entry.Sent, entry.SentAt, entry.ClaimedAt = true, &at, nil
			}
			for _, e := range receipts {
				entry.Notifications.MergeSent(e)
			}
			rem[key] = entry
			cur.SetReminders(rem)
			if err := r.Loans.Save(ctx, cur, "reminder_status"); err != nil {
				return err
			}
			out = cur
			return nil
		})
	})
	if err != nil {
		// mail already went out; the claim blocks a resend until it expires and the log carries what to replay
		s.logger.Error("reminder ledger write failed", "loan_id", l.LoanID, "reminder_key", key, "offset", offset, "error", err)
		return nil, failure.Persistence("record reminder", err)
	}
	s.recorder.ReminderSent(trigger)
	return out, nil
}

// claim writes an unsent entry stamped with the claim time, provided the key
// is still claimable once the loan is locked.
func (s *Scheduler) claim(ctx context.Context, loanID, key string, entry domain.ReminderEntry, jobs []notify.Job) (time.Time, error) {
	at := s.now()
	err := uow.RetryStale(func() error {
		return s.uow.WithinLoanTx(ctx, loanID, func(r uow.Repos, cur *domain.Loan) error {
			if !cur.ReminderClaimable(key, at, ClaimTTL) {
				return failure.ErrAlreadyProcessed
			}
			rem := cur.Reminders().Clone()
			if rem == nil {
				rem = domain.Reminders{}
			}
			e := entry
			e.ClaimedAt = &at
			notify.Provisional(&e.Notifications, jobs)
			rem[key] = e
			cur.SetReminders(rem)
			return r.Loans.Save(ctx, cur, "reminder_status")
		})
	})
	return at, err
}

// release drops a claim that sent nothing. A failure only delays the next
// attempt until the claim expires.
func (s *Scheduler) release(ctx context.Context, loanID, key string, claimedAt time.Time) {
	err := uow.RetryStale(func() error {
		return s.uow.WithinLoanTx(ctx, loanID, func(r uow.Repos, cur *domain.Loan) error {
			e, ok := cur.Reminders()[key]
			if !ok || e.Sent || e.ClaimedAt == nil || !e.ClaimedAt.Equal(claimedAt) {
				return nil
			}
			rem := cur.Reminders().Clone()
			delete(rem, key)
			cur.SetReminders(rem)
			return r.Loans.Save(ctx, cur, "reminder_status")
		})
	})
	if err != nil {
		s.logger.Warn("release reminder claim failed", "loan_id", loanID, "reminder_key", key, "error", err)
	}
}

// Every runs a sweep each interval until ctx is done.
func (s *Scheduler) Every(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := s.RunSweep(ctx, SweepInput{}); err != nil && !errors.Is(err, ErrSweepInProgress) {
				s.logger.Error("scheduled reminder sweep failed", "error", err)
			}
		}
	}
}
