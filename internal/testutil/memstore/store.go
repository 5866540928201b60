// Package memstore is an in-memory loan store for usecase tests. It honours
// the version guard of loan.Repository so optimistic races behave as they do
// against the database. Transactions are not atomic: a callback error does
// not undo writes it already made.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"assetloan-backend/internal/domain/directory"
	"assetloan-backend/internal/domain/failure"
	"assetloan-backend/internal/domain/loan"
	"assetloan-backend/internal/domain/reminder"
	"assetloan-backend/internal/domain/uow"
)

var (
	_ loan.Repository        = (*Store)(nil)
	_ directory.Repository   = (*Store)(nil)
	_ uow.UnitOfWork         = (*Store)(nil)
	_ reminder.RunRepository = runRepo{}
)

type Store struct {
	mu        sync.Mutex
	loans     map[string]*loan.Loan
	nextID    uint64
	entitas   map[string]map[string]string
	companies map[string]map[string]string
	runs      map[string]*reminder.Run

	// RowLocks serializes WithinLoanTx per loan like SELECT ... FOR UPDATE.
	RowLocks bool
	locksMu  sync.Mutex
	locks    map[string]*sync.Mutex

	// AfterLoad runs inside WithinLoanTx after the loan is read; tests use it
	// to slip in a concurrent write.
	AfterLoad func(loanID string)

	// DirectoryErr fails every directory lookup when set.
	DirectoryErr error

	saves int
}

func New() *Store {
	return &Store{
		loans:     map[string]*loan.Loan{},
		entitas:   map[string]map[string]string{},
		companies: map[string]map[string]string{},
		runs:      map[string]*reminder.Run{},
		locks:     map[string]*sync.Mutex{},
	}
}

// Put stores l as-is (keeping its version) and assigns a numeric id.
func (s *Store) Put(l *loan.Loan) *loan.Loan {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := l.Clone()
	if c.ID == 0 {
		s.nextID++
		c.ID = s.nextID
	}
	s.loans[c.LoanID] = c
	return c.Clone()
}

// Loan returns a copy of the stored loan, or nil.
func (s *Store) Loan(loanID string) *loan.Loan {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.loans[loanID]; ok {
		return l.Clone()
	}
	return nil
}

// Saves counts successful Save calls.
func (s *Store) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

func (s *Store) SetEntitas(code string, emails map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entitas[code] = emails
}

func (s *Store) SetCompany(value string, emails map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.companies[value] = emails
}

// --- loan.Repository ---

func (s *Store) Create(_ context.Context, l *loan.Loan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.loans[l.LoanID]; ok {
		return failure.Persistence("create loan", errDuplicate(l.LoanID))
	}
	s.nextID++
	l.ID = s.nextID
	now := time.Now().UTC()
	l.CreatedAt, l.UpdatedAt = now, now
	s.loans[l.LoanID] = l.Clone()
	return nil
}

func (s *Store) GetByLoanID(_ context.Context, loanID string) (*loan.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.loans[loanID]
	if !ok {
		return nil, failure.NotFound("loan", loanID)
	}
	return l.Clone(), nil
}

func (s *Store) GetByLoanIDForUpdate(ctx context.Context, loanID string) (*loan.Loan, error) {
	return s.GetByLoanID(ctx, loanID)
}

// Save replaces the whole row; the version guard already rejects any write
// based on an outdated read, so column scoping adds nothing here.
func (s *Store) Save(_ context.Context, l *loan.Loan, _ ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.loans[l.LoanID]
	if !ok {
		return failure.NotFound("loan", l.LoanID)
	}
	if cur.Version != l.Version {
		return failure.ErrStaleVersion
	}
	l.Version++
	l.UpdatedAt = time.Now().UTC()
	s.loans[l.LoanID] = l.Clone()
	s.saves++
	return nil
}

func (s *Store) ListForReminders(_ context.Context, afterID uint64, limit int) ([]*loan.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*loan.Loan
	for _, l := range s.loans {
		if !l.IsDraft && l.ID > afterID {
			out = append(out, l.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// --- directory.Repository ---

func (s *Store) GetEntitasEmails(_ context.Context, code string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.DirectoryErr != nil {
		return nil, s.DirectoryErr
	}
	e, ok := s.entitas[strings.TrimSpace(code)]
	if !ok {
		return nil, failure.NotFound("entitas", code)
	}
	return copyMap(e), nil
}

func (s *Store) GetCompaniesEmails(_ context.Context, values []string) ([]directory.CompanyEmails, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.DirectoryErr != nil {
		return nil, s.DirectoryErr
	}
	var out []directory.CompanyEmails
	for _, v := range values {
		if e, ok := s.companies[v]; ok {
			out = append(out, directory.CompanyEmails{Value: v, Emails: copyMap(e)})
		}
	}
	return out, nil
}

// --- reminder.RunRepository ---

// runRepo carries the run methods; Store.Create is already the loan one.
type runRepo struct{ s *Store }

// Runs exposes the reminder run repository.
func (s *Store) Runs() reminder.RunRepository { return runRepo{s} }

func (r runRepo) Create(_ context.Context, run *reminder.Run) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.runs[run.RunID]; ok {
		return failure.Persistence("create reminder run", errDuplicate(run.RunID))
	}
	c := *run
	r.s.runs[run.RunID] = &c
	return nil
}

func (r runRepo) GetByRunID(_ context.Context, runID string) (*reminder.Run, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	run, ok := r.s.runs[runID]
	if !ok {
		return nil, failure.NotFound("reminder run", runID)
	}
	c := *run
	return &c, nil
}

func (r runRepo) IncrementSent(_ context.Context, runID string, n int) error {
	return r.s.bump(runID, func(run *reminder.Run) { run.RemindersSent += n })
}

func (r runRepo) IncrementChecked(_ context.Context, runID string, n int) error {
	return r.s.bump(runID, func(run *reminder.Run) { run.CheckedLoans += n })
}

func (r runRepo) Finish(_ context.Context, runID string) error {
	now := time.Now().UTC()
	return r.s.bump(runID, func(run *reminder.Run) { run.FinishedAt = &now })
}

func (s *Store) bump(runID string, fn func(r *reminder.Run)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.runs[runID]
	if !ok {
		return failure.NotFound("reminder run", runID)
	}
	fn(r)
	return nil
}

// RecordedRuns returns every reminder run ordered by run id.
func (s *Store) RecordedRuns() []reminder.Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]reminder.Run, 0, len(s.runs))
	for _, r := range s.runs {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RunID < out[j].RunID })
	return out
}

// --- uow.UnitOfWork ---

func (s *Store) repos() uow.Repos {
	return uow.Repos{Loans: s, Directory: s, Runs: s.Runs()}
}

func (s *Store) WithinTx(_ context.Context, fn func(r uow.Repos) error) error {
	return fn(s.repos())
}

func (s *Store) WithinLoanTx(ctx context.Context, loanID string, fn func(r uow.Repos, l *loan.Loan) error) error {
	if s.RowLocks {
		m := s.rowLock(loanID)
		m.Lock()
		defer m.Unlock()
	}
	l, err := s.GetByLoanIDForUpdate(ctx, loanID)
	if err != nil {
		return err
	}
	if s.AfterLoad != nil {
		s.AfterLoad(loanID)
	}
	return fn(s.repos(), l)
}

func (s *Store) rowLock(loanID string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	m, ok := s.locks[loanID]
	if !ok {
		m = &sync.Mutex{}
		s.locks[loanID] = m
	}
	return m
}

func copyMap(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

type errDuplicate string

func (e errDuplicate) Error() string { return "duplicate loan id " + string(e) }
