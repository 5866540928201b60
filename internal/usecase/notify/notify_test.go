package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"assetloan-backend/internal/domain/ledger"
	"assetloan-backend/internal/domain/loan"

	"gorm.io/datatypes"
)

var sentAt = time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

// fakeMailer records every mail and fails for addresses listed in failFor.
type fakeMailer struct {
	mu      sync.Mutex
	sent    []Mail
	failFor map[string]bool
}

func (m *fakeMailer) Send(_ context.Context, mail Mail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, to := range mail.To {
		if m.failFor[to] {
			return errors.New("smtp: 550 mailbox unavailable")
		}
	}
	m.sent = append(m.sent, mail)
	return nil
}

func (m *fakeMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type fakeRenderer struct{}

func (fakeRenderer) Render(j Job, l *loan.Loan) (Message, error) {
	return Message{Subject: fmt.Sprintf("%s %s", j.Slot.Event, l.LoanID), HTML: "<p>" + string(j.Audience) + "</p>"}, nil
}

type countingRecorder struct {
	mu       sync.Mutex
	outcomes map[string]int
	dropped  int
}

func (r *countingRecorder) Notification(e loan.Event, a ledger.Audience, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.outcomes == nil {
		r.outcomes = map[string]int{}
	}
	r.outcomes[outcome]++
}
func (r *countingRecorder) QueueDepth(int) {}
func (r *countingRecorder) Dropped() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dropped++
}

func submittedLoan() *loan.Loan {
	return &loan.Loan{
		LoanID:        "LN-1",
		BorrowerEmail: " A@X.com ",
		EntitasID:     "E1",
		Company:       datatypes.NewJSONType([]string{"C1"}),
	}
}
