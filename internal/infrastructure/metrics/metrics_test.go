package metrics

import (
	"testing"

	"assetloan-backend/internal/domain/ledger"
	"assetloan-backend/internal/domain/loan"
	"assetloan-backend/internal/usecase/notify"
	"assetloan-backend/internal/usecase/reminder"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

var (
	_ notify.Recorder   = (*Collectors)(nil)
	_ reminder.Recorder = (*Collectors)(nil)
)

func TestCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.Notification(loan.EventSubmit, ledger.AudienceBorrower, notify.OutcomeSent)
	c.Notification(loan.EventSubmit, ledger.AudienceBorrower, notify.OutcomeSent)
	c.Notification(loan.EventSubmit, ledger.AudienceEntitas, notify.OutcomeFailed)
	c.QueueDepth(7)
	c.Dropped()
	c.ReminderSent(loan.TriggerManual)
	c.Sweep(reminder.SweepOK)

	if got := testutil.ToFloat64(c.notifications.WithLabelValues("submit", "borrower", notify.OutcomeSent)); got != 2 {
		t.Fatalf("sent = %v", got)
	}
	if got := testutil.ToFloat64(c.notifications.WithLabelValues("submit", "entitas", notify.OutcomeFailed)); got != 1 {
		t.Fatalf("failed = %v", got)
	}
	if got := testutil.ToFloat64(c.queueDepth); got != 7 {
		t.Fatalf("queue depth = %v", got)
	}
	if got := testutil.ToFloat64(c.dropped); got != 1 {
		t.Fatalf("dropped = %v", got)
	}
	if got := testutil.ToFloat64(c.reminders.WithLabelValues("manual")); got != 1 {
		t.Fatalf("reminders = %v", got)
	}
	if n, err := testutil.GatherAndCount(reg); err != nil || n != 6 {
		t.Fatalf("series = %d err = %v", n, err)
	}
}

func TestNew_PanicsOnDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	defer func() {
		if recover() == nil {
			t.Fatal("expected duplicate registration to panic")
		}
	}()
	New(reg)
}
