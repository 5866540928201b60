package loan

import (
	"testing"
	"time"

	"assetloan-backend/internal/domain/ledger"
)

func TestReminderOffsets(t *testing.T) {
	offs := ReminderOffsets()
	if len(offs) != 4+MaxOverdueDays {
		t.Fatalf("len = %d", len(offs))
	}
	if offs[0] != 7 || offs[3] != 0 || offs[4] != -1 || offs[len(offs)-1] != -MaxOverdueDays {
		t.Fatalf("offsets = %v", offs)
	}
	offs[0] = 99
	if ReminderOffsets()[0] != 7 {
		t.Fatal("ReminderOffsets shares its backing array")
	}
}

func TestOffsetTokens_RoundTrip(t *testing.T) {
	for _, off := range ReminderOffsets() {
		tok := OffsetToken(off)
		got, err := ParseOffsetToken(tok)
		if err != nil || got != off {
			t.Fatalf("ParseOffsetToken(%q) = %d, %v; want %d", tok, got, err, off)
		}
	}
}

func TestParseOffsetToken(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"7_days", 7, false},
		{" 1_DAY ", 1, false},
		{"after_1_day", -1, false},
		{"after_30_days", -30, false},
		{"after_31_days", 0, true},
		{"after_0_days", 0, true},
		{"5_days", 0, true},
		{"after_x_days", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseOffsetToken(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseOffsetToken(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if !tt.wantErr && got != tt.want {
			t.Fatalf("ParseOffsetToken(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestReminderKeyAndType(t *testing.T) {
	if got := ReminderKey("LN-1", -3); got != "LN-1_reminder_-3_days" {
		t.Fatalf("key = %q", got)
	}
	if got := ReminderKey("LN-1", 7); got != "LN-1_reminder_7_days" {
		t.Fatalf("key = %q", got)
	}
	for off, want := range map[int]string{3: ReminderBeforeDue, 0: ReminderDueToday, -2: ReminderOverdue} {
		if got := ReminderType(off); got != want {
			t.Fatalf("ReminderType(%d) = %s, want %s", off, got, want)
		}
	}
}

func TestReminderEligible(t *testing.T) {
	m := testMachine()
	if submitted(t, m).ReminderEligible() {
		t.Fatal("pending loan should not be eligible")
	}
	l := borrowed(t, m)
	if !l.ReminderEligible() {
		t.Fatal("borrowed loan should be eligible")
	}
	legacy := &Loan{LoanStatus: "Sudah Dikembalikan"}
	if legacy.ReminderEligible() {
		t.Fatal("legacy returned loan should not be eligible")
	}
}

func TestReminders_CloneIsDeep(t *testing.T) {
	at := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	var led ledger.Ledger
	led.MergeSent(ledger.Entry{Audience: ledger.AudienceBorrower, Email: "a@x.com", SentAt: at})
	r := Reminders{"k": {Sent: true, SentAt: &at, Offset: 0, Notifications: led}}

	c := r.Clone()
	*c["k"].SentAt = at.Add(time.Hour)
	c["k"].Notifications.Borrower.Email = "b@x.com"

	if !r["k"].SentAt.Equal(at) || r["k"].Notifications.Borrower.Email != "a@x.com" {
		t.Fatalf("clone aliases the original: %+v", r["k"])
	}
}

func TestUpdateLedger_ReminderSlot(t *testing.T) {
	l := borrowed(t, testMachine())
	key := ReminderKey(l.LoanID, 3)
	if _, err := l.UpdateLedger(LedgerSlot{Event: EventReminder, Ref: key}, func(*ledger.Ledger) {}); err == nil {
		t.Fatal("expected not found for a missing reminder key")
	}

	l.SetReminders(Reminders{key: {Sent: true, Offset: 3}})
	col, err := l.UpdateLedger(LedgerSlot{Event: EventReminder, Ref: key}, func(led *ledger.Ledger) {
		led.MergeSent(ledger.Entry{Audience: ledger.AudienceBorrower, Email: "a@x.com", SentAt: fixedNow})
	})
	if err != nil || col != "reminder_status" {
		t.Fatalf("col=%q err=%v", col, err)
	}
	got, _ := l.LedgerAt(LedgerSlot{Event: EventReminder, Ref: key})
	if !got.IsSent(ledger.AudienceBorrower, "", "") {
		t.Fatalf("ledger = %+v", got)
	}
}
