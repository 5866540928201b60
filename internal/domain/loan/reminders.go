package loan

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"assetloan-backend/internal/domain/ledger"
)

const (
	ReminderBeforeDue = "before_due"
	ReminderDueToday  = "due_today"
	ReminderOverdue   = "overdue"

	TriggerAutomatic = "automatic"
	TriggerManual    = "manual"

	// MaxOverdueDays bounds the after-due reminders.
	MaxOverdueDays = 30
)

// BeforeDueOffsets are the reminder offsets up to and including the due day.
var BeforeDueOffsets = []int{7, 3, 1, 0}

// ReminderOffsets returns every offset the sweep checks: 7, 3, 1, 0, then -1 through -30.
func ReminderOffsets() []int {
	out := append([]int(nil), BeforeDueOffsets...)
	for d := 1; d <= MaxOverdueDays; d++ {
		out = append(out, -d)
	}
	return out
}

type ReminderEntry struct {
	Sent          bool          `json:"sent"`
	SentAt        *time.Time    `json:"sentAt,omitempty"`
	Type          string        `json:"type"`
	Offset        int           `json:"offset"`
	Trigger       string        `json:"trigger,omitempty"`
	TriggeredBy   string        `json:"triggeredBy,omitempty"`
	// ClaimedAt is set while a sender holds the key and cleared once it is sent.
	ClaimedAt     *time.Time    `json:"claimedAt,omitempty"`
	Notifications ledger.Ledger `json:"notifications"`
}

// Reminders is keyed by ReminderKey. A key is written at most once.
type Reminders map[string]ReminderEntry

func (r Reminders) Clone() Reminders {
	if r == nil {
		return nil
	}
	out := make(Reminders, len(r))
	for k, v := range r {
		v.SentAt = cloneTime(v.SentAt)
		v.ClaimedAt = cloneTime(v.ClaimedAt)
		v.Notifications = v.Notifications.Clone()
		out[k] = v
	}
	return out
}

func ReminderKey(loanID string, offset int) string {
	return fmt.Sprintf("%s_reminder_%d_days", loanID, offset)
}

func ReminderType(offset int) string {
	switch {
	case offset > 0:
		return ReminderBeforeDue
	case offset == 0:
		return ReminderDueToday
	default:
		return ReminderOverdue
	}
}

// OffsetToken renders an offset as the manual trigger token.
func OffsetToken(offset int) string {
	switch {
	case offset == 1:
		return "1_day"
	case offset >= 0:
		return fmt.Sprintf("%d_days", offset)
	default:
		return fmt.Sprintf("after_%d_days", -offset)
	}
}

// ParseOffsetToken accepts 7_days, 3_days, 1_day, 0_days and after_{1..30}_days.
func ParseOffsetToken(token string) (int, error) {
	t := strings.ToLower(strings.TrimSpace(token))
	switch t {
	case "7_days":
		return 7, nil
	case "3_days":
		return 3, nil
	case "1_day":
		return 1, nil
	case "0_days":
		return 0, nil
	}
	if rest, ok := strings.CutPrefix(t, "after_"); ok {
		num, unit, _ := strings.Cut(rest, "_")
		n, err := strconv.Atoi(num)
		if err == nil && n >= 1 && n <= MaxOverdueDays && (unit == "days" || (n == 1 && unit == "day")) {
			return -n, nil
		}
	}
	return 0, fmt.Errorf("unknown reminder offset %q", token)
}

// ReminderSent reports whether the key already holds a sent reminder.
func (l *Loan) ReminderSent(key string) bool {
	e, ok := l.Reminders()[key]
	return ok && e.Sent
}

// HasReminder reports whether the key is present at all.
func (l *Loan) HasReminder(key string) bool {
	_, ok := l.Reminders()[key]
	return ok
}

// ReminderClaimable reports whether a sender may take the key now: it is
// absent, or it holds an unsent entry whose claim is older than ttl.
func (l *Loan) ReminderClaimable(key string, now time.Time, ttl time.Duration) bool {
	e, ok := l.Reminders()[key]
	switch {
	case !ok:
		return true
	case e.Sent:
		return false
	case e.ClaimedAt != nil && now.Sub(*e.ClaimedAt) < ttl:
		return false
	}
	return true
}

// ReminderEligible is the sweep's filter: submitted, not returned, and out
// with the borrower.
func (l *Loan) ReminderEligible() bool {
	return !l.IsDraft && !l.IsReturned() && l.IsBorrowed()
}
