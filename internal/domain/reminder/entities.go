package reminder

import "time"

// Run is the telemetry row written once per sweep execution.
type Run struct {
	ID            uint64     `gorm:"primaryKey;column:id" json:"-"`
	RunID         string     `gorm:"size:26;uniqueIndex;column:run_id" json:"run_id"`
	RanAt         time.Time  `gorm:"column:ran_at;index" json:"ran_at"`
	DryRun        bool       `gorm:"column:dry_run" json:"dry_run"`
	RemindersSent int        `gorm:"column:reminders_sent;not null;default:0" json:"reminders_sent"`
	CheckedLoans  int        `gorm:"column:checked_loans;not null;default:0" json:"checked_loans"`
	FinishedAt    *time.Time `gorm:"column:finished_at" json:"finished_at,omitempty"`
}

func (Run) TableName() string { return "reminder_runs" }
