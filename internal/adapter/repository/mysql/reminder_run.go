package mysql

import (
	"context"
	"time"

	"assetloan-backend/internal/domain/failure"
	"assetloan-backend/internal/domain/reminder"

	"gorm.io/gorm"
)

type ReminderRunRepository struct{ db *gorm.DB }

func NewReminderRunRepository(db *gorm.DB) *ReminderRunRepository {
	return &ReminderRunRepository{db: db}
}

func (r *ReminderRunRepository) Create(ctx context.Context, run *reminder.Run) error {
	return translate("create reminder run", "reminder run", run.RunID, r.db.WithContext(ctx).Create(run).Error)
}

// IncrementSent bumps the counter in SQL so concurrent workers never lose updates.
func (r *ReminderRunRepository) IncrementSent(ctx context.Context, runID string, n int) error {
	return r.increment(ctx, runID, "reminders_sent", n)
}

func (r *ReminderRunRepository) IncrementChecked(ctx context.Context, runID string, n int) error {
	return r.increment(ctx, runID, "checked_loans", n)
}

func (r *ReminderRunRepository) increment(ctx context.Context, runID, column string, n int) error {
	if n == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).
		Model(&reminder.Run{}).
		Where("run_id = ?", runID).
		UpdateColumn(column, gorm.Expr(column+" + ?", n))
	if res.Error != nil {
		return failure.Persistence("increment "+column, res.Error)
	}
	if res.RowsAffected == 0 {
		return failure.NotFound("reminder run", runID)
	}
	return nil
}

func (r *ReminderRunRepository) Finish(ctx context.Context, runID string) error {
	res := r.db.WithContext(ctx).
		Model(&reminder.Run{}).
		Where("run_id = ?", runID).
		UpdateColumn("finished_at", time.Now().UTC())
	if res.Error != nil {
		return failure.Persistence("finish reminder run", res.Error)
	}
	return nil
}

func (r *ReminderRunRepository) GetByRunID(ctx context.Context, runID string) (*reminder.Run, error) {
	var out reminder.Run
	res := r.db.WithContext(ctx).Where("run_id = ?", runID).First(&out)
	if res.Error != nil {
		return nil, translate("get reminder run", "reminder run", runID, res.Error)
	}
	return &out, nil
}
