package mysql

import (
	"context"

	"assetloan-backend/internal/domain/failure"
	loanDomain "assetloan-backend/internal/domain/loan"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// mutableColumns are written by Save when the caller names none.
var mutableColumns = []string{
	"is_draft", "loan_status", "borrower_name", "borrower_phone", "borrower_email",
	"entitas_id", "use_date", "out_date", "return_date", "submitted_at", "submitted_by",
	"company", "approvals", "warehouse_status", "return_status", "extend_status",
	"return_request", "reminder_status", "submit_notifications",
	"approval_notifications", "warehouse_notifications",
}

type LoanRepository struct{ db *gorm.DB }

func NewLoanRepository(db *gorm.DB) *LoanRepository { return &LoanRepository{db: db} }

// Tx runs fn in a db transaction, passing a repo bound to the tx
func (r *LoanRepository) Tx(ctx context.Context, fn func(repo loanDomain.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&LoanRepository{db: tx})
	})
}

func (r *LoanRepository) Create(ctx context.Context, l *loanDomain.Loan) error {
	return translate("create loan", "loan", l.LoanID, r.db.WithContext(ctx).Create(l).Error)
}

// Save is a compare-and-swap on the version column. On success l.Version
// holds the new version; on a lost race the row is untouched and
// failure.ErrStaleVersion is returned.
func (r *LoanRepository) Save(ctx context.Context, l *loanDomain.Loan, columns ...string) error {
	if len(columns) == 0 {
		columns = mutableColumns
	}
	cols := append(append([]string(nil), columns...), "version", "updated_at")

	cur := l.Version
	l.Version = cur + 1
	res := r.db.WithContext(ctx).
		Model(l).
		Select(cols).
		Where("version = ?", cur).
		Updates(l)
	if res.Error != nil {
		l.Version = cur
		return failure.Persistence("save loan", res.Error)
	}
	if res.RowsAffected == 0 {
		l.Version = cur
		return failure.ErrStaleVersion
	}
	return nil
}

func (r *LoanRepository) GetByLoanID(ctx context.Context, loanID string) (*loanDomain.Loan, error) {
	var out loanDomain.Loan
	res := r.db.WithContext(ctx).Where("loan_id = ?", loanID).First(&out)
	if res.Error != nil {
		return nil, translate("get loan", "loan", loanID, res.Error)
	}
	return &out, nil
}

func (r *LoanRepository) GetByLoanIDForUpdate(ctx context.Context, loanID string) (*loanDomain.Loan, error) {
	var out loanDomain.Loan
	res := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("loan_id = ?", loanID).
		First(&out)
	if res.Error != nil {
		return nil, translate("lock loan", "loan", loanID, res.Error)
	}
	return &out, nil
}

func (r *LoanRepository) ListForReminders(ctx context.Context, afterID uint64, limit int) ([]*loanDomain.Loan, error) {
	var out []*loanDomain.Loan
	res := r.db.WithContext(ctx).
		Where("is_draft = ? AND id > ?", false, afterID).
		Order("id ASC").
		Limit(limit).
		Find(&out)
	if res.Error != nil {
		return nil, failure.Persistence("list loans", res.Error)
	}
	return out, nil
}
