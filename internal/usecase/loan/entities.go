package loan

import (
	"time"

	domain "assetloan-backend/internal/domain/loan"
)

type SubmitInput struct {
	LoanID        string
	BorrowerName  string
	BorrowerPhone string
	BorrowerEmail string
	EntitasID     string
	Company       []string
	UseDate       *time.Time
	ReturnDate    *time.Time
	IsDraft       bool
}

type ApprovalInput struct {
	// Company is optional; empty decides every pending company the actor may decide.
	Company string
	Action  string
	Reason  string
}

type WarehouseInput struct {
	Action string
	Reason string
}

// LoanDTO is the loan as the API returns it, with the derived values
// dashboards read.
type LoanDTO struct {
	*domain.Loan
	Status              string     `json:"status"`
	EffectiveReturnDate *time.Time `json:"effectiveReturnDate,omitempty"`
}

func ToDTO(l *domain.Loan) *LoanDTO {
	return &LoanDTO{
		Loan:                l,
		Status:              domain.DeriveStatus(l).String(),
		EffectiveReturnDate: domain.EffectiveReturnDate(l),
	}
}
