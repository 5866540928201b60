package extension

import (
	"time"

	domain "assetloan-backend/internal/domain/loan"
)

type RequestInput struct {
	Note                string
	RequestedReturnDate *time.Time
}

type DecideInput struct {
	Action string
	Note   string
}

// Result is the loan after the transition together with the entry it touched.
type Result struct {
	Loan  *domain.Loan        `json:"loan"`
	Entry *domain.ExtendEntry `json:"entry"`
}
