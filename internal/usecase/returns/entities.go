package returns

import domain "assetloan-backend/internal/domain/loan"

type RequestInput struct {
	Note   string
	Photos []domain.Attachment
}

type DecideInput struct {
	Action    string
	Note      string
	Condition string
}

type Result struct {
	Loan  *domain.Loan        `json:"loan"`
	Entry *domain.ReturnEntry `json:"entry"`
}
