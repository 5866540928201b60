package http

import (
	"net/http"
	"time"

	"assetloan-backend/internal/usecase/loan"

	"github.com/labstack/echo/v4"
)

type LoanHandler struct {
	uc  *loan.Usecase
	loc *time.Location
}

// NewLoanHandler reads date-only request values as midnight in loc.
func NewLoanHandler(uc *loan.Usecase, loc *time.Location) *LoanHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &LoanHandler{uc: uc, loc: loc}
}

type submitLoanReq struct {
	LoanID        string   `json:"loanId"        validate:"omitempty,hex32"`
	BorrowerName  string   `json:"borrowerName"  validate:"max=160"`
	BorrowerPhone string   `json:"borrowerPhone" validate:"max=32"`
	BorrowerEmail string   `json:"borrowerEmail" validate:"omitempty,email,max=254"`
	EntitasID     string   `json:"entitasId"     validate:"required,max=64"`
	Company       []string `json:"company"       validate:"dive,required"`
	UseDate       string   `json:"useDate"       validate:"omitempty,date"`
	ReturnDate    string   `json:"returnDate"    validate:"omitempty,date"`
	IsDraft       bool     `json:"isDraft"`
}

type approvalReq struct {
	Company string `json:"company"`
	Action  string `json:"action"  validate:"required,oneof=approve reject approved rejected"`
	Reason  string `json:"reason"  validate:"max=1000"`
}

type warehouseReq struct {
	Action string `json:"action" validate:"required,oneof=approve reject approved rejected"`
	Reason string `json:"reason" validate:"max=1000"`
}

func (h *LoanHandler) Submit(c echo.Context) error {
	actor, ok, err := requireActor(c)
	if !ok {
		return err
	}
	var req submitLoanReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	in := loan.SubmitInput{
		LoanID:        req.LoanID,
		BorrowerName:  req.BorrowerName,
		BorrowerPhone: req.BorrowerPhone,
		BorrowerEmail: req.BorrowerEmail,
		EntitasID:     req.EntitasID,
		Company:       req.Company,
		IsDraft:       req.IsDraft,
	}
	// both dates already passed the "date" rule
	if req.UseDate != "" {
		t, _ := parseDate(req.UseDate, h.loc)
		in.UseDate = &t
	}
	if req.ReturnDate != "" {
		t, _ := parseDate(req.ReturnDate, h.loc)
		in.ReturnDate = &t
	}

	l, err := h.uc.Submit(c.Request().Context(), in, actor)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, loan.ToDTO(l))
}

func (h *LoanHandler) Get(c echo.Context) error {
	dto, err := h.uc.Get(c.Request().Context(), c.Param("loan_id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *LoanHandler) DecideApproval(c echo.Context) error {
	actor, ok, err := requireActor(c)
	if !ok {
		return err
	}
	var req approvalReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	l, err := h.uc.DecideApproval(c.Request().Context(), c.Param("loan_id"), loan.ApprovalInput(req), actor)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, loan.ToDTO(l))
}

func (h *LoanHandler) ProcessWarehouse(c echo.Context) error {
	actor, ok, err := requireActor(c)
	if !ok {
		return err
	}
	var req warehouseReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	l, err := h.uc.ProcessWarehouse(c.Request().Context(), c.Param("loan_id"), loan.WarehouseInput(req), actor)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, loan.ToDTO(l))
}
