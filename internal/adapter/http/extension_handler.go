package http

import (
	"net/http"
	"time"

	"assetloan-backend/internal/usecase/extension"
	"assetloan-backend/internal/usecase/loan"

	"github.com/labstack/echo/v4"
)

type ExtensionHandler struct {
	uc  *extension.Usecase
	loc *time.Location
}

func NewExtensionHandler(uc *extension.Usecase, loc *time.Location) *ExtensionHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &ExtensionHandler{uc: uc, loc: loc}
}

type extendRequestReq struct {
	Note                string `json:"note"                validate:"required,max=1000"`
	RequestedReturnDate string `json:"requestedReturnDate" validate:"required,date"`
}

type extendDecisionReq struct {
	Action string `json:"action" validate:"required,oneof=approve reject approved rejected"`
	Note   string `json:"note"   validate:"max=1000"`
}

// entryResponse pairs the updated loan with the history entry a request or
// decision touched.
type entryResponse struct {
	Loan  *loan.LoanDTO `json:"loan"`
	Entry any           `json:"entry"`
}

func (h *ExtensionHandler) Request(c echo.Context) error {
	actor, ok, err := requireActor(c)
	if !ok {
		return err
	}
	var req extendRequestReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	date, _ := parseDate(req.RequestedReturnDate, h.loc)
	res, err := h.uc.Request(c.Request().Context(), c.Param("loan_id"), extension.RequestInput{
		Note:                req.Note,
		RequestedReturnDate: &date,
	}, actor)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, entryResponse{Loan: loan.ToDTO(res.Loan), Entry: res.Entry})
}

func (h *ExtensionHandler) Decide(c echo.Context) error {
	actor, ok, err := requireActor(c)
	if !ok {
		return err
	}
	var req extendDecisionReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	res, err := h.uc.Decide(c.Request().Context(), c.Param("loan_id"), extension.DecideInput(req), actor)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, entryResponse{Loan: loan.ToDTO(res.Loan), Entry: res.Entry})
}
