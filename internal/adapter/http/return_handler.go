package http

import (
	"net/http"

	domain "assetloan-backend/internal/domain/loan"
	"assetloan-backend/internal/usecase/loan"
	"assetloan-backend/internal/usecase/returns"

	"github.com/labstack/echo/v4"
)

type ReturnHandler struct{ uc *returns.Usecase }

func NewReturnHandler(uc *returns.Usecase) *ReturnHandler { return &ReturnHandler{uc: uc} }

type photoReq struct {
	Name        string `json:"name"        validate:"required,max=255"`
	URL         string `json:"url"         validate:"required,url"`
	ContentType string `json:"contentType" validate:"max=100"`
	Size        int64  `json:"size"        validate:"gte=0"`
}

type returnRequestReq struct {
	Note   string     `json:"note"   validate:"required,max=1000"`
	Photos []photoReq `json:"photos" validate:"dive"`
}

type returnDecisionReq struct {
	Action    string `json:"action"    validate:"required,oneof=approve reject approved rejected"`
	Note      string `json:"note"      validate:"max=1000"`
	Condition string `json:"condition" validate:"max=255"`
}

func (h *ReturnHandler) Request(c echo.Context) error {
	actor, ok, err := requireActor(c)
	if !ok {
		return err
	}
	var req returnRequestReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	in := returns.RequestInput{Note: req.Note}
	for _, p := range req.Photos {
		in.Photos = append(in.Photos, domain.Attachment(p))
	}
	res, err := h.uc.Request(c.Request().Context(), c.Param("loan_id"), in, actor)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, entryResponse{Loan: loan.ToDTO(res.Loan), Entry: res.Entry})
}

func (h *ReturnHandler) Decide(c echo.Context) error {
	actor, ok, err := requireActor(c)
	if !ok {
		return err
	}
	var req returnDecisionReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	res, err := h.uc.Decide(c.Request().Context(), c.Param("loan_id"), returns.DecideInput(req), actor)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, entryResponse{Loan: loan.ToDTO(res.Loan), Entry: res.Entry})
}
