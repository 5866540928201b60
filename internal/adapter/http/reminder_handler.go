package http

import (
	"net/http"

	"assetloan-backend/internal/domain/failure"
	"assetloan-backend/internal/usecase/reminder"

	"github.com/labstack/echo/v4"
)

type ReminderHandler struct{ s *reminder.Scheduler }

func NewReminderHandler(s *reminder.Scheduler) *ReminderHandler { return &ReminderHandler{s: s} }

type triggerReq struct {
	// Offset is a token such as 3_days, 0_days or after_2_days.
	Offset string `json:"offset" validate:"required,max=32"`
}

type sweepReq struct {
	DryRun     bool `json:"dryRun"`
	TestOffset *int `json:"testOffset" validate:"omitempty,gte=-30,lte=7"`
}

func (h *ReminderHandler) Trigger(c echo.Context) error {
	actor, ok, err := requireActor(c)
	if !ok {
		return err
	}
	var req triggerReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	res, err := h.s.TriggerManual(c.Request().Context(), c.Param("loan_id"), req.Offset, actor.Display())
	if err != nil {
		return writeError(c, err)
	}
	code := http.StatusOK
	if !res.Sent {
		// nothing went out; the offset stays open for another attempt
		code = http.StatusAccepted
	}
	return c.JSON(code, res)
}

// Sweep runs the reminder sweep on demand. Only admins may start one.
func (h *ReminderHandler) Sweep(c echo.Context) error {
	actor, ok, err := requireActor(c)
	if !ok {
		return err
	}
	if !actor.IsAdmin() {
		return writeError(c, failure.ErrForbidden)
	}
	var req sweepReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	res, err := h.s.RunSweep(c.Request().Context(), reminder.SweepInput{DryRun: req.DryRun, TestOffset: req.TestOffset})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}
