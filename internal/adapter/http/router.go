package http

import (
	"github.com/labstack/echo/v4"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Health    *Handler
	Loans     *LoanHandler
	Extension *ExtensionHandler
	Returns   *ReturnHandler
	Reminders *ReminderHandler
}

// Register mounts the lifecycle routes. mw wraps the mutating routes only.
func Register(e *echo.Echo, h Handlers, mw ...echo.MiddlewareFunc) {
	e.GET("/health", h.Health.Health)
	e.GET("/loans/:loan_id", h.Loans.Get)

	e.POST("/loans", h.Loans.Submit, mw...)
	e.POST("/loans/:loan_id/approval", h.Loans.DecideApproval, mw...)
	e.POST("/loans/:loan_id/warehouse", h.Loans.ProcessWarehouse, mw...)
	e.POST("/loans/:loan_id/extensions", h.Extension.Request, mw...)
	e.POST("/loans/:loan_id/extensions/decision", h.Extension.Decide, mw...)
	e.POST("/loans/:loan_id/returns", h.Returns.Request, mw...)
	e.POST("/loans/:loan_id/returns/decision", h.Returns.Decide, mw...)
	e.POST("/loans/:loan_id/reminders", h.Reminders.Trigger, mw...)
	e.POST("/reminders/sweep", h.Reminders.Sweep, mw...)
}
