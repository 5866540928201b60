package http

import (
	"errors"
	"log/slog"
	"net/http"

	"assetloan-backend/internal/domain/failure"

	"github.com/labstack/echo/v4"
)

// writeError maps domain failures onto HTTP statuses. Anything unrecognized is
// logged and answered with a generic 500.
func writeError(c echo.Context, err error) error {
	var ve *failure.ValidationError
	switch {
	case errors.As(err, &ve):
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: []FieldError{{Field: ve.Field, Message: ve.Message}},
		})
	case errors.Is(err, failure.ErrNotFound):
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case errors.Is(err, failure.ErrAlreadyProcessed):
		return c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
	case errors.Is(err, failure.ErrStaleVersion):
		return c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
	case errors.Is(err, failure.ErrForbidden):
		return c.JSON(http.StatusForbidden, ErrorResponse{Error: err.Error()})
	}
	slog.Error("request failed",
		"method", c.Request().Method, "path", c.Path(), "loan_id", c.Param("loan_id"), "error", err)
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}

// bindAndValidate decodes the JSON body into req and runs the struct rules.
// It writes the 400/422 itself and reports whether the handler may continue.
func bindAndValidate(c echo.Context, req any) (bool, error) {
	if err := c.Bind(req); err != nil {
		return false, c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(req); err != nil {
		return false, c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: ToFieldErrors(err),
		})
	}
	return true, nil
}
