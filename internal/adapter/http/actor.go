package http

import (
	"net/http"
	"strings"

	domain "assetloan-backend/internal/domain/loan"

	"github.com/labstack/echo/v4"
)

// Identity headers set by the gateway in front of this service.
const (
	HeaderActorID        = "Ax-Actor-Id"
	HeaderActorName      = "Ax-Actor-Name"
	HeaderActorEmail     = "Ax-Actor-Email"
	HeaderActorRole      = "Ax-Actor-Role"
	HeaderActorCompanies = "Ax-Actor-Companies"
)

// actorFrom reads the caller. Companies is a comma separated list.
func actorFrom(c echo.Context) (domain.Actor, bool) {
	h := c.Request().Header
	a := domain.Actor{
		ID:    strings.TrimSpace(h.Get(HeaderActorID)),
		Name:  strings.TrimSpace(h.Get(HeaderActorName)),
		Email: strings.TrimSpace(h.Get(HeaderActorEmail)),
		Role:  strings.ToLower(strings.TrimSpace(h.Get(HeaderActorRole))),
	}
	for _, co := range strings.Split(h.Get(HeaderActorCompanies), ",") {
		if co = strings.TrimSpace(co); co != "" {
			a.Companies = append(a.Companies, co)
		}
	}
	return a, a.ID != ""
}

func requireActor(c echo.Context) (domain.Actor, bool, error) {
	a, ok := actorFrom(c)
	if !ok {
		return a, false, c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "missing " + HeaderActorID})
	}
	return a, true, nil
}
