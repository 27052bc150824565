package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/vault-access/internal/handler"
	"github.com/iliyamo/vault-access/internal/model"
)

// RegisterAccessRequests registers the request lifecycle.  Employees file
// and follow their own requests; administrators see the pending queue and
// decide.
func RegisterAccessRequests(e *echo.Echo, h *handler.AccessRequestHandler, g Guard) {
	employee := g.As(model.RoleEmployee)
	admin := g.As(model.RoleAdmin)

	e.GET("/v1/admins", h.ListAdmins, employee...)
	e.POST("/v1/access-requests", h.Create, employee...)
	e.GET("/v1/access-requests/mine", h.Mine, employee...)

	e.GET("/v1/access-requests/pending", h.Pending, admin...)
	e.POST("/v1/access-requests/:id/decision", h.Decide, admin...)
}
