package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/vault-access/internal/handler"
	"github.com/iliyamo/vault-access/internal/model"
)

// RegisterVault registers step-up authorization and session use.  Any
// role may attempt /v1/vault/access; the authority decides.  Session
// routes check ownership in the service, so any authenticated user may
// reach them.
func RegisterVault(e *echo.Echo, h *handler.VaultHandler, g Guard, limiter, cache echo.MiddlewareFunc) {
	e.GET("/v1/vault-items", h.ListItems, append(g.As(model.RoleEmployee, model.RoleAdmin), cache)...)
	e.POST("/v1/vault/access", h.Access, append(g.As(), limiter)...)

	e.GET("/v1/sessions/:id/records", h.ReadRecords, g.As()...)
	e.POST("/v1/sessions/:id/records", h.WriteRecord, g.As()...)
	e.DELETE("/v1/sessions/:id", h.EndSession, g.As()...)
}

// RegisterAudit registers the auditor's event log.
func RegisterAudit(e *echo.Echo, h *handler.AuditHandler, g Guard) {
	e.GET("/v1/audit/events", h.List, g.As(model.RoleAuditor)...)
}
