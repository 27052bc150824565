package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/vault-access/internal/model"
)

const (
	defaultAuditLimit = 100
	maxAuditLimit     = 500
)

// AuditReader lists recorded audit events, newest first.
type AuditReader interface {
	List(ctx context.Context, limit int) ([]model.AuditEvent, error)
}

// AuditHandler serves the auditor's read-only event log.
type AuditHandler struct {
	Events AuditReader
	Log    *zap.Logger
}

func NewAuditHandler(events AuditReader, log *zap.Logger) *AuditHandler {
	return &AuditHandler{Events: events, Log: log}
}

// List returns up to ?limit= events (default 100, max 500).
func (h *AuditHandler) List(c echo.Context) error {
	limit := defaultAuditLimit
	if s := c.QueryParam("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return writeError(c, h.Log, model.ErrValidation("limit must be a positive integer"))
		}
		limit = min(n, maxAuditLimit)
	}
	events, err := h.Events.List(c.Request().Context(), limit)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": events})
}
