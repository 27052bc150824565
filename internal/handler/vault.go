package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/vault-access/internal/model"
	"github.com/iliyamo/vault-access/internal/service"
)

// VaultHandler exposes step-up authorization and session use.
type VaultHandler struct {
	Authority *service.SessionAuthority
	Items     service.VaultItemStore
	Log       *zap.Logger
}

func NewVaultHandler(a *service.SessionAuthority, items service.VaultItemStore, log *zap.Logger) *VaultHandler {
	if a == nil || items == nil {
		panic("nil dependency passed to NewVaultHandler")
	}
	return &VaultHandler{Authority: a, Items: items, Log: log}
}

type accessReq struct {
	VaultItemID string `json:"vault_item_id"`
	TOTPCode    string `json:"totp_code"`
}

type accessResp struct {
	service.Grant
	TTLSeconds int `json:"ttl_seconds"`
}

// ListItems returns the vault item catalogue.  Titles only; records are
// reachable solely through a session.
func (h *VaultHandler) ListItems(c echo.Context) error {
	items, err := h.Items.List(c.Request().Context())
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Access verifies the caller's TOTP code and opens a session.
func (h *VaultHandler) Access(c echo.Context) error {
	var req accessReq
	if err := c.Bind(&req); err != nil {
		return writeError(c, h.Log, errInvalidBody)
	}
	req.VaultItemID = strings.TrimSpace(req.VaultItemID)
	if req.VaultItemID == "" {
		return writeError(c, h.Log, model.ErrValidation("vault_item_id is required"))
	}
	grant, err := h.Authority.Authorize(c.Request().Context(), callerID(c), req.VaultItemID, req.TOTPCode)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, accessResp{
		Grant:      grant,
		TTLSeconds: int(h.Authority.SessionTTL().Seconds()),
	})
}

// ReadRecords lists the session's records.
func (h *VaultHandler) ReadRecords(c echo.Context) error {
	res, err := h.Authority.UseSession(c.Request().Context(), callerID(c), c.Param("id"), model.AccessRead, nil)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	records := res.Records
	if records == nil {
		records = []model.VaultRecord{}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": records})
}

// WriteRecord adds a record through a write-scoped session.
func (h *VaultHandler) WriteRecord(c echo.Context) error {
	var p model.RecordPayload
	if err := c.Bind(&p); err != nil {
		return writeError(c, h.Log, errInvalidBody)
	}
	res, err := h.Authority.UseSession(c.Request().Context(), callerID(c), c.Param("id"), model.AccessWrite, &p)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, res.Record)
}

// EndSession revokes the session.  Repeating it is harmless.
func (h *VaultHandler) EndSession(c echo.Context) error {
	if err := h.Authority.EndSession(c.Request().Context(), callerID(c), c.Param("id")); err != nil {
		return writeError(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}
