package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/vault-access/internal/model"
	"github.com/iliyamo/vault-access/internal/service"
)

// AccessRequestHandler exposes the request registry.
type AccessRequestHandler struct {
	Registry *service.AccessRequestRegistry
	Users    UserAccounts
	Log      *zap.Logger
}

func NewAccessRequestHandler(r *service.AccessRequestRegistry, u UserAccounts, log *zap.Logger) *AccessRequestHandler {
	if r == nil || u == nil {
		panic("nil dependency passed to NewAccessRequestHandler")
	}
	return &AccessRequestHandler{Registry: r, Users: u, Log: log}
}

type createRequestReq struct {
	AdminID     string `json:"admin_id"`
	VaultItemID string `json:"vault_item_id"`
	Reason      string `json:"reason"`
	AccessType  string `json:"access_type"`
}

type decisionReq struct {
	Decision string `json:"decision"`
}

// Create files a request from the calling employee.
func (h *AccessRequestHandler) Create(c echo.Context) error {
	var req createRequestReq
	if err := c.Bind(&req); err != nil {
		return writeError(c, h.Log, errInvalidBody)
	}
	if req.AccessType == "" {
		req.AccessType = string(model.AccessRead)
	}
	created, err := h.Registry.Create(c.Request().Context(), service.CreateRequestInput{
		EmployeeID:  callerID(c),
		AdminID:     strings.TrimSpace(req.AdminID),
		VaultItemID: strings.TrimSpace(req.VaultItemID),
		Reason:      req.Reason,
		AccessType:  req.AccessType,
	})
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, created)
}

// Mine lists the caller's own requests, newest first.
func (h *AccessRequestHandler) Mine(c echo.Context) error {
	reqs, err := h.Registry.ListForEmployee(c.Request().Context(), callerID(c))
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": reqs})
}

// Pending lists every undecided request, oldest first.
func (h *AccessRequestHandler) Pending(c echo.Context) error {
	reqs, err := h.Registry.ListPending(c.Request().Context())
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": reqs})
}

// Decide approves or rejects the request named in the path.
func (h *AccessRequestHandler) Decide(c echo.Context) error {
	var req decisionReq
	if err := c.Bind(&req); err != nil {
		return writeError(c, h.Log, errInvalidBody)
	}
	decision, err := model.ParseDecision(req.Decision)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	decided, err := h.Registry.Decide(c.Request().Context(), c.Param("id"), callerID(c), decision)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, decided)
}

// ListAdmins lists the administrators a request can be addressed to.
func (h *AccessRequestHandler) ListAdmins(c echo.Context) error {
	admins, err := h.Users.ListByRole(c.Request().Context(), model.RoleAdmin)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	out := make([]userView, 0, len(admins))
	for _, a := range admins {
		out = append(out, viewUser(a))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}
