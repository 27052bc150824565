package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/vault-access/internal/config"
	"github.com/iliyamo/vault-access/internal/mfa"
	"github.com/iliyamo/vault-access/internal/middleware"
	"github.com/iliyamo/vault-access/internal/model"
	"github.com/iliyamo/vault-access/internal/repository"
	"github.com/iliyamo/vault-access/internal/service"
	"github.com/iliyamo/vault-access/internal/utils"
)

// UserAccounts is the user directory as seen by the HTTP layer.
type UserAccounts interface {
	GetByID(ctx context.Context, id string) (model.User, error)
	GetByUsername(ctx context.Context, username string) (model.User, error)
	ListByRole(ctx context.Context, role model.Role) ([]model.User, error)
}

// RefreshTokens persists hashed refresh tokens.
type RefreshTokens interface {
	StoreRefresh(ctx context.Context, userID, tokenHash string, exp time.Time) error
	ValidateRefresh(ctx context.Context, tokenHash string) (string, error)
	RevokeByHash(ctx context.Context, tokenHash string) error
}

// MFAEnroller issues TOTP secrets and checks codes against the current one.
type MFAEnroller interface {
	GenerateSecret(ctx context.Context, userID, accountName string) (mfa.Enrollment, error)
	Verify(ctx context.Context, userID, code string) (bool, error)
}

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg    config.Config
	Users  UserAccounts
	Tokens RefreshTokens
	MFA    MFAEnroller
	Audit  *service.Auditor
	Log    *zap.Logger
}

func NewAuthHandler(cfg config.Config, u UserAccounts, t RefreshTokens, m MFAEnroller, a *service.Auditor, log *zap.Logger) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Tokens: t, MFA: m, Audit: a, Log: log}
}

// ----- DTOs -----

type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}
type enrollReq struct {
	TOTPCode string `json:"totp_code"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type authResp struct {
	User    userView  `json:"user"`
	Access  tokenPart `json:"access"`
	Refresh tokenPart `json:"refresh"`
}

// Login: verify credentials and return a new token pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return writeError(c, h.Log, errInvalidBody)
	}
	req.Username = strings.ToLower(strings.TrimSpace(req.Username))
	if req.Username == "" || req.Password == "" {
		return writeError(c, h.Log, model.ErrValidation("username/password required"))
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByUsername(ctx, req.Username)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return writeError(c, h.Log, err)
	}
	// u is zero when the user is missing; VerifyPassword still runs.
	if ok := utils.VerifyPassword(u.PasswordHash, req.Password); err != nil || !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials", "kind": "unauthenticated"})
	}

	resp, err := h.issue(ctx, u)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	h.Audit.Emit(ctx, model.AuditEvent{ActorID: u.ID, Action: model.ActionLogin})
	return c.JSON(http.StatusOK, resp)
}

// Refresh: validate by hash, revoke old, issue new.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return writeError(c, h.Log, model.ErrValidation("refresh_token required"))
	}
	hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	userID, err := h.Tokens.ValidateRefresh(ctx, hash)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh", "kind": "unauthenticated"})
	}
	// Rotation: only the caller that revokes the token gets a new pair.
	if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh", "kind": "unauthenticated"})
		}
		return writeError(c, h.Log, err)
	}
	u, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh", "kind": "unauthenticated"})
		}
		return writeError(c, h.Log, err)
	}

	resp, err := h.issue(ctx, u)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// Logout revokes the presented refresh token.  Unknown or already revoked
// tokens still get 204.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return writeError(c, h.Log, model.ErrValidation("refresh_token required"))
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	err := h.Tokens.RevokeByHash(ctx, utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken)))
	if err != nil && !errors.Is(err, repository.ErrConflict) {
		return writeError(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Me returns the caller as the directory currently knows them.
func (h *AuthHandler) Me(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "kind": "unauthenticated"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"user":         viewUser(u),
		"mfa_enrolled": u.TOTPSecret != "",
	})
}

// EnrollMFA issues a fresh TOTP secret for the caller.  Replacing an
// enrolled secret requires a valid totp_code from it.  The QR code is
// returned as base64 PNG.
func (h *AuthHandler) EnrollMFA(c echo.Context) error {
	u, ok := middleware.CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "kind": "unauthenticated"})
	}
	// Rotating an existing secret needs a code from it, so a stolen access
	// token alone cannot take over the second factor.
	if u.TOTPSecret != "" {
		var req enrollReq
		if err := c.Bind(&req); err != nil {
			return writeError(c, h.Log, errInvalidBody)
		}
		ok, err := h.MFA.Verify(c.Request().Context(), u.ID, req.TOTPCode)
		if err != nil {
			return writeError(c, h.Log, err)
		}
		if !ok {
			return writeError(c, h.Log, model.ErrMFA())
		}
	}
	enr, err := h.MFA.GenerateSecret(c.Request().Context(), u.ID, u.Username)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	h.Audit.Emit(c.Request().Context(), model.AuditEvent{ActorID: u.ID, Action: model.ActionMFAEnrolled})
	return c.JSON(http.StatusCreated, enr)
}

func (h *AuthHandler) issue(ctx context.Context, u model.User) (authResp, error) {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, h.Cfg.AccessTTLMin)
	if err != nil {
		return authResp{}, err
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return authResp{}, err
	}
	if err := h.Tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return authResp{}, err
	}
	return authResp{
		User:    viewUser(u),
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp}, // raw back to client
	}, nil
}
