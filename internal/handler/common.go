package handler // handler defines http handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/vault-access/internal/middleware"
	"github.com/iliyamo/vault-access/internal/model"
)

// errInvalidBody is returned when the request body cannot be decoded.
var errInvalidBody = model.ErrValidation("invalid body")

// statusFor maps an error kind to its HTTP status.
func statusFor(kind model.ErrorKind) int {
	switch kind {
	case model.KindValidation:
		return http.StatusBadRequest
	case model.KindNotFound:
		return http.StatusNotFound
	case model.KindForbidden:
		return http.StatusForbidden
	case model.KindConflict:
		return http.StatusConflict
	case model.KindMFA, model.KindSessionExpired:
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

// writeError renders err as {"error", "kind"}.  Unclassified errors are
// logged and reported as a generic internal error.
func writeError(c echo.Context, log *zap.Logger, err error) error {
	var me *model.Error
	if errors.As(err, &me) {
		return c.JSON(statusFor(me.Kind), echo.Map{"error": me.Message, "kind": string(me.Kind)})
	}
	if log != nil {
		log.Error("request failed",
			zap.String("method", c.Request().Method),
			zap.String("path", c.Path()),
			zap.String("user_id", middleware.UserID(c)),
			zap.Error(err),
		)
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error", "kind": "internal"})
}

// callerID returns the authenticated subject set by JWTAuth.
func callerID(c echo.Context) string { return middleware.UserID(c) }

type userView struct {
	ID       string     `json:"id"`
	Username string     `json:"username"`
	Role     model.Role `json:"role"`
}

func viewUser(u model.User) userView {
	return userView{ID: u.ID, Username: u.Username, Role: u.Role}
}
