package middleware

// identity.go holds the context keys shared by the middleware and the
// accessors handlers use to read the authenticated caller.

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/vault-access/internal/model"
)

const (
	ctxUserID = "user_id"
	ctxUser   = "user"
)

// UserID returns the authenticated subject, or "" when the request carries
// no verified token.
func UserID(c echo.Context) string {
	if v, ok := c.Get(ctxUserID).(string); ok {
		return v
	}
	return ""
}

// CurrentUser returns the directory entry RequireRole loaded for this
// request.
func CurrentUser(c echo.Context) (model.User, bool) {
	u, ok := c.Get(ctxUser).(model.User)
	return u, ok
}

// rateIdentity keys anonymous callers as "anon".
func rateIdentity(c echo.Context) string {
	if id := UserID(c); id != "" {
		return id
	}
	return "anon"
}
