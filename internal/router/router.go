// Package router registers the HTTP routes of the vault access API.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/vault-access/internal/handler"
	"github.com/iliyamo/vault-access/internal/middleware"
	"github.com/iliyamo/vault-access/internal/model"
)

// Guard builds the authentication chain for protected routes: the JWT is
// verified, then the caller's role is loaded from the directory.
type Guard struct {
	JWTSecret string
	Users     middleware.UserLookup
}

// As returns the middleware chain admitting only roles.  With no roles any
// authenticated, known user is admitted.
func (g Guard) As(roles ...model.Role) []echo.MiddlewareFunc {
	return []echo.MiddlewareFunc{
		middleware.JWTAuth(g.JWTSecret),
		middleware.RequireRole(g.Users, roles...),
	}
}

// RegisterRoutes registers routes that do not require authentication.
func RegisterRoutes(e *echo.Echo, health echo.HandlerFunc) {
	e.GET("/healthz", health)
}

// RegisterAuth registers the token endpoints under /v1/auth and the
// caller's own profile and MFA enrollment under /v1.  limiter guards the
// credential endpoints against guessing.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, g Guard, limiter echo.MiddlewareFunc) {
	auth := e.Group("/v1/auth")
	auth.POST("/login", a.Login, limiter)
	auth.POST("/refresh", a.Refresh, limiter)
	auth.POST("/logout", a.Logout)

	e.GET("/v1/me", a.Me, g.As()...)
	e.POST("/v1/mfa/enroll", a.EnrollMFA, g.As()...)
}
