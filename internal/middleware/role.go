package middleware // middleware provides shared request processing for handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/vault-access/internal/model"
	"github.com/iliyamo/vault-access/internal/repository"
)

// UserLookup resolves the authenticated subject to a directory entry.
type UserLookup interface {
	GetByID(ctx context.Context, id string) (model.User, error)
}

// RequireRole returns a middleware that loads the caller from users and
// enforces that their current role is one of roles.  The role is read on
// every request, so a demotion takes effect immediately.  With no roles
// any known user passes.  The loaded user is available via CurrentUser.
func RequireRole(users UserLookup, roles ...model.Role) echo.MiddlewareFunc {
	allowed := make(map[model.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := UserID(c)
			if id == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
			}
			ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
			defer cancel()
			u, err := users.GetByID(ctx, id)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unknown user"})
				}
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
			}
			if len(allowed) > 0 && !allowed[u.Role] {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden", "kind": string(model.KindForbidden)})
			}
			c.Set(ctxUser, u)
			return next(c)
		}
	}
}
