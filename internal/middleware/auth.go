package middleware // middleware provides shared request processing for handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/chikaturin/test-hololab-be/internal/auth"
	"github.com/chikaturin/test-hololab-be/internal/repository"
)

// PrincipalLoader is the slice of the role repository needed to attach the
// authenticated user and its active roles to the request.
type PrincipalLoader interface {
	FindUserWithRoles(ctx context.Context, userID uint64) (repository.UserWithRoles, error)
}

// SessionAuth returns an Echo middleware that validates the Bearer access
// token together with the x-session-id header.  A validly signed token is
// not enough: its session must still exist and be unrevoked.  On success
// the principal is stored in the request context under "user_id", "email"
// and "roles" for handlers and later middleware.
//
// Every failure mode responds with the same generic message so callers
// cannot tell a bad signature from an expired token or a revoked session.
func SessionAuth(svc *auth.Service, roles PrincipalLoader) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			sessionID := c.Request().Header.Get("x-session-id")
			if !strings.HasPrefix(authHeader, "Bearer ") || sessionID == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired token"})
			}
			token := strings.TrimPrefix(authHeader, "Bearer ")

			ctx := c.Request().Context()
			payload, err := svc.Verify(ctx, token, sessionID, false)
			if err != nil {
				if err == auth.ErrInvalidToken || err == auth.ErrUnauthorized {
					return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired token"})
				}
				return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "verification unavailable"})
			}

			principal, err := roles.FindUserWithRoles(ctx, payload.UserID)
			if err == repository.ErrNotFound {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired token"})
			}
			if err != nil {
				return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "verification unavailable"})
			}
			if !principal.IsActive {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired token"})
			}

			c.Set("user_id", principal.ID)
			c.Set("email", principal.Email)
			c.Set("session_id", sessionID)
			c.Set("roles", principal.Roles)
			return next(c)
		}
	}
}

// CurrentUserID pulls the authenticated user id set by SessionAuth.  The
// second return is false when the request is unauthenticated.
func CurrentUserID(c echo.Context) (uint64, bool) {
	id, ok := c.Get("user_id").(uint64)
	return id, ok
}

// CurrentRoles pulls the active role assignments set by SessionAuth.
func CurrentRoles(c echo.Context) []repository.RoleAssignment {
	roles, _ := c.Get("roles").([]repository.RoleAssignment)
	return roles
}
