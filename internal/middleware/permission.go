package middleware

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
)

// PermissionResolver resolves a role to its effective permission names,
// merging both storage representations.
type PermissionResolver interface {
	EffectivePermissions(ctx context.Context, roleID uint64) ([]string, error)
}

// RequirePermission returns a middleware that enforces that the
// authenticated principal holds every named permission across its active
// roles.  It assumes SessionAuth has already stored the roles in context.
// Missing permissions are a 403; an unauthenticated request is a 401.
func RequirePermission(resolver PermissionResolver, required ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, ok := CurrentUserID(c); !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired token"})
			}
			ctx := c.Request().Context()

			granted := make(map[string]bool)
			for _, assignment := range CurrentRoles(c) {
				names, err := resolver.EffectivePermissions(ctx, assignment.RoleID)
				if err != nil {
					return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "permission check unavailable"})
				}
				for _, n := range names {
					granted[n] = true
				}
			}
			for _, want := range required {
				if !granted[want] {
					return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
				}
			}
			return next(c)
		}
	}
}
