package auth

import (
	"fmt"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/heartsync/api/internal/platform/apperror"
)

// Roles.
const (
	RoleAdmin  = "admin"
	RoleDoctor = "doctor"
)

// RequireRole returns middleware that rejects requests whose attached role is
// not one of the given roles. Admins pass every check.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role := RoleFromContext(c.Request().Context())
			if role == RoleAdmin {
				return next(c)
			}
			for _, required := range roles {
				if role == required {
					return next(c)
				}
			}
			return apperror.Forbidden(
				fmt.Sprintf("required role: %s", strings.Join(roles, " or ")))
		}
	}
}
