package auth

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/heartsync/api/internal/platform/apperror"
)

type contextKey string

const (
	UserIDKey    contextKey = "user_id"
	UserEmailKey contextKey = "user_email"
	UserRoleKey  contextKey = "user_role"
)

// AccessTokenCookie is the cookie the dashboard stores the bearer token in.
// The middleware accepts it as a fallback when no Authorization header is
// present.
const AccessTokenCookie = "access_token"

// Middleware returns the auth gate: it extracts the bearer credential from
// the Authorization header or the access_token cookie, verifies it, and
// attaches the caller's identity to the request context. Requests without a
// valid, non-expired credential are rejected.
func Middleware(issuer *TokenIssuer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenStr := extractToken(c)
			if tokenStr == "" {
				return apperror.Unauthenticated("missing credentials")
			}

			claims, err := issuer.Verify(tokenStr)
			if err != nil {
				return apperror.Unauthenticated("invalid or expired token")
			}
			userID, err := claims.UserID()
			if err != nil {
				return apperror.Unauthenticated("malformed token subject")
			}

			ctx := c.Request().Context()
			ctx = context.WithValue(ctx, UserIDKey, userID)
			ctx = context.WithValue(ctx, UserEmailKey, claims.Email)
			ctx = context.WithValue(ctx, UserRoleKey, claims.Role)
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

// OptionalMiddleware attaches the caller's identity when a valid credential
// is present but never rejects. For endpoints that behave differently for
// authenticated callers, like registration.
func OptionalMiddleware(issuer *TokenIssuer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenStr := extractToken(c)
			if tokenStr == "" {
				return next(c)
			}
			claims, err := issuer.Verify(tokenStr)
			if err != nil {
				return next(c)
			}
			userID, err := claims.UserID()
			if err != nil {
				return next(c)
			}

			ctx := c.Request().Context()
			ctx = context.WithValue(ctx, UserIDKey, userID)
			ctx = context.WithValue(ctx, UserEmailKey, claims.Email)
			ctx = context.WithValue(ctx, UserRoleKey, claims.Role)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

func extractToken(c echo.Context) string {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
		return ""
	}
	if cookie, err := c.Cookie(AccessTokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return ""
}

func UserIDFromContext(ctx context.Context) int64 {
	id, _ := ctx.Value(UserIDKey).(int64)
	return id
}

func EmailFromContext(ctx context.Context) string {
	email, _ := ctx.Value(UserEmailKey).(string)
	return email
}

func RoleFromContext(ctx context.Context) string {
	role, _ := ctx.Value(UserRoleKey).(string)
	return role
}

// Principal is the authenticated caller, as services see it.
type Principal struct {
	ID    int64
	Email string
	Role  string
}

func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }

func PrincipalFromContext(ctx context.Context) Principal {
	return Principal{
		ID:    UserIDFromContext(ctx),
		Email: EmailFromContext(ctx),
		Role:  RoleFromContext(ctx),
	}
}
