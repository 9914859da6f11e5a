package http

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/FilipeAphrody/cartify/internal/domain"
	"github.com/FilipeAphrody/cartify/pkg/security"
)

// Identity is the authenticated caller, extracted from the access token by
// RequireAuth and read by handlers through IdentityFrom. It is never
// mutated after being attached to the request.
type Identity struct {
	UserID string
	Role   string
}

const identityContextKey = "auth_identity"

// IdentityFrom returns the authenticated identity attached by RequireAuth.
func IdentityFrom(c echo.Context) (Identity, bool) {
	identity, ok := c.Get(identityContextKey).(Identity)
	return identity, ok
}

// RequireAuth validates the bearer access token and confirms the account
// still exists before attaching the caller's identity to the request.
func RequireAuth(secret string, users domain.UserRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized: No token provided")
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized: Token missing")
			}

			claims, err := security.ValidateToken(parts[1], secret)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized: Invalid or expired token")
			}

			// A deleted account's still-valid token must not authenticate.
			if _, err := users.GetByID(c.Request().Context(), claims.UserID); err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized: User no longer exists")
			}

			c.Set(identityContextKey, Identity{UserID: claims.UserID, Role: claims.Role})
			return next(c)
		}
	}
}

// RequireRole restricts a route to callers holding one of the given roles.
// Must run after RequireAuth.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identity, ok := IdentityFrom(c)
			if !ok || !allowed[identity.Role] {
				return domain.ErrForbidden
			}
			return next(c)
		}
	}
}
