package middleware

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/glowbook/glowbook/internal/auth"
	"github.com/glowbook/glowbook/internal/config"
	"github.com/glowbook/glowbook/internal/identity"
)

// Locals keys set by JWTAuth.
const (
	LocalUserID   = "user_id"
	LocalUserRole = "user_role"
)

// JWTAuth validates access tokens, checks the token version against the
// user record, and stores the caller's id and role in request locals.
func JWTAuth(cfg config.Config, repo identity.Repository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		tokenStr := strings.TrimSpace(authz[len("Bearer "):])
		claims, err := auth.ParseAndVerifyHS256(tokenStr, []byte(cfg.JWTSecret))
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "invalid token")
		}
		sub, _ := claims["sub"].(string)
		role, _ := claims["role"].(string)
		verFloat, _ := claims["ver"].(float64)

		user, err := repo.FindByID(c.UserContext(), sub)
		if err != nil || user.TokenVersion != int(verFloat) || !user.Active {
			return fiber.NewError(http.StatusUnauthorized, "token invalidated")
		}

		c.Locals(LocalUserID, sub)
		c.Locals(LocalUserRole, role)
		return c.Next()
	}
}

// RequireRole rejects callers whose authenticated role does not match.
func RequireRole(role identity.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		current, _ := c.Locals(LocalUserRole).(string)
		if current != string(role) {
			return fiber.NewError(http.StatusForbidden, "insufficient role")
		}
		return c.Next()
	}
}
