package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/bistro/internal/config"
	"github.com/example/bistro/internal/models"
	"github.com/example/bistro/internal/utils"
)

const (
	userContextKey = "currentUserID"
	roleContextKey = "currentUserRole"
)

// AuthMiddleware validates JWT tokens and loads the authenticated user into context.
func AuthMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing authorization header")
		}

		identity, err := parseBearer(cfg.JWTSecret, authHeader)
		if err != nil {
			return err
		}

		storeIdentity(c, identity)
		return c.Next()
	}
}

// OptionalAuth loads the user when a valid bearer token is present and lets
// anonymous requests through. A malformed or invalid token is still rejected.
func OptionalAuth(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Next()
		}

		identity, err := parseBearer(cfg.JWTSecret, authHeader)
		if err != nil {
			return err
		}

		storeIdentity(c, identity)
		return c.Next()
	}
}

// AdminOnly must run after AuthMiddleware.
func AdminOnly() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if GetCurrentRole(c) != models.RoleAdmin {
			return fiber.NewError(fiber.StatusForbidden, "admin access required")
		}
		return c.Next()
	}
}

// GetCurrentUserID extracts the authenticated user ID from context.
func GetCurrentUserID(c *fiber.Ctx) (uuid.UUID, bool) {
	value := c.Locals(userContextKey)
	if value == nil {
		return uuid.Nil, false
	}

	if id, ok := value.(uuid.UUID); ok {
		return id, true
	}

	return uuid.Nil, false
}

// GetCurrentRole returns the role claim of the authenticated user, or "".
func GetCurrentRole(c *fiber.Ctx) string {
	role, _ := c.Locals(roleContextKey).(string)
	return role
}

func parseBearer(secret, header string) (utils.TokenIdentity, error) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return utils.TokenIdentity{}, fiber.NewError(fiber.StatusUnauthorized, "invalid authorization header")
	}

	identity, err := utils.ParseToken(secret, strings.TrimSpace(parts[1]))
	if err != nil {
		return utils.TokenIdentity{}, fiber.NewError(fiber.StatusUnauthorized, "invalid token")
	}
	return identity, nil
}

func storeIdentity(c *fiber.Ctx, identity utils.TokenIdentity) {
	c.Locals(userContextKey, identity.UserID)
	c.Locals(roleContextKey, identity.Role)
}
