package middleware

import (
	"strings"

	"license-server/internal/model"
	"license-server/internal/util"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// LocalsUserID is the fiber.Ctx locals key holding the authenticated user ID.
const LocalsUserID = "userID"

// Auth requires a valid "Bearer <jwt>" Authorization header.
func Auth(secret []byte) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing auth token",
			})
		}

		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid auth header format",
			})
		}

		userID, err := util.ValidateToken(tokenParts[1], secret)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid auth token",
			})
		}

		c.Locals(LocalsUserID, userID)
		return c.Next()
	}
}

// AdminOnly must run after Auth. It rejects users that are not active admins.
func AdminOnly(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, ok := c.Locals(LocalsUserID).(uint)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing auth token",
			})
		}

		var user model.User
		err := db.WithContext(c.UserContext()).First(&user, userID).Error
		if err != nil || user.Role != model.RoleAdmin || user.Status != "active" {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "admin privileges required",
			})
		}

		return c.Next()
	}
}

// UserID returns the authenticated user ID set by Auth.
func UserID(c *fiber.Ctx) uint {
	id, _ := c.Locals(LocalsUserID).(uint)
	return id
}
