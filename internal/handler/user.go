package handler

import (
	"time"

	"license-server/internal/middleware"
	"license-server/internal/model"
	"license-server/internal/util"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type LoginInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type ChangePasswordInput struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

const minPasswordLength = 8

// HandleAdminLogin exchanges admin credentials for a session JWT. Every
// attempt against a known account is written to the login log.
func (h *Handler) HandleAdminLogin(c *fiber.Ctx) error {
	input := new(LoginInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	ctx := c.UserContext()
	var user model.User
	if err := h.db.WithContext(ctx).Where("username = ?", input.Username).First(&user).Error; err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "invalid username or password",
		})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.Password)); err != nil {
		h.recordLogin(c, &user, "failed")
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "invalid username or password",
		})
	}
	if user.Status != "active" {
		h.recordLogin(c, &user, "failed")
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "account disabled",
		})
	}

	h.recordLogin(c, &user, "success")
	now := time.Now().UTC()
	user.LastLogin = &now
	if err := h.db.WithContext(ctx).Model(&user).Update("last_login", now).Error; err != nil {
		h.log.Warn("update last login", zap.String("username", user.Username), zap.Error(err))
	}

	token, err := util.GenerateToken(user.ID, h.jwtSecret, h.tokenTTL)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to issue token",
		})
	}

	h.log.Info("admin logged in", zap.String("username", user.Username), zap.String("ip", c.IP()))
	return c.JSON(fiber.Map{
		"token": token,
		"user":  user,
	})
}

func (h *Handler) recordLogin(c *fiber.Ctx, user *model.User, status string) {
	entry := &model.LoginLog{
		UserID:    user.ID,
		Username:  user.Username,
		IP:        c.IP(),
		UserAgent: c.Get(fiber.HeaderUserAgent),
		Status:    status,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.db.WithContext(c.UserContext()).Create(entry).Error; err != nil {
		h.log.Warn("write login log", zap.String("username", user.Username), zap.Error(err))
	}
}

func (h *Handler) HandleChangePassword(c *fiber.Ctx) error {
	input := new(ChangePasswordInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	if len(input.NewPassword) < minPasswordLength {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "new password is too short",
		})
	}

	ctx := c.UserContext()
	var user model.User
	if err := h.db.WithContext(ctx).First(&user, middleware.UserID(c)).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "user not found",
		})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.CurrentPassword)); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "current password is incorrect",
		})
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(input.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to hash password",
		})
	}

	if err := h.db.WithContext(ctx).Model(&user).Update("password", string(hashed)).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to update password",
		})
	}

	if h.audit != nil {
		if err := h.audit.LogOperation(ctx, user.ID, "user.change_password", "user", user.Username, nil); err != nil {
			h.log.Warn("write operation log", zap.Error(err))
		}
	}

	return c.JSON(fiber.Map{
		"message": "password updated",
	})
}

// HandleGetLoginLogs lists the caller's own login attempts, newest first.
func (h *Handler) HandleGetLoginLogs(c *fiber.Ctx) error {
	page, pageSize := pagination(c)

	var logs []model.LoginLog
	var total int64

	db := h.db.WithContext(c.UserContext()).Model(&model.LoginLog{}).Where("user_id = ?", middleware.UserID(c))

	if err := db.Count(&total).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to count login logs",
		})
	}

	offset := (page - 1) * pageSize
	if err := db.Order("created_at DESC, id DESC").Offset(offset).Limit(pageSize).Find(&logs).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to load login logs",
		})
	}

	return c.JSON(fiber.Map{
		"logs":  logs,
		"total": total,
		"page":  page,
		"size":  pageSize,
	})
}
