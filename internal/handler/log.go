package handler

import (
	"strconv"

	"license-server/internal/model"

	"github.com/gofiber/fiber/v2"
)

// HandleGetLogs pages through the operation log. An optional user_id query
// narrows it to one administrator.
func (h *Handler) HandleGetLogs(c *fiber.Ctx) error {
	page, pageSize := pagination(c)

	var (
		logs  []model.OperationLog
		total int64
		err   error
	)
	if raw := c.Query("user_id"); raw != "" {
		userID, perr := strconv.ParseUint(raw, 10, 32)
		if perr != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid user_id",
			})
		}
		logs, total, err = h.audit.GetUserOperationLogs(c.UserContext(), uint(userID), page, pageSize)
	} else {
		logs, total, err = h.audit.GetOperationLogs(c.UserContext(), page, pageSize)
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to load operation logs",
		})
	}

	return c.JSON(fiber.Map{
		"logs":  logs,
		"total": total,
		"page":  page,
		"size":  pageSize,
	})
}
