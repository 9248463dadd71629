package handler

import (
	"errors"

	"license-server/internal/middleware"
	"license-server/internal/model"
	"license-server/internal/service"
	"license-server/internal/store"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

// HandleValidate is the public check called by clients on every start.
func (h *Handler) HandleValidate(c *fiber.Ctx) error {
	input := new(model.ValidateInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"valid": false,
			"error": "invalid request body",
		})
	}

	out, err := h.validator.Validate(c.UserContext(), input.Key)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"valid": false,
			"error": "license check failed",
		})
	}

	if h.usage != nil {
		if err := h.usage.Record(c.UserContext(), input.Key, out, c.IP(), c.Get(fiber.HeaderUserAgent)); err != nil {
			h.log.Warn("record license usage", zap.Error(err))
		}
	}

	if !out.Valid {
		return c.JSON(fiber.Map{
			"valid": false,
			"error": out.Reason,
		})
	}
	return c.JSON(fiber.Map{
		"valid":          true,
		"username":       out.Username,
		"plan":           out.Plan,
		"days_remaining": out.DaysRemaining,
		"expires_at":     out.ExpiresAt.Format(dateLayout),
	})
}

func (h *Handler) HandleAdminCreate(c *fiber.Ctx) error {
	input := new(model.CreateLicenseInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	if input.Username == "" || input.Plan == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "username and plan are required",
		})
	}

	created, err := h.admin.Create(c.UserContext(), middleware.UserID(c), input.Username, input.Plan, input.Days)
	if err != nil {
		h.log.Error("create license", zap.String("username", input.Username), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to create license",
		})
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"key":        created.Key,
		"username":   created.Username,
		"plan":       created.Plan,
		"expires_at": created.ExpiresAt.Format(dateLayout),
	})
}

func (h *Handler) HandleAdminList(c *fiber.Ctx) error {
	licenses, err := h.admin.List(c.UserContext())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to list licenses",
		})
	}
	return c.JSON(fiber.Map{
		"licenses": licenses,
	})
}

// HandleAdminUpdate always answers success for a well-formed request, even
// when the key is unknown.
func (h *Handler) HandleAdminUpdate(c *fiber.Ctx) error {
	input := new(model.UpdateLicenseInput)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	if input.Key == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "key is required",
		})
	}

	if err := h.admin.Update(c.UserContext(), middleware.UserID(c), input.Key, input.Days, input.Active); err != nil {
		h.log.Error("update license", zap.String("fingerprint", service.KeyFingerprint(input.Key)), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to update license",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
	})
}

func (h *Handler) HandleGetLicense(c *fiber.Ctx) error {
	license, err := h.admin.Get(c.UserContext(), c.Params("key"))
	if errors.Is(err, store.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "license not found",
		})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to load license",
		})
	}
	return c.JSON(license)
}

func (h *Handler) HandleLicenseUsage(c *fiber.Ctx) error {
	key := c.Params("key")
	usages, err := h.usage.Recent(c.UserContext(), key)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to load usage history",
		})
	}
	return c.JSON(fiber.Map{
		"fingerprint": service.KeyFingerprint(key),
		"usages":      usages,
	})
}

// HandleAdminExport rewrites the configured spreadsheet from the store.
func (h *Handler) HandleAdminExport(c *fiber.Ctx) error {
	n, err := h.admin.ExportAll(c.UserContext())
	if errors.Is(err, service.ErrExportDisabled) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	if err != nil {
		h.log.Error("export licenses", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to export licenses",
		})
	}
	return c.JSON(fiber.Map{
		"success":  true,
		"exported": n,
	})
}
