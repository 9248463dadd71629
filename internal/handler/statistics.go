package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// HandleLicenseStatistics aggregates over [start_date, end_date]. Both are
// optional YYYY-MM-DD values; the default window is the last 30 days.
func (h *Handler) HandleLicenseStatistics(c *fiber.Ctx) error {
	now := time.Now().UTC()
	start := now.AddDate(0, 0, -30)
	end := now

	if s := c.Query("start_date"); s != "" {
		t, err := time.Parse(dateLayout, s)
		if err != nil {
			return badDate(c, "start_date")
		}
		start = t
	}
	if s := c.Query("end_date"); s != "" {
		t, err := time.Parse(dateLayout, s)
		if err != nil {
			return badDate(c, "end_date")
		}
		// Include the whole end day.
		end = t.Add(24*time.Hour - time.Nanosecond)
	}
	if end.Before(start) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "end_date is before start_date",
		})
	}

	stats, err := h.statistics.Collect(c.UserContext(), start, end)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to collect statistics",
		})
	}

	return c.JSON(fiber.Map{
		"data":         stats,
		"success_rate": stats.GetSuccessRate(),
	})
}

func badDate(c *fiber.Ctx, field string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": "invalid date format",
		"errors": []fiber.Map{
			{"field": field, "message": "date must be YYYY-MM-DD"},
		},
	})
}
