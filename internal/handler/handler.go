package handler

import (
	"strconv"
	"time"

	"license-server/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// Deps wires the handler to its services. Exporting is optional.
type Deps struct {
	Validator  *service.Validator
	Admin      *service.AdminService
	Usage      *service.UsageLogger
	Audit      *service.OperationLogger
	Statistics *service.StatisticsService
	DB         *gorm.DB
	JWTSecret  []byte
	TokenTTL   time.Duration
	AppName    string
	AppVersion string
	Log        *zap.Logger
}

type Handler struct {
	validator  *service.Validator
	admin      *service.AdminService
	usage      *service.UsageLogger
	audit      *service.OperationLogger
	statistics *service.StatisticsService
	db         *gorm.DB
	jwtSecret  []byte
	tokenTTL   time.Duration
	appName    string
	appVersion string
	log        *zap.Logger
}

func New(d Deps) *Handler {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		validator:  d.Validator,
		admin:      d.Admin,
		usage:      d.Usage,
		audit:      d.Audit,
		statistics: d.Statistics,
		db:         d.DB,
		jwtSecret:  d.JWTSecret,
		tokenTTL:   d.TokenTTL,
		appName:    d.AppName,
		appVersion: d.AppVersion,
		log:        log,
	}
}

func (h *Handler) HandleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"service": h.appName,
		"version": h.appVersion,
	})
}

// pagination reads page and page_size, clamping both into range.
func pagination(c *fiber.Ctx) (int, int) {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	pageSize, _ := strconv.Atoi(c.Query("page_size", strconv.Itoa(defaultPageSize)))

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}
