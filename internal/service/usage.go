package service

import (
	"context"
	"time"

	"license-server/internal/model"

	"gorm.io/gorm"
)

const usageHistoryLimit = 20

// UsageLogger keeps the per-call validation history shown to administrators.
type UsageLogger struct {
	db *gorm.DB
}

func NewUsageLogger(db *gorm.DB) *UsageLogger {
	return &UsageLogger{db: db}
}

func (u *UsageLogger) Record(ctx context.Context, key string, outcome Outcome, ip, userAgent string) error {
	usage := &model.LicenseUsage{
		KeyFingerprint: KeyFingerprint(key),
		Valid:          outcome.Valid,
		Reason:         outcome.Reason,
		IPAddress:      ip,
		UserAgent:      userAgent,
		CheckedAt:      time.Now().UTC(),
	}
	return u.db.WithContext(ctx).Create(usage).Error
}

// Recent returns the latest validation calls for key, newest first.
func (u *UsageLogger) Recent(ctx context.Context, key string) ([]model.LicenseUsage, error) {
	var usages []model.LicenseUsage
	err := u.db.WithContext(ctx).
		Where("key_fingerprint = ?", KeyFingerprint(key)).
		Order("checked_at DESC, id DESC").
		Limit(usageHistoryLimit).
		Find(&usages).Error
	return usages, err
}
