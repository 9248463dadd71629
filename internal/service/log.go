package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"license-server/internal/model"

	"gorm.io/gorm"
)

// KeyFingerprint is a short, non-reversible label for a license key, used in
// audit rows instead of the bearer token itself.
func KeyFingerprint(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:8])
}

type OperationLogger struct {
	db *gorm.DB
}

func NewOperationLogger(db *gorm.DB) *OperationLogger {
	return &OperationLogger{db: db}
}

func (l *OperationLogger) LogOperation(ctx context.Context, userID uint, action, target, targetID string, details interface{}) error {
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		return err
	}

	entry := &model.OperationLog{
		UserID:    userID,
		Action:    action,
		Target:    target,
		TargetID:  targetID,
		Details:   string(detailsJSON),
		CreatedAt: time.Now().UTC(),
	}
	return l.db.WithContext(ctx).Create(entry).Error
}

// GetOperationLogs returns one page of the audit log, newest first.
func (l *OperationLogger) GetOperationLogs(ctx context.Context, page, pageSize int) ([]model.OperationLog, int64, error) {
	return l.page(l.db.WithContext(ctx).Model(&model.OperationLog{}), page, pageSize)
}

func (l *OperationLogger) GetUserOperationLogs(ctx context.Context, userID uint, page, pageSize int) ([]model.OperationLog, int64, error) {
	return l.page(l.db.WithContext(ctx).Model(&model.OperationLog{}).Where("user_id = ?", userID), page, pageSize)
}

func (l *OperationLogger) page(db *gorm.DB, page, pageSize int) ([]model.OperationLog, int64, error) {
	var logs []model.OperationLog
	var total int64

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	if err := db.Order("created_at DESC, id DESC").Offset(offset).Limit(pageSize).Find(&logs).Error; err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}
