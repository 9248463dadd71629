package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"license-server/internal/model"

	"gorm.io/gorm"
)

var _ LicenseStore = (*GormStore)(nil)

// GormStore is a LicenseStore backed by any GORM dialector.
type GormStore struct {
	db    *gorm.DB
	locks *keyLocker
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{
		db:    db,
		locks: newKeyLocker(),
	}
}

func failure(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreFailure, err)
}

func (s *GormStore) Get(ctx context.Context, key string) (*model.License, error) {
	var license model.License
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&license).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, failure("get license", err)
	}
	return &license, nil
}

func (s *GormStore) Insert(ctx context.Context, rec *model.License) error {
	unlock := s.locks.lock(rec.Key)
	defer unlock()

	var count int64
	if err := s.db.WithContext(ctx).Model(&model.License{}).Where("key = ?", rec.Key).Count(&count).Error; err != nil {
		return failure("check license key", err)
	}
	if count > 0 {
		return ErrDuplicateKey
	}

	rec.CreatedAt = rec.CreatedAt.UTC()
	rec.ExpiresAt = rec.ExpiresAt.UTC()
	if rec.LastCheck != nil {
		lc := rec.LastCheck.UTC()
		rec.LastCheck = &lc
	}

	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateKey
		}
		return failure("insert license", err)
	}
	return nil
}

func (s *GormStore) SetActive(ctx context.Context, key string, active bool) error {
	unlock := s.locks.lock(key)
	defer unlock()

	return s.update(ctx, key, "active", active)
}

func (s *GormStore) ExtendExpiry(ctx context.Context, key string, deltaDays int) error {
	unlock := s.locks.lock(key)
	defer unlock()

	current, err := s.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	expiresAt := current.ExpiresAt.UTC().AddDate(0, 0, deltaDays)
	return s.update(ctx, key, "expires_at", expiresAt)
}

func (s *GormStore) SetExpiry(ctx context.Context, key string, expiresAt time.Time) error {
	unlock := s.locks.lock(key)
	defer unlock()

	return s.update(ctx, key, "expires_at", expiresAt.UTC())
}

func (s *GormStore) TouchLastCheck(ctx context.Context, key string, when time.Time) error {
	unlock := s.locks.lock(key)
	defer unlock()

	return s.update(ctx, key, "last_check", when.UTC())
}

func (s *GormStore) Checkin(ctx context.Context, key string, when time.Time) (*model.License, error) {
	unlock := s.locks.lock(key)
	defer unlock()

	result := s.db.WithContext(ctx).Model(&model.License{}).Where("key = ?", key).Update("last_check", when.UTC())
	if result.Error != nil {
		return nil, failure("update last_check", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.Get(ctx, key)
}

func (s *GormStore) List(ctx context.Context) ([]model.License, error) {
	var licenses []model.License
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&licenses).Error; err != nil {
		return nil, failure("list licenses", err)
	}
	return licenses, nil
}

// update writes one column; the caller holds the key lock.
func (s *GormStore) update(ctx context.Context, key, column string, value interface{}) error {
	err := s.db.WithContext(ctx).Model(&model.License{}).Where("key = ?", key).Update(column, value).Error
	if err != nil {
		return failure("update "+column, err)
	}
	return nil
}
