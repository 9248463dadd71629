// Package store persists license records.
package store

import (
	"context"
	"errors"
	"time"

	"license-server/internal/model"
)

var (
	ErrNotFound     = errors.New("license not found")
	ErrDuplicateKey = errors.New("license key already exists")
	ErrStoreFailure = errors.New("license store failure")
)

// LicenseStore owns every mutation of license records. Records are keyed by
// the token text. Update calls on a missing key are no-ops; Insert on an
// existing key fails with ErrDuplicateKey. Mutations of a single key are
// serialized.
type LicenseStore interface {
	Get(ctx context.Context, key string) (*model.License, error)
	Insert(ctx context.Context, rec *model.License) error
	SetActive(ctx context.Context, key string, active bool) error
	ExtendExpiry(ctx context.Context, key string, deltaDays int) error
	SetExpiry(ctx context.Context, key string, expiresAt time.Time) error
	TouchLastCheck(ctx context.Context, key string, when time.Time) error
	// Checkin stamps last_check and returns the record as of that stamp.
	// It returns ErrNotFound when the key has never been registered.
	Checkin(ctx context.Context, key string, when time.Time) (*model.License, error)
	// List returns all records, newest created first.
	List(ctx context.Context) ([]model.License, error)
}
