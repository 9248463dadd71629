package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"license-server/internal/metrics"
	"license-server/internal/model"
	"license-server/internal/store"
	"license-server/internal/token"

	"go.uber.org/zap"
)

const day = 24 * time.Hour

var ErrExportDisabled = errors.New("license export is not configured")

// LicenseExporter mirrors license records to an external system.
// SheetSyncService satisfies it.
type LicenseExporter interface {
	SyncLicense(license *model.License) error
	BatchSyncLicenses(licenses []model.License) error
}

type CreateResult struct {
	Key       string    `json:"key"`
	Username  string    `json:"username"`
	Plan      string    `json:"plan"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AdminService is the privileged mutation surface. Callers are expected to
// be authenticated administrators.
type AdminService struct {
	codec    *token.Codec
	store    store.LicenseStore
	audit    *OperationLogger
	exporter LicenseExporter
	metrics  *metrics.Metrics
	log      *zap.Logger
	now      func() time.Time
}

func NewAdminService(
	codec *token.Codec,
	st store.LicenseStore,
	audit *OperationLogger,
	exporter LicenseExporter,
	m *metrics.Metrics,
	log *zap.Logger,
	opts ...Option,
) *AdminService {
	o := applyOptions(opts)
	return &AdminService{
		codec:    codec,
		store:    st,
		audit:    audit,
		exporter: exporter,
		metrics:  m,
		log:      log,
		now:      o.now,
	}
}

// Create mints a token valid for days and records it. days is not range
// checked: zero or negative values produce an already expired license.
func (s *AdminService) Create(ctx context.Context, actorID uint, username, plan string, days int) (*CreateResult, error) {
	now := s.now().UTC()
	// Token claims carry second precision; keep the record identical.
	expiresAt := now.AddDate(0, 0, days).Truncate(time.Second)

	key, err := s.codec.Encode(username, plan, expiresAt)
	if err != nil {
		s.metrics.ObserveAdmin("create", err)
		return nil, fmt.Errorf("encode license: %w", err)
	}

	rec := &model.License{
		Key:       key,
		Username:  username,
		Plan:      plan,
		CreatedAt: now,
		ExpiresAt: expiresAt,
		Active:    true,
	}
	if err := s.store.Insert(ctx, rec); err != nil {
		s.metrics.ObserveAdmin("create", err)
		return nil, fmt.Errorf("store license: %w", err)
	}
	s.metrics.ObserveAdmin("create", nil)

	s.log.Info("license created",
		zap.Uint("actor_id", actorID),
		zap.String("username", username),
		zap.String("plan", plan),
		zap.Int("days", days),
		zap.Time("expires_at", expiresAt),
	)
	s.record(ctx, actorID, "license.create", rec, map[string]interface{}{
		"username": username,
		"plan":     plan,
		"days":     days,
	})
	s.export(rec)

	return &CreateResult{
		Key:       key,
		Username:  username,
		Plan:      plan,
		ExpiresAt: expiresAt,
	}, nil
}

func (s *AdminService) List(ctx context.Context) ([]model.License, error) {
	return s.store.List(ctx)
}

// Get returns store.ErrNotFound for an unknown key.
func (s *AdminService) Get(ctx context.Context, key string) (*model.License, error) {
	return s.store.Get(ctx, key)
}

// Update applies the active flag first, then extends the expiry by days
// (additive). Unknown keys are silently ignored.
func (s *AdminService) Update(ctx context.Context, actorID uint, key string, days *int, active *bool) error {
	if active != nil {
		if err := s.store.SetActive(ctx, key, *active); err != nil {
			s.metrics.ObserveAdmin("update", err)
			return fmt.Errorf("set active: %w", err)
		}
	}
	if days != nil {
		if err := s.store.ExtendExpiry(ctx, key, *days); err != nil {
			s.metrics.ObserveAdmin("update", err)
			return fmt.Errorf("extend expiry: %w", err)
		}
	}
	s.metrics.ObserveAdmin("update", nil)

	details := map[string]interface{}{}
	if active != nil {
		details["active"] = *active
	}
	if days != nil {
		details["days"] = *days
	}

	rec, err := s.store.Get(ctx, key)
	if err != nil {
		// Missing key: nothing changed. A failed re-read only skips the audit entry.
		return nil
	}
	s.log.Info("license updated",
		zap.Uint("actor_id", actorID),
		zap.String("username", rec.Username),
		zap.Bool("active", rec.Active),
		zap.Time("expires_at", rec.ExpiresAt),
	)
	s.record(ctx, actorID, "license.update", rec, details)
	s.export(rec)
	return nil
}

// ExportAll pushes every record to the exporter and returns how many were sent.
func (s *AdminService) ExportAll(ctx context.Context) (int, error) {
	if s.exporter == nil {
		return 0, ErrExportDisabled
	}
	licenses, err := s.store.List(ctx)
	if err != nil {
		return 0, err
	}
	err = s.exporter.BatchSyncLicenses(licenses)
	s.metrics.ObserveAdmin("export", err)
	if err != nil {
		return 0, fmt.Errorf("export licenses: %w", err)
	}
	return len(licenses), nil
}

func (s *AdminService) record(ctx context.Context, actorID uint, action string, rec *model.License, details interface{}) {
	if s.audit == nil {
		return
	}
	if err := s.audit.LogOperation(ctx, actorID, action, "license", KeyFingerprint(rec.Key), details); err != nil {
		s.log.Warn("write operation log", zap.String("action", action), zap.Error(err))
	}
}

func (s *AdminService) export(rec *model.License) {
	if s.exporter == nil {
		return
	}
	snapshot := *rec
	go func() {
		if err := s.exporter.SyncLicense(&snapshot); err != nil {
			s.log.Warn("license export failed", zap.String("username", snapshot.Username), zap.Error(err))
		}
	}()
}
