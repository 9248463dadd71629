package service

import (
	"context"
	"errors"
	"time"

	"license-server/internal/metrics"
	"license-server/internal/model"
	"license-server/internal/store"
	"license-server/internal/token"

	"go.uber.org/zap"
)

// Client-facing reasons for a failed validation. Decode failures all map to
// ReasonInvalidKey.
const (
	ReasonInvalidKey  = "invalid license key"
	ReasonDeactivated = "license deactivated by administrator"
	ReasonExpired     = "license expired"
)

// Outcome is the terminal result of one validation call.
type Outcome struct {
	Valid         bool
	Reason        string
	Username      string
	Plan          string
	DaysRemaining int
	ExpiresAt     time.Time
	// Registered is set when this call created the server-side record.
	Registered bool
}

func invalid(reason string) Outcome {
	return Outcome{Valid: false, Reason: reason}
}

// Validator answers whether a presented token is currently usable.
type Validator struct {
	codec   *token.Codec
	store   store.LicenseStore
	metrics *metrics.Metrics
	log     *zap.Logger
	now     func() time.Time
}

func NewValidator(codec *token.Codec, st store.LicenseStore, m *metrics.Metrics, log *zap.Logger, opts ...Option) *Validator {
	o := applyOptions(opts)
	return &Validator{
		codec:   codec,
		store:   st,
		metrics: m,
		log:     log,
		now:     o.now,
	}
}

// Validate runs decode, checkin (or first-use registration), the active
// check and the expiry check. Only store failures are returned as errors.
func (v *Validator) Validate(ctx context.Context, key string) (Outcome, error) {
	claims, err := v.codec.Decode(key)
	if err != nil {
		v.metrics.ObserveValidation(metrics.OutcomeInvalid)
		return invalid(ReasonInvalidKey), nil
	}

	now := v.now().UTC()

	rec, registered, err := v.lookup(ctx, key, claims, now)
	if err != nil {
		v.metrics.ObserveValidation(metrics.OutcomeError)
		v.log.Error("license lookup failed", zap.String("username", claims.Subject), zap.Error(err))
		return Outcome{}, err
	}
	if registered {
		v.metrics.ObserveRegistration()
		v.log.Info("registered license on first validation",
			zap.String("username", rec.Username),
			zap.String("plan", rec.Plan),
			zap.Time("expires_at", rec.ExpiresAt),
		)
	}

	if !rec.Active {
		v.metrics.ObserveValidation(metrics.OutcomeDeactivated)
		return invalid(ReasonDeactivated), nil
	}
	if rec.Expired(now) {
		v.metrics.ObserveValidation(metrics.OutcomeExpired)
		return invalid(ReasonExpired), nil
	}

	v.metrics.ObserveValidation(metrics.OutcomeValid)
	return Outcome{
		Valid:         true,
		Username:      rec.Username,
		Plan:          rec.Plan,
		DaysRemaining: rec.DaysRemaining(now),
		ExpiresAt:     rec.ExpiresAt.UTC(),
		Registered:    registered,
	}, nil
}

// lookup stamps last_check on a known record, or registers an unseen token
// from its claims. From here on the stored expiry is authoritative.
func (v *Validator) lookup(ctx context.Context, key string, claims token.Claims, now time.Time) (*model.License, bool, error) {
	rec, err := v.store.Checkin(ctx, key, now)
	if err == nil {
		return rec, false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, false, err
	}

	rec = v.register(claims, key, now)
	err = v.store.Insert(ctx, rec)
	switch {
	case err == nil:
		return rec, true, nil
	case errors.Is(err, store.ErrDuplicateKey):
		// A concurrent call registered the same token first.
		rec, err = v.store.Checkin(ctx, key, now)
		if err != nil {
			return nil, false, err
		}
		return rec, false, nil
	default:
		return nil, false, err
	}
}

func (v *Validator) register(claims token.Claims, key string, now time.Time) *model.License {
	lastCheck := now
	return &model.License{
		Key:       key,
		Username:  claims.Subject,
		Plan:      claims.Plan,
		CreatedAt: now,
		ExpiresAt: claims.ExpiresAt,
		Active:    true,
		LastCheck: &lastCheck,
	}
}
