package service

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"license-server/internal/database"
	"license-server/internal/metrics"
	"license-server/internal/model"
	"license-server/internal/store"
	"license-server/internal/token"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var testKey = bytes.Repeat([]byte{0x5a}, 32)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingExporter struct {
	synced  chan model.License
	batches [][]model.License
}

func newRecordingExporter() *recordingExporter {
	return &recordingExporter{synced: make(chan model.License, 16)}
}

func (e *recordingExporter) SyncLicense(license *model.License) error {
	select {
	case e.synced <- *license:
	default:
	}
	return nil
}

func (e *recordingExporter) BatchSyncLicenses(licenses []model.License) error {
	e.batches = append(e.batches, licenses)
	return nil
}

type fixture struct {
	db        *gorm.DB
	clock     *fakeClock
	codec     *token.Codec
	store     *store.GormStore
	metrics   *metrics.Metrics
	audit     *OperationLogger
	exporter  *recordingExporter
	validator *Validator
	admin     *AdminService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := database.NewTestDB(t)
	clock := newFakeClock()
	codec, err := token.NewCodec(testKey, token.DefaultFooter, token.WithClock(clock.Now))
	require.NoError(t, err)

	st := store.NewGormStore(db)
	m := metrics.New()
	audit := NewOperationLogger(db)
	exporter := newRecordingExporter()
	log := zap.NewNop()

	return &fixture{
		db:        db,
		clock:     clock,
		codec:     codec,
		store:     st,
		metrics:   m,
		audit:     audit,
		exporter:  exporter,
		validator: NewValidator(codec, st, m, log, WithClock(clock.Now)),
		admin:     NewAdminService(codec, st, audit, exporter, m, log, WithClock(clock.Now)),
	}
}
