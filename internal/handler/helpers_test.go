package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"license-server/internal/database"
	"license-server/internal/metrics"
	"license-server/internal/model"
	"license-server/internal/service"
	"license-server/internal/store"
	"license-server/internal/token"
	"license-server/internal/util"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	adminUsername = "admin"
	adminPassword = "correct-horse"
)

var jwtSecret = []byte("handler-test-secret")

type testEnv struct {
	app   *fiber.App
	db    *gorm.DB
	codec *token.Codec
	token string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := database.NewTestDB(t)
	log := zap.NewNop()
	require.NoError(t, database.EnsureAdmin(db, adminUsername, adminPassword, log))

	var admin model.User
	require.NoError(t, db.Where("username = ?", adminUsername).First(&admin).Error)

	codec, err := token.NewCodec(bytes.Repeat([]byte{0x11}, 32), token.DefaultFooter)
	require.NoError(t, err)

	st := store.NewGormStore(db)
	m := metrics.New()
	audit := service.NewOperationLogger(db)

	h := New(Deps{
		Validator:  service.NewValidator(codec, st, m, log),
		Admin:      service.NewAdminService(codec, st, audit, nil, m, log),
		Usage:      service.NewUsageLogger(db),
		Audit:      audit,
		Statistics: service.NewStatisticsService(db),
		DB:         db,
		JWTSecret:  jwtSecret,
		TokenTTL:   time.Hour,
		AppName:    "License Server",
		AppVersion: "1.0.0",
		Log:        log,
	})

	tok, err := util.GenerateToken(admin.ID, jwtSecret, time.Hour)
	require.NoError(t, err)

	return &testEnv{app: NewApp(h, m), db: db, codec: codec, token: tok}
}

// do sends body as JSON (when non-nil) and decodes a JSON object response.
func (e *testEnv) do(t *testing.T, method, path string, body interface{}, auth string) (int, map[string]interface{}) {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth != "" {
		req.Header.Set("Authorization", "Bearer "+auth)
	}

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	out := map[string]interface{}{}
	if resp.Header.Get("Content-Type") == fiber.MIMEApplicationJSON && len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func (e *testEnv) create(t *testing.T, username, plan string, days int) string {
	t.Helper()
	status, body := e.do(t, http.MethodPost, "/admin/create", fiber.Map{
		"username": username,
		"plan":     plan,
		"days":     days,
	}, e.token)
	require.Equal(t, fiber.StatusOK, status, body)
	return body["key"].(string)
}
