package handler

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"license-server/internal/model"
	"license-server/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleHealth(t *testing.T) {
	e := newTestEnv(t)

	status, body := e.do(t, http.MethodGet, "/", nil, "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "License Server", body["service"])
	assert.Equal(t, "1.0.0", body["version"])
}

func TestHandleAdminCreate(t *testing.T) {
	e := newTestEnv(t)

	tests := []struct {
		name       string
		input      fiber.Map
		auth       string
		wantStatus int
	}{
		{
			name:       "valid_license",
			input:      fiber.Map{"username": "alice", "plan": "Pro", "days": 30},
			auth:       e.token,
			wantStatus: fiber.StatusOK,
		},
		{
			name:       "negative_days",
			input:      fiber.Map{"username": "bob", "plan": "Pro", "days": -1},
			auth:       e.token,
			wantStatus: fiber.StatusOK,
		},
		{
			name:       "missing_username",
			input:      fiber.Map{"plan": "Pro", "days": 30},
			auth:       e.token,
			wantStatus: fiber.StatusBadRequest,
		},
		{
			name:       "missing_plan",
			input:      fiber.Map{"username": "alice", "days": 30},
			auth:       e.token,
			wantStatus: fiber.StatusBadRequest,
		},
		{
			name:       "unauthenticated",
			input:      fiber.Map{"username": "alice", "plan": "Pro", "days": 30},
			wantStatus: fiber.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := e.do(t, http.MethodPost, "/admin/create", tt.input, tt.auth)
			assert.Equal(t, tt.wantStatus, status)
			if tt.wantStatus == fiber.StatusOK {
				assert.Equal(t, true, body["success"])
				assert.True(t, strings.HasPrefix(body["key"].(string), "v4.local."))
				assert.Equal(t, tt.input["username"], body["username"])
				assert.Len(t, body["expires_at"], len("2006-01-02"))
			}
		})
	}
}

func TestHandleAdminCreateMalformedBody(t *testing.T) {
	e := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/admin/create", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.token)
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestHandleValidate(t *testing.T) {
	e := newTestEnv(t)
	key := e.create(t, "alice", "Pro", 30)

	status, body := e.do(t, http.MethodPost, "/api/validate", fiber.Map{"key": key}, "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["valid"])
	assert.Equal(t, "alice", body["username"])
	assert.Equal(t, "Pro", body["plan"])
	assert.EqualValues(t, 29, body["days_remaining"])
	assert.Equal(t, time.Now().UTC().AddDate(0, 0, 30).Format("2006-01-02"), body["expires_at"])
}

func TestHandleValidateRejections(t *testing.T) {
	e := newTestEnv(t)
	expired := e.create(t, "bob", "Pro", 0)

	tests := []struct {
		name      string
		key       string
		wantError string
	}{
		{name: "garbage", key: "not-a-license", wantError: "invalid license key"},
		{name: "empty", key: "", wantError: "invalid license key"},
		{name: "expired", key: expired, wantError: "license expired"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := e.do(t, http.MethodPost, "/api/validate", fiber.Map{"key": tt.key}, "")
			assert.Equal(t, fiber.StatusOK, status)
			assert.Equal(t, false, body["valid"])
			assert.Equal(t, tt.wantError, body["error"])
			assert.NotContains(t, body, "username")
		})
	}
}

func TestHandleValidateRegistersUnseenToken(t *testing.T) {
	e := newTestEnv(t)
	key, err := e.codec.Encode("carol", "Basic", time.Now().Add(10*24*time.Hour))
	require.NoError(t, err)

	status, body := e.do(t, http.MethodPost, "/api/validate", fiber.Map{"key": key}, "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["valid"])
	assert.Equal(t, "carol", body["username"])

	status, body = e.do(t, http.MethodGet, "/admin/licenses/"+key, nil, e.token)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "carol", body["username"])
	assert.Equal(t, true, body["active"])
	assert.NotNil(t, body["last_check"])
}

func TestHandleAdminUpdate(t *testing.T) {
	e := newTestEnv(t)
	key := e.create(t, "alice", "Pro", 30)

	status, body := e.do(t, http.MethodPost, "/admin/update", fiber.Map{"key": key, "active": false}, e.token)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["success"])

	_, body = e.do(t, http.MethodPost, "/api/validate", fiber.Map{"key": key}, "")
	assert.Equal(t, false, body["valid"])
	assert.Equal(t, "license deactivated by administrator", body["error"])

	status, _ = e.do(t, http.MethodPost, "/admin/update", fiber.Map{"key": key, "active": true, "days": 30}, e.token)
	require.Equal(t, fiber.StatusOK, status)

	_, body = e.do(t, http.MethodPost, "/api/validate", fiber.Map{"key": key}, "")
	assert.Equal(t, true, body["valid"])
	assert.EqualValues(t, 59, body["days_remaining"])
}

func TestHandleAdminUpdateUnknownKey(t *testing.T) {
	e := newTestEnv(t)

	status, body := e.do(t, http.MethodPost, "/admin/update", fiber.Map{"key": "v4.local.nothing", "days": 30}, e.token)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["success"])

	status, _ = e.do(t, http.MethodPost, "/admin/update", fiber.Map{"days": 30}, e.token)
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestHandleAdminList(t *testing.T) {
	e := newTestEnv(t)
	first := e.create(t, "alice", "Pro", 30)
	time.Sleep(5 * time.Millisecond)
	second := e.create(t, "bob", "Basic", 30)

	status, body := e.do(t, http.MethodGet, "/admin/list", nil, e.token)
	require.Equal(t, fiber.StatusOK, status)

	licenses := body["licenses"].([]interface{})
	require.Len(t, licenses, 2)
	newest := licenses[0].(map[string]interface{})
	assert.Equal(t, second, newest["key"])
	assert.Equal(t, first, licenses[1].(map[string]interface{})["key"])
	for _, field := range []string{"key", "username", "plan", "created_at", "expires_at", "active", "last_check"} {
		assert.Contains(t, newest, field)
	}
}

func TestHandleGetLicenseNotFound(t *testing.T) {
	e := newTestEnv(t)

	status, body := e.do(t, http.MethodGet, "/admin/licenses/v4.local.missing", nil, e.token)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "license not found", body["error"])
}

func TestHandleLicenseUsage(t *testing.T) {
	e := newTestEnv(t)
	key := e.create(t, "alice", "Pro", 30)

	e.do(t, http.MethodPost, "/api/validate", fiber.Map{"key": key}, "")
	e.do(t, http.MethodPost, "/admin/update", fiber.Map{"key": key, "active": false}, e.token)
	e.do(t, http.MethodPost, "/api/validate", fiber.Map{"key": key}, "")

	status, body := e.do(t, http.MethodGet, "/admin/licenses/"+url.PathEscape(key)+"/usage", nil, e.token)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, service.KeyFingerprint(key), body["fingerprint"])
	usages := body["usages"].([]interface{})
	require.Len(t, usages, 2)
	for _, u := range usages {
		assert.Equal(t, service.KeyFingerprint(key), u.(map[string]interface{})["key_fingerprint"])
	}

	var stored []model.LicenseUsage
	require.NoError(t, e.db.Find(&stored).Error)
	for _, u := range stored {
		assert.NotContains(t, u.KeyFingerprint, "v4.local.")
	}
	assert.Equal(t, false, usages[0].(map[string]interface{})["valid"])
	assert.Equal(t, true, usages[1].(map[string]interface{})["valid"])
}

func TestHandleAdminExportDisabled(t *testing.T) {
	e := newTestEnv(t)

	status, _ := e.do(t, http.MethodPost, "/admin/export", nil, e.token)
	assert.Equal(t, fiber.StatusConflict, status)
}

func TestHandleLicenseStatistics(t *testing.T) {
	e := newTestEnv(t)
	key := e.create(t, "alice", "Pro", 30)
	e.do(t, http.MethodPost, "/api/validate", fiber.Map{"key": key}, "")
	e.do(t, http.MethodPost, "/api/validate", fiber.Map{"key": "junk"}, "")

	status, body := e.do(t, http.MethodGet, "/admin/statistics", nil, e.token)
	require.Equal(t, fiber.StatusOK, status)
	data := body["data"].(map[string]interface{})
	assert.EqualValues(t, 1, data["total_licenses"])
	assert.EqualValues(t, 2, data["total_checks"])
	assert.EqualValues(t, 1, data["failed_checks"])
	assert.InDelta(t, 0.5, body["success_rate"], 1e-9)

	status, _ = e.do(t, http.MethodGet, "/admin/statistics?start_date=15-10-2026", nil, e.token)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = e.do(t, http.MethodGet, "/admin/statistics?start_date=2026-10-15&end_date=2026-10-01", nil, e.token)
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestHandleGetLogs(t *testing.T) {
	e := newTestEnv(t)
	key := e.create(t, "alice", "Pro", 30)
	e.do(t, http.MethodPost, "/admin/update", fiber.Map{"key": key, "days": 5}, e.token)

	status, body := e.do(t, http.MethodGet, "/admin/logs?page=1&page_size=1", nil, e.token)
	require.Equal(t, fiber.StatusOK, status)
	assert.EqualValues(t, 2, body["total"])
	logs := body["logs"].([]interface{})
	require.Len(t, logs, 1)
	assert.Equal(t, "license.update", logs[0].(map[string]interface{})["action"])
}

func TestMetricsEndpoint(t *testing.T) {
	e := newTestEnv(t)
	e.do(t, http.MethodPost, "/api/validate", fiber.Map{"key": "junk"}, "")

	resp, err := e.app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), `license_server_validations_total{outcome="invalid_key"} 1`)
}

func TestHandleGetLogsByUser(t *testing.T) {
	e := newTestEnv(t)
	e.create(t, "alice", "Pro", 30)

	status, body := e.do(t, http.MethodGet, "/admin/logs?user_id=999", nil, e.token)
	require.Equal(t, fiber.StatusOK, status)
	assert.EqualValues(t, 0, body["total"])

	status, _ = e.do(t, http.MethodGet, "/admin/logs?user_id=abc", nil, e.token)
	assert.Equal(t, fiber.StatusBadRequest, status)
}
