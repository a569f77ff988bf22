package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cvbuilder/internal/sanitize"
	"cvbuilder/internal/settings"
	"cvbuilder/internal/shared/auth"
	"cvbuilder/internal/shared/config"
	"cvbuilder/internal/subscriptions"
)

const testGuest = "22222222-2222-2222-2222-222222222222"

func newTestRouter(t *testing.T, env string) (*gin.Engine, *auth.Signer) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	signer, err := auth.NewSigner("router-secret", time.Hour)
	require.NoError(t, err)
	r := NewRouter(RouterDeps{
		Config:              config.Config{Env: env},
		Verifier:            signer,
		SanitizeHandler:     sanitize.NewHandler(),
		SettingsHandler:     settings.NewHandler(settings.NewService(settings.NewMemoryRepo(), nil)),
		SubscriptionHandler: subscriptions.NewHandler(subscriptions.NewService(subscriptions.NewMemoryRepo(), 7), "hook-secret"),
	})
	return r, signer
}

func TestHealthAndMetricsNeedNoIdentity(t *testing.T) {
	r, _ := newTestRouter(t, "dev")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true}`, w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}

func TestAPIRequiresIdentity(t *testing.T) {
	r, _ := newTestRouter(t, "dev")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sanitize", strings.NewReader(`{"text":"hi"}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGuestMayUseSanitizerButNotSettings(t *testing.T) {
	r, _ := newTestRouter(t, "dev")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sanitize", strings.NewReader(`{"text":"hi"}`))
	req.Header.Set("X-Guest-Id", testGuest)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/settings", nil)
	req.Header.Set("X-Guest-Id", testGuest)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "login_required")
}

func TestSignedInUserReachesSettings(t *testing.T) {
	r, signer := newTestRouter(t, "dev")
	token, err := signer.Sign("user-1", "ada@example.com", "Ada", "")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/settings", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"locale":"en"`)
}

func TestWebhookBypassesIdentity(t *testing.T) {
	r, _ := newTestRouter(t, "dev")
	body := `not json`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/billing/webhook", strings.NewReader(body))
	req.Header.Set(subscriptions.SignatureHeader, subscriptions.Sign("hook-secret", []byte(body)))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid event payload")
}

func TestDevRoutesOnlyOutsideProduction(t *testing.T) {
	for env, want := range map[string]int{"dev": http.StatusOK, "production": http.StatusNotFound} {
		r, signer := newTestRouter(t, env)
		token, err := signer.Sign("user-1", "", "", "")
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/dev/subscription/activate", strings.NewReader(`{}`))
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, want, w.Code, env)
	}
}

func TestRateLimitGroups(t *testing.T) {
	cases := map[string]string{
		http.MethodPost + " /api/v1/ai/cover-letter":  "ai",
		http.MethodGet + " /api/v1/ai/functions":      "",
		http.MethodPost + " /api/v1/analyses":         "ai",
		http.MethodPost + " /api/v1/files/abc/import": "ai",
		http.MethodGet + " /api/v1/resumes":           "",
	}
	for in, want := range cases {
		method, path, _ := strings.Cut(in, " ")
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(method, path, nil)
		assert.Equal(t, want, rateLimitGroup(c), in)
	}
}

func TestAddr(t *testing.T) {
	assert.Equal(t, ":8080", Addr(""))
	assert.Equal(t, ":9000", Addr("9000"))
	assert.Equal(t, ":9000", Addr(":9000"))
}
