package subscriptions

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSubscriptionRouter(t *testing.T, secret string) (*gin.Engine, *Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc, _ := newTestService()
	h := NewHandler(svc, secret)
	r := gin.New()
	h.RegisterWebhookRoutes(r.Group("/api/v1"))
	authed := r.Group("/api/v1")
	authed.Use(func(c *gin.Context) {
		c.Set("userId", "user-1")
		c.Next()
	})
	h.RegisterRoutes(authed)
	h.RegisterDevRoutes(authed.Group("/dev"))
	return r, svc
}

func TestGetSubscription(t *testing.T) {
	r, _ := newSubscriptionRouter(t, "")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/subscription", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body SubscriptionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, StatusTrial, body.Status)
	assert.NotNil(t, body.TrialEndsAt)
	assert.Equal(t, []string{"html", "md", "txt"}, body.Entitlements.Exports)
}

func TestWebhookSignatureAndReplay(t *testing.T) {
	r, svc := newSubscriptionRouter(t, "whsec")
	end := svc.now().Add(30 * 24 * time.Hour).Format(time.RFC3339)
	body := []byte(fmt.Sprintf(`{"id":"evt_9","type":"subscription.activated","userId":"user-1","currentPeriodEnd":%q}`, end))

	post := func(sig string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/billing/webhook", bytes.NewReader(body))
		req.Header.Set(SignatureHeader, sig)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := post("sha256=deadbeef")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = post(Sign("whsec", body))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"received":true,"duplicate":false}`, w.Body.String())

	w = post(Sign("whsec", body))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"received":true,"duplicate":true}`, w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/subscription/cancel", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"cancelAtPeriodEnd":true`)
}

func TestWebhookDisabledWithoutSecret(t *testing.T) {
	r, _ := newSubscriptionRouter(t, "")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/billing/webhook", bytes.NewReader([]byte(`{}`))))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestCancelTrialConflict(t *testing.T) {
	r, _ := newSubscriptionRouter(t, "")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/subscription/cancel", nil))
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestDevActivate(t *testing.T) {
	r, _ := newSubscriptionRouter(t, "")
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/dev/subscription/activate", bytes.NewReader([]byte(`{"days":3}`)))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"status":"active"`)
	assert.Contains(t, w.Body.String(), `"daysLeft":3`)
}
