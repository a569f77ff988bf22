package templates

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cvbuilder/internal/resumes"
	"cvbuilder/internal/subscriptions"
)

type fakeResumes struct{ r resumes.Resume }

func (f fakeResumes) Get(ctx context.Context, userID, id string) (resumes.Resume, error) {
	if id != f.r.ID {
		return resumes.Resume{}, resumes.ErrNotFound
	}
	return f.r, nil
}

type fakeGate struct{ status subscriptions.Status }

func (g fakeGate) Require(ctx context.Context, userID string, feature subscriptions.Feature) error {
	if strings.HasPrefix(userID, "guest:") {
		return subscriptions.ErrLoginRequired
	}
	if !subscriptions.EntitlementsFor(g.status).Allows(feature) {
		return &subscriptions.RequiredError{Feature: feature, Status: g.status}
	}
	return nil
}

func (g fakeGate) RequireExport(ctx context.Context, userID, format string) error {
	if !subscriptions.EntitlementsFor(g.status).AllowsExport(format) {
		return &subscriptions.RequiredError{Feature: subscriptions.FeatureExport, Status: g.status}
	}
	return nil
}

func newTemplatesRouter(t *testing.T, userID string, status subscriptions.Status) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userId", userID)
		c.Next()
	})
	NewHandler(Default(), fakeResumes{r: sampleResume()}, fakeGate{status: status}).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestListTemplates(t *testing.T) {
	r := newTemplatesRouter(t, "guest:g1", subscriptions.StatusExpired)
	w := get(r, "/api/v1/templates?category=creative")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"id":"creative"`)
	assert.NotContains(t, w.Body.String(), `"id":"classic"`)

	assert.Equal(t, http.StatusNotFound, get(r, "/api/v1/templates/nope").Code)
}

func TestPreviewPremiumGating(t *testing.T) {
	expired := newTemplatesRouter(t, "user-1", subscriptions.StatusExpired)
	w := get(expired, "/api/v1/resumes/r1/preview?template=classic")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "Ada Lovelace")

	w = get(expired, "/api/v1/resumes/r1/preview?template=executive")
	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.Contains(t, w.Body.String(), "subscription_required")

	trial := newTemplatesRouter(t, "user-1", subscriptions.StatusTrial)
	assert.Equal(t, http.StatusOK, get(trial, "/api/v1/resumes/r1/preview?template=executive").Code)

	guest := newTemplatesRouter(t, "guest:g1", subscriptions.StatusTrial)
	assert.Equal(t, http.StatusUnauthorized, get(guest, "/api/v1/resumes/r1/preview?template=executive").Code)
	assert.Equal(t, http.StatusNotFound, get(guest, "/api/v1/resumes/missing/preview").Code)
}

func TestExportGating(t *testing.T) {
	expired := newTemplatesRouter(t, "user-1", subscriptions.StatusExpired)

	w := get(expired, "/api/v1/resumes/r1/export?format=txt")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="Ada-Lovelace.txt"`, w.Header().Get("Content-Disposition"))

	assert.Equal(t, http.StatusPaymentRequired, get(expired, "/api/v1/resumes/r1/export?format=md").Code)
	assert.Equal(t, http.StatusBadRequest, get(expired, "/api/v1/resumes/r1/export?format=pdf").Code)

	active := newTemplatesRouter(t, "user-1", subscriptions.StatusActive)
	w = get(active, "/api/v1/resumes/r1/export?format=md")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/markdown; charset=utf-8", w.Header().Get("Content-Type"))
}
