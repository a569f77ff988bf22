package settings

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSettingsRouter(svc *Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	g := r.Group("/api/v1")
	g.Use(func(c *gin.Context) {
		c.Set("userId", "user-1")
		c.Next()
	})
	NewHandler(svc).RegisterRoutes(g)
	return r
}

func TestSettingsRoutes(t *testing.T) {
	r := newSettingsRouter(newTestService())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/api/v1/settings", strings.NewReader(`{"profileVisibility":"link","analyticsOptIn":true}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/settings", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var st Settings
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.Equal(t, VisibilityLink, st.ProfileVisibility)
	assert.True(t, st.AnalyticsOptIn)
}

func TestSettingsValidationResponse(t *testing.T) {
	r := newSettingsRouter(newTestService())
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/api/v1/settings", strings.NewReader(`{"dataRetentionDays":12}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var body struct {
		Error struct {
			Code    string `json:"code"`
			Details []struct {
				Field string `json:"field"`
			} `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "validation_error", body.Error.Code)
	require.Len(t, body.Error.Details, 1)
	assert.Equal(t, "dataRetentionDays", body.Error.Details[0].Field)
}
