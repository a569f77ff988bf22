package users

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func meRequest(t *testing.T, svc *Service, setup func(c *gin.Context)) map[string]any {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	g := r.Group("/api/v1")
	g.Use(func(c *gin.Context) {
		setup(c)
		c.Next()
	})
	NewHandler(svc).RegisterRoutes(g)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/me", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestMeReturnsStoredProfile(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	require.NoError(t, svc.UpsertFromAuth(context.Background(), User{ID: "google:1", Email: "ada@example.com", Name: "Ada"}))

	body := meRequest(t, svc, func(c *gin.Context) {
		c.Set("userId", "google:1")
		c.Set("isGuest", false)
	})
	assert.Equal(t, "ada@example.com", body["email"])
	assert.Equal(t, "Ada", body["name"])
}

func TestMeFallsBackToClaims(t *testing.T) {
	body := meRequest(t, NewService(NewMemoryRepo()), func(c *gin.Context) {
		c.Set("userId", "google:2")
		c.Set("userEmail", "grace@example.com")
	})
	assert.Equal(t, "google:2", body["id"])
	assert.Equal(t, "grace@example.com", body["email"])
}

func TestMeGuest(t *testing.T) {
	body := meRequest(t, NewService(NewMemoryRepo()), func(c *gin.Context) {
		c.Set("userId", "guest:abc")
		c.Set("isGuest", true)
	})
	assert.Equal(t, true, body["isGuest"])
}
