package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	sharedauth "cvbuilder/internal/shared/auth"
	"cvbuilder/internal/users"
)

func newGoogleRouter(svc *GoogleService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	svc.RegisterRoutes(r.Group("/api/v1"))
	return r
}

func TestGoogleStartRequiresConfig(t *testing.T) {
	r := newGoogleRouter(NewGoogleService("", "", "", "", nil, nil))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/auth/google/start", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestGoogleCallbackRejectsUnknownState(t *testing.T) {
	r := newGoogleRouter(NewGoogleService("id", "secret", "http://api/cb", "http://ui/done", nil, nil))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/auth/google/callback?state=nope&code=abc", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGoogleFlowIssuesTokenAndStoresUser(t *testing.T) {
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/token":
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "at", "token_type": "Bearer", "expires_in": 3600})
		case "/userinfo":
			_ = json.NewEncoder(w).Encode(map[string]any{"id": "42", "email": "ada@example.com", "name": "Ada"})
		default:
			http.NotFound(w, r)
		}
	}))
	defer provider.Close()

	signer, err := sharedauth.NewSigner("test-secret", time.Hour)
	require.NoError(t, err)
	userSvc := users.NewService(users.NewMemoryRepo())
	svc := NewGoogleService("id", "secret", "http://api/cb", "http://ui/done", signer, userSvc)
	svc.oauthConfig.Endpoint = oauth2.Endpoint{AuthURL: provider.URL + "/auth", TokenURL: provider.URL + "/token"}
	svc.userInfoURL = provider.URL + "/userinfo"
	r := newGoogleRouter(svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/auth/google/start", nil))
	require.Equal(t, http.StatusFound, w.Code)
	loc, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	state := loc.Query().Get("state")
	require.NotEmpty(t, state)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/auth/google/callback?state="+state+"&code=xyz", nil))
	require.Equal(t, http.StatusFound, w.Code, w.Body.String())
	done, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	claims, err := signer.Verify(done.Query().Get("token"))
	require.NoError(t, err)
	assert.Equal(t, "google:42", claims.Subject)

	stored, err := userSvc.GetByID(context.Background(), "google:42")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", stored.Email)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/auth/google/callback?state="+state+"&code=xyz", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
