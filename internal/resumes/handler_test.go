package resumes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newResumesRouter(t *testing.T) (*gin.Engine, *Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc := NewService(NewMemoryRepo(), testCatalog, time.Hour)
	t.Cleanup(func() { _ = svc.Close(context.Background()) })
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userId", "user-1")
		c.Next()
	})
	NewHandler(svc).RegisterRoutes(r.Group("/api/v1"))
	return r, svc
}

func doJSON(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type errorEnvelope struct {
	Error struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorEnvelope {
	t.Helper()
	var env errorEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func TestHandlerCreateAndGet(t *testing.T) {
	r, _ := newResumesRouter(t)

	w := doJSON(r, http.MethodPost, "/api/v1/resumes", `{"title":"Backend CV"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created ResumeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "Backend CV", created.Title)
	assert.Equal(t, 1, created.Version)

	w = doJSON(r, http.MethodGet, "/api/v1/resumes/"+created.ID, "")
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodGet, "/api/v1/resumes/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", decodeError(t, w).Error.Code)
}

func TestHandlerAutosaveAccepted(t *testing.T) {
	r, svc := newResumesRouter(t)
	res, err := svc.Create(context.Background(), "user-1", CreateInput{})
	require.NoError(t, err)

	w := doJSON(r, http.MethodPost, "/api/v1/resumes/"+res.ID+"/autosave", `{"summary":"typing..."}`)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	assert.JSONEq(t, `{"status":"pending"}`, w.Body.String())
	assert.True(t, svc.Drafts.Pending(res.ID))

	w = doJSON(r, http.MethodGet, "/api/v1/resumes/"+res.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"summary":"typing..."`)

	w = doJSON(r, http.MethodPost, "/api/v1/resumes/"+res.ID+"/autosave", `{"hobbies":[]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandlerAutosaveTooLarge(t *testing.T) {
	r, svc := newResumesRouter(t)
	res, err := svc.Create(context.Background(), "user-1", CreateInput{})
	require.NoError(t, err)

	body := `{"summary":"` + strings.Repeat("a", maxAutosaveBytes) + `"}`
	w := doJSON(r, http.MethodPost, "/api/v1/resumes/"+res.ID+"/autosave", body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestHandlerCompleteStepInvalid(t *testing.T) {
	r, svc := newResumesRouter(t)
	res, err := svc.Create(context.Background(), "user-1", CreateInput{})
	require.NoError(t, err)

	w := doJSON(r, http.MethodPost, "/api/v1/resumes/"+res.ID+"/steps/1/complete", "")
	require.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
	env := decodeError(t, w)
	assert.Equal(t, "step_invalid", env.Error.Code)

	var details []FieldError
	require.NoError(t, json.Unmarshal(env.Error.Details, &details))
	fields := make([]string, 0, len(details))
	for _, d := range details {
		fields = append(fields, d.Field)
	}
	assert.Contains(t, fields, "personal.fullName")

	w = doJSON(r, http.MethodPost, "/api/v1/resumes/"+res.ID+"/steps/9/complete", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "unknown_step", decodeError(t, w).Error.Code)
}

func TestHandlerUpdateVersionConflict(t *testing.T) {
	r, svc := newResumesRouter(t)
	res, err := svc.Create(context.Background(), "user-1", CreateInput{})
	require.NoError(t, err)

	w := doJSON(r, http.MethodPut, "/api/v1/resumes/"+res.ID, `{"title":"v2","version":1}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(r, http.MethodPut, "/api/v1/resumes/"+res.ID, `{"title":"v2 again","version":1}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "version_conflict", decodeError(t, w).Error.Code)
}

func TestHandlerWizardSteps(t *testing.T) {
	r, _ := newResumesRouter(t)
	w := doJSON(r, http.MethodGet, "/api/v1/wizard/steps", "")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Steps []Step `json:"steps"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Steps, len(Steps))
}
