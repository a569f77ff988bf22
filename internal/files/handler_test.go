package files

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"cvbuilder/internal/shared/server/respond"
	"cvbuilder/internal/shared/storage/object/local"
)

var errQuota = errors.New("quota")

type fakeImporter struct {
	gotText string
	err     error
}

func (f *fakeImporter) Import(ctx context.Context, userID, title, text string) (any, error) {
	f.gotText = text
	if f.err != nil {
		return nil, f.err
	}
	return gin.H{"id": "resume-1", "title": title}, nil
}

func newFilesRouter(t *testing.T, importer Importer) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc := NewService(local.New(t.TempDir()), NewMemoryRepo())
	h := NewHandler(svc, importer, func(c *gin.Context, err error) bool {
		if errors.Is(err, errQuota) {
			respond.Error(c, http.StatusTooManyRequests, "limit_reached", "quota", nil)
			return true
		}
		return false
	})
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userId", "user-1")
		c.Next()
	})
	h.RegisterRoutes(r.Group("/api/v1"))
	return r
}

func uploadFile(t *testing.T, r *gin.Engine, name string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	fw, err := writer.CreateFormFile("file", name)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/files", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestFilesUploadListTextAndImport(t *testing.T) {
	importer := &fakeImporter{}
	r := newFilesRouter(t, importer)

	w := uploadFile(t, r, "cv.txt", []byte("Ada Lovelace\nAnalyst"))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var created FileResponse
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.FileID == "" || created.ExtractStatus != ExtractDone {
		t.Fatalf("unexpected response %+v", created)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/files?limit=100", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var page struct {
		Items []FileResponse `json:"items"`
		Limit int            `json:"limit"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(page.Items) != 1 || page.Limit != 50 {
		t.Fatalf("unexpected page %+v", page)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/files/"+created.FileID+"/text", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK || !bytes.Contains(w.Body.Bytes(), []byte("Ada Lovelace")) {
		t.Fatalf("text: %d %s", w.Code, w.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/files/"+created.FileID+"/download", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK || w.Body.String() != "Ada Lovelace\nAnalyst" {
		t.Fatalf("download: %d %q", w.Code, w.Body.String())
	}
	if got := w.Header().Get("Content-Disposition"); got != `attachment; filename="cv.txt"` {
		t.Fatalf("Content-Disposition = %q", got)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/files/"+created.FileID+"/import", bytes.NewBufferString(`{"title":"Imported"}`))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("import: %d %s", w.Code, w.Body.String())
	}
	if importer.gotText != "Ada Lovelace\nAnalyst" {
		t.Fatalf("importer got %q", importer.gotText)
	}

	importer.err = errQuota
	req = httptest.NewRequest(http.MethodPost, "/api/v1/files/"+created.FileID+"/import", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected mapped importer error, got %d", w.Code)
	}
}

func TestFilesUploadUnsupportedAndMissing(t *testing.T) {
	r := newFilesRouter(t, nil)

	w := uploadFile(t, r, "photo.gif", []byte("GIF89a"))
	if w.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("expected 415, got %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/files/does-not-exist", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/files/presign", bytes.NewBufferString(`{"fileName":"cv.pdf","contentType":"application/pdf","size":10}`))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNotImplemented || !bytes.Contains(w.Body.Bytes(), []byte("presign_unavailable")) {
		t.Fatalf("presign: %d %s", w.Code, w.Body.String())
	}
}
