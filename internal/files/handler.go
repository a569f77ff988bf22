package files

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"cvbuilder/internal/shared/server/middleware"
	"cvbuilder/internal/shared/server/respond"
)

// Importer turns extracted file text into a résumé.
type Importer interface {
	Import(ctx context.Context, userID, title, text string) (any, error)
}

// ErrorMapper maps importer errors onto HTTP responses. It returns false when
// the error is not one it recognises.
type ErrorMapper func(c *gin.Context, err error) bool

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc         *Service
	Importer    Importer
	ImportError ErrorMapper
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, importer Importer, mapErr ErrorMapper) *Handler {
	return &Handler{Svc: svc, Importer: importer, ImportError: mapErr}
}

// RegisterRoutes attaches file routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/files", h.upload)
	rg.POST("/files/presign", h.presign)
	rg.POST("/files/complete", h.complete)
	rg.GET("/files", h.list)
	rg.GET("/files/:id", h.get)
	rg.GET("/files/:id/text", h.text)
	rg.GET("/files/:id/download", h.download)
	rg.DELETE("/files/:id", h.delete)
	rg.POST("/files/:id/import", h.importResume)
}

func (h *Handler) upload(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxUploadBytes+(1<<20))

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "file exceeds 10MB", nil)
			return
		}
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}
	if fileHeader.Size > MaxUploadBytes {
		respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "file exceeds 10MB", nil)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}
	defer file.Close()

	f, err := h.Svc.Upload(c.Request.Context(), userID, fileHeader.Filename, fileHeader.Header.Get("Content-Type"), file)
	if err != nil {
		h.writeError(c, err, "failed to upload file")
		return
	}
	respond.Created(c, ToResponse(f))
}

type presignRequest struct {
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

type presignResponse struct {
	UploadURL        string `json:"uploadUrl"`
	Key              string `json:"key"`
	ExpiresInSeconds int64  `json:"expiresInSeconds"`
}

func (h *Handler) presign(c *gin.Context) {
	var req presignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	out, err := h.Svc.PresignUpload(c.Request.Context(), middleware.UserIDFromContext(c), req.FileName, req.ContentType, req.Size)
	if err != nil {
		h.writeError(c, err, "failed to generate upload url")
		return
	}
	respond.OK(c, presignResponse{
		UploadURL:        out.URL,
		Key:              out.Key,
		ExpiresInSeconds: int64(out.ExpiresIn.Seconds()),
	})
}

type completeRequest struct {
	Key         string `json:"key"`
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
}

func (h *Handler) complete(c *gin.Context) {
	var req completeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	if strings.TrimSpace(req.FileName) == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "fileName is required", []respond.FieldError{{Field: "fileName", Message: "required"}})
		return
	}
	f, err := h.Svc.CompleteUpload(c.Request.Context(), middleware.UserIDFromContext(c), req.Key, req.FileName, req.ContentType)
	if err != nil {
		h.writeError(c, err, "failed to register upload")
		return
	}
	respond.Created(c, ToResponse(f))
}

func (h *Handler) list(c *gin.Context) {
	limit, offset := respond.Paging(c, 20, 50)
	items, err := h.Svc.List(c.Request.Context(), middleware.UserIDFromContext(c), limit, offset)
	if err != nil {
		h.writeError(c, err, "failed to list files")
		return
	}
	resp := make([]FileResponse, 0, len(items))
	for _, f := range items {
		resp = append(resp, ToResponse(f))
	}
	respond.List(c, resp, limit, offset)
}

func (h *Handler) get(c *gin.Context) {
	f, err := h.Svc.Get(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"))
	if err != nil {
		h.writeError(c, err, "failed to fetch file")
		return
	}
	respond.OK(c, ToResponse(f))
}

func (h *Handler) text(c *gin.Context) {
	text, err := h.Svc.Text(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"))
	if err != nil {
		h.writeError(c, err, "failed to fetch file text")
		return
	}
	respond.OK(c, gin.H{"fileId": c.Param("id"), "text": text})
}

func (h *Handler) download(c *gin.Context) {
	f, rc, err := h.Svc.Open(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"))
	if err != nil {
		h.writeError(c, err, "failed to open file")
		return
	}
	defer rc.Close()

	c.Header("Content-Disposition", `attachment; filename="`+strings.ReplaceAll(f.FileName, `"`, "")+`"`)
	c.Header("Content-Type", f.MimeType)
	if f.SizeBytes > 0 {
		c.Header("Content-Length", strconv.FormatInt(f.SizeBytes, 10))
	}
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, rc)
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.Svc.Delete(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id")); err != nil {
		h.writeError(c, err, "failed to delete file")
		return
	}
	respond.NoContent(c)
}

type importRequest struct {
	Title string `json:"title"`
}

func (h *Handler) importResume(c *gin.Context) {
	if h.Importer == nil {
		respond.Error(c, http.StatusNotImplemented, "not_implemented", "import is not configured", nil)
		return
	}
	var req importRequest
	_ = c.ShouldBindJSON(&req)

	userID := middleware.UserIDFromContext(c)
	f, err := h.Svc.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.writeError(c, err, "failed to fetch file")
		return
	}
	if f.ExtractStatus != ExtractDone || f.ExtractedText == "" {
		h.writeError(c, ErrNotExtracted, "")
		return
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = f.FileName
	}

	out, err := h.Importer.Import(c.Request.Context(), userID, title, f.ExtractedText)
	if err != nil {
		if h.ImportError != nil && h.ImportError(c, err) {
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to import file", nil)
		return
	}
	respond.Created(c, out)
}

func (h *Handler) writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "file not found", nil)
	case errors.Is(err, ErrUnsupportedType):
		respond.Error(c, http.StatusUnsupportedMediaType, "unsupported_type", "only PDF, DOCX and plain-text files are supported", nil)
	case errors.Is(err, ErrTooLarge):
		respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "file exceeds 10MB", nil)
	case errors.Is(err, ErrPresignUnavailable):
		respond.Error(c, http.StatusNotImplemented, "presign_unavailable", "direct uploads require S3 storage", nil)
	case errors.Is(err, ErrNotExtracted):
		respond.Error(c, http.StatusConflict, "text_unavailable", "file text has not been extracted", nil)
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", fallback, nil)
	}
}
