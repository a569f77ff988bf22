package sanitize

import (
	"net/http"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"cvbuilder/internal/shared/metrics"
	"cvbuilder/internal/shared/server/respond"
	"cvbuilder/internal/shared/telemetry"
)

// MaxInputChars bounds the text accepted by the sanitize endpoint.
const MaxInputChars = 200_000

// Handler exposes the default pipeline over HTTP.
type Handler struct {
	Pipeline *Pipeline
}

// NewHandler constructs a Handler using the default rules.
func NewHandler() *Handler {
	return &Handler{Pipeline: defaultPipeline}
}

// RegisterRoutes attaches sanitize routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/sanitize", h.sanitize)
}

type sanitizeRequest struct {
	Text *string `json:"text"`
}

type sanitizeResponse struct {
	Text   string `json:"text"`
	Report Report `json:"report"`
}

func (h *Handler) sanitize(c *gin.Context) {
	var req sanitizeRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Text == nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "text is required", []respond.FieldError{{Field: "text", Message: "required"}})
		return
	}
	if n := utf8.RuneCountInString(*req.Text); n > MaxInputChars {
		respond.Error(c, http.StatusRequestEntityTooLarge, "payload_too_large", "text exceeds the maximum length", gin.H{"maxChars": MaxInputChars, "chars": n})
		return
	}

	text, report := h.Pipeline.Apply(*req.Text)
	metrics.AddSanitizeHits(report.Rules)
	if total := report.Total(); total > 0 {
		telemetry.Info("sanitize.applied", map[string]any{"hits": total, "removedChars": report.RemovedChars})
	}
	respond.OK(c, sanitizeResponse{Text: text, Report: report})
}
