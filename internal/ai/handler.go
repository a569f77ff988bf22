package ai

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"cvbuilder/internal/llm"
	"cvbuilder/internal/shared/server/middleware"
	"cvbuilder/internal/shared/server/respond"
	"cvbuilder/internal/subscriptions"
	"cvbuilder/internal/usage"
)

const maxRequestBytes = 256 << 10

// Handler exposes the AI functions over HTTP.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches AI routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/ai/functions", h.list)
	rg.POST("/ai/:function", h.run)
}

type functionInfo struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Required    []string `json:"required"`
}

func (h *Handler) list(c *gin.Context) {
	fns := Functions()
	items := make([]functionInfo, 0, len(fns))
	for _, f := range fns {
		items = append(items, functionInfo{Name: f.Name, Description: f.Description, Required: f.Required})
	}
	respond.OK(c, gin.H{"items": items})
}

func (h *Handler) run(c *gin.Context) {
	name := c.Param("function")
	if _, ok := Lookup(name); !ok {
		respond.Error(c, http.StatusNotFound, "unknown_function", "unknown AI function", gin.H{"function": name})
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxRequestBytes)
	var in Input
	if err := c.ShouldBindJSON(&in); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respond.Error(c, http.StatusRequestEntityTooLarge, "payload_too_large", "request body exceeds 256KB", nil)
			return
		}
		respond.Error(c, http.StatusBadRequest, "invalid_json", "request body must be a JSON object", nil)
		return
	}

	res, err := h.Svc.Run(c.Request.Context(), middleware.UserIDFromContext(c), name, in)
	if err != nil {
		WriteError(c, err)
		return
	}
	respond.OK(c, res)
}

// WriteError maps AI errors onto HTTP responses.
func WriteError(c *gin.Context, err error) {
	if MapError(c, err) {
		return
	}
	respond.Error(c, http.StatusInternalServerError, "internal_error", "AI request failed", nil)
}

// MapError writes a response for errors the AI service produces and reports
// whether it recognised err.
func MapError(c *gin.Context, err error) bool {
	if subscriptions.MapError(c, err) {
		return true
	}
	var inputErr *InputError
	var limitErr *LimitError
	switch {
	case errors.As(err, &inputErr):
		respond.Error(c, http.StatusBadRequest, "invalid_input", "missing required fields", gin.H{"missing": inputErr.Missing})
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "invalid_input", err.Error(), nil)
	case errors.Is(err, ErrUnknownFunction):
		respond.Error(c, http.StatusNotFound, "unknown_function", "unknown AI function", nil)
	case errors.Is(err, ErrSourceNotFound):
		respond.Error(c, http.StatusNotFound, "source_not_found", "referenced résumé or file not found", nil)
	case errors.As(err, &limitErr):
		respond.Error(c, http.StatusTooManyRequests, "limit_reached", "AI usage limit reached", gin.H{
			"limit":    limitErr.Usage.Limit,
			"used":     limitErr.Usage.Used,
			"resetsAt": limitErr.Usage.ResetsAt,
		})
	case errors.Is(err, usage.ErrLimitReached):
		respond.Error(c, http.StatusTooManyRequests, "limit_reached", "AI usage limit reached", nil)
	case errors.Is(err, ErrParseFailed):
		respond.Error(c, http.StatusUnprocessableEntity, "parse_failed", "could not read a résumé from this file", nil)
	case errors.Is(err, llm.ErrNotConfigured):
		respond.Error(c, http.StatusServiceUnavailable, "llm_not_configured", "AI provider is not configured", nil)
	case errors.Is(err, ErrLLMUnavailable):
		if llm.IsTimeout(err) {
			respond.Error(c, http.StatusBadGateway, "llm_timeout", "AI provider timed out", nil)
			return true
		}
		respond.Error(c, http.StatusBadGateway, "llm_unavailable", "AI provider unavailable", nil)
	case errors.Is(err, context.Canceled):
		respond.Error(c, http.StatusRequestTimeout, "timeout", "request canceled", nil)
	default:
		return false
	}
	return true
}
