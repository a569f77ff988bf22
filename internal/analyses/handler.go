package analyses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"cvbuilder/internal/shared/server/middleware"
	"cvbuilder/internal/shared/server/respond"
	"cvbuilder/internal/subscriptions"
)

// Handler wires HTTP handlers to the analyses service.
type Handler struct {
	Svc     *Service
	limiter *pollLimiter
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc, limiter: newPollLimiter(pollLimitWindow, nil)}
}

// RegisterRoutes attaches analysis routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/analyses", h.create)
	rg.GET("/analyses", h.list)
	rg.GET("/analyses/:id", h.get)
	rg.DELETE("/analyses/:id", h.delete)
}

type createRequest struct {
	ResumeID       string `json:"resumeId"`
	FileID         string `json:"fileId"`
	JobDescription string `json:"jobDescription"`
}

// Response is the JSON shape of an analysis.
type Response struct {
	ID             string          `json:"id"`
	ResumeID       string          `json:"resumeId,omitempty"`
	FileID         string          `json:"fileId,omitempty"`
	JobDescription string          `json:"jobDescription,omitempty"`
	Status         Status          `json:"status"`
	Score          *int            `json:"score,omitempty"`
	Result         json.RawMessage `json:"result,omitempty"`
	ErrorCode      string          `json:"errorCode,omitempty"`
	ErrorMessage   string          `json:"errorMessage,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
	CompletedAt    *time.Time      `json:"completedAt,omitempty"`
}

// ToResponse converts an analysis to its JSON shape. The result is only
// exposed once the analysis has completed.
func ToResponse(a Analysis) Response {
	resp := Response{
		ID:             a.ID,
		ResumeID:       a.ResumeID,
		FileID:         a.FileID,
		JobDescription: a.JobDescription,
		Status:         a.Status,
		Score:          a.Score,
		ErrorCode:      a.ErrorCode,
		ErrorMessage:   a.ErrorMessage,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
		CompletedAt:    a.CompletedAt,
	}
	if a.Status == StatusCompleted && len(a.Result) > 0 {
		resp.Result = a.Result
	}
	return resp
}

func (h *Handler) create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	ctx := WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
	a, err := h.Svc.Create(ctx, middleware.UserIDFromContext(c), CreateInput{
		ResumeID:       req.ResumeID,
		FileID:         req.FileID,
		JobDescription: req.JobDescription,
	})
	if err != nil {
		WriteError(c, err)
		return
	}
	respond.JSON(c, http.StatusAccepted, gin.H{
		"analysisId": a.ID,
		"status":     a.Status,
	})
}

func (h *Handler) list(c *gin.Context) {
	limit, offset := respond.Paging(c, 20, 100)
	items, err := h.Svc.List(c.Request.Context(), middleware.UserIDFromContext(c), limit, offset)
	if err != nil {
		WriteError(c, err)
		return
	}
	out := make([]Response, 0, len(items))
	for _, a := range items {
		r := ToResponse(a)
		r.Result = nil
		out = append(out, r)
	}
	respond.List(c, out, limit, offset)
}

func (h *Handler) get(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	id := c.Param("id")
	if !h.limiter.Allow(userID, id) {
		c.Header("Retry-After", strconv.Itoa(h.limiter.RetryAfterSeconds()))
		respond.Error(c, http.StatusTooManyRequests, "rate_limited", "polling too frequently", nil)
		return
	}
	a, err := h.Svc.Get(c.Request.Context(), userID, id)
	if err != nil {
		WriteError(c, err)
		return
	}
	respond.OK(c, ToResponse(a))
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.Svc.Delete(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id")); err != nil {
		WriteError(c, err)
		return
	}
	respond.NoContent(c)
}

// WriteError maps analysis errors onto HTTP responses.
func WriteError(c *gin.Context, err error) {
	if subscriptions.MapError(c, err) {
		return
	}
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "analysis not found", nil)
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, ErrJobQueueNotConfigured):
		respond.Error(c, http.StatusServiceUnavailable, "queue_unavailable", "analysis queue is not configured", nil)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		respond.Error(c, http.StatusRequestTimeout, "timeout", "request canceled", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "analysis request failed", nil)
	}
}
