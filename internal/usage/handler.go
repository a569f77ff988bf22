package usage

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"cvbuilder/internal/shared/server/middleware"
	"cvbuilder/internal/shared/server/respond"
)

// ErrorMapper writes a response for errors owned by another package, such as
// subscription gating, and reports whether it did.
type ErrorMapper func(c *gin.Context, err error) bool

// Handler exposes usage endpoints.
type Handler struct {
	Svc    *Service
	mapErr ErrorMapper
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, mapErr ErrorMapper) *Handler {
	return &Handler{Svc: svc, mapErr: mapErr}
}

// RegisterRoutes attaches usage routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/usage", h.getUsage)
}

// RegisterDevRoutes attaches dev-only usage routes.
func (h *Handler) RegisterDevRoutes(rg *gin.RouterGroup) {
	rg.POST("/usage/reset", h.resetUsage)
}

func (h *Handler) getUsage(c *gin.Context) {
	u, err := h.Svc.Get(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		h.writeError(c, err, "failed to fetch usage")
		return
	}
	respond.OK(c, toResponse(u))
}

func (h *Handler) resetUsage(c *gin.Context) {
	u, err := h.Svc.Reset(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		h.writeError(c, err, "failed to reset usage")
		return
	}
	respond.OK(c, toResponse(u))
}

func (h *Handler) writeError(c *gin.Context, err error, msg string) {
	if h.mapErr != nil && h.mapErr(c, err) {
		return
	}
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		respond.Error(c, http.StatusRequestTimeout, "timeout", "request canceled", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", msg, nil)
	}
}

func toResponse(u Usage) gin.H {
	return gin.H{
		"plan":      u.Plan,
		"limit":     u.Limit,
		"used":      u.Used,
		"remaining": u.Remaining(),
		"resetsAt":  u.ResetsAt,
	}
}
