package settings

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"cvbuilder/internal/shared/server/middleware"
	"cvbuilder/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the settings service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches settings routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/settings", h.get)
	rg.PUT("/settings", h.update)
}

func (h *Handler) get(c *gin.Context) {
	st, err := h.Svc.Get(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, st)
}

func (h *Handler) update(c *gin.Context) {
	var in UpdateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	st, err := h.Svc.Update(c.Request.Context(), middleware.UserIDFromContext(c), in)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, st)
}

func writeError(c *gin.Context, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid settings", verr.Fields)
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		respond.Error(c, http.StatusRequestTimeout, "timeout", "request canceled", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "settings request failed", nil)
	}
}
