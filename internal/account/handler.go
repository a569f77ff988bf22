package account

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"cvbuilder/internal/shared/server/middleware"
	"cvbuilder/internal/shared/server/respond"
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches account routes. The group must reject guests.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/account/claim-guest", h.claimGuest)
	rg.GET("/account/export", h.export)
	rg.DELETE("/account", h.delete)
}

func (h *Handler) claimGuest(c *gin.Context) {
	authedUserID := strings.TrimSpace(middleware.UserIDFromContext(c))
	if authedUserID == "" || middleware.IsGuest(c) {
		respond.Error(c, http.StatusUnauthorized, "login_required", "login required", nil)
		return
	}

	guestID := strings.TrimSpace(c.GetHeader("X-Guest-Id"))
	if guestID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "missing X-Guest-Id header", []respond.FieldError{
			{Field: "X-Guest-Id", Message: "required"},
		})
		return
	}
	if _, err := uuid.Parse(guestID); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid guest id", []respond.FieldError{
			{Field: "X-Guest-Id", Message: "invalid"},
		})
		return
	}

	result, err := h.Svc.ClaimGuest(c.Request.Context(), middleware.GuestPrefix+guestID, authedUserID)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to claim guest data", nil)
		return
	}
	respond.OK(c, result)
}

func (h *Handler) export(c *gin.Context) {
	bundle, err := h.Svc.Export(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to export account", nil)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="cv-builder-export.json"`)
	respond.OK(c, bundle)
}

type deleteRequest struct {
	Confirm string `json:"confirm"`
}

func (h *Handler) delete(c *gin.Context) {
	var req deleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	result, err := h.Svc.Delete(c.Request.Context(), middleware.UserIDFromContext(c), req.Confirm)
	switch {
	case errors.Is(err, ErrConfirmRequired):
		respond.Error(c, http.StatusBadRequest, "confirmation_required", err.Error(), []respond.FieldError{
			{Field: "confirm", Message: "must equal " + ConfirmPhrase},
		})
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case err != nil:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to delete account", nil)
	default:
		respond.OK(c, result)
	}
}
