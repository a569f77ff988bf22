package users

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"cvbuilder/internal/shared/server/middleware"
	"cvbuilder/internal/shared/server/respond"
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/me", h.me)
}

// me describes the caller. Guests get their guest identity; signed-in users
// get the stored profile, or the token claims when no row exists yet.
func (h *Handler) me(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	if userID == "" {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
		return
	}
	if middleware.IsGuest(c) {
		respond.OK(c, gin.H{"id": userID, "isGuest": true})
		return
	}

	user, err := h.Svc.GetByID(c.Request.Context(), userID)
	switch {
	case errors.Is(err, ErrNotFound):
		user = User{
			ID:         userID,
			Email:      middleware.UserEmailFromContext(c),
			Name:       middleware.UserNameFromContext(c),
			PictureURL: middleware.UserPictureFromContext(c),
		}
	case err != nil:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load user", nil)
		return
	}
	respond.OK(c, gin.H{
		"id":         user.ID,
		"email":      user.Email,
		"name":       user.Name,
		"pictureUrl": user.PictureURL,
		"isGuest":    false,
	})
}
