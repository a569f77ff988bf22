package subscriptions

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"cvbuilder/internal/shared/server/middleware"
	"cvbuilder/internal/shared/server/respond"
)

const maxWebhookBytes = 64 << 10

// Handler exposes subscription, billing webhook and dev routes.
type Handler struct {
	Svc           *Service
	WebhookSecret string
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, webhookSecret string) *Handler {
	return &Handler{Svc: svc, WebhookSecret: webhookSecret}
}

// SubscriptionResponse is the API view of a subscription.
type SubscriptionResponse struct {
	Plan              Plan         `json:"plan"`
	Status            Status       `json:"status"`
	TrialEndsAt       *time.Time   `json:"trialEndsAt,omitempty"`
	CurrentPeriodEnd  *time.Time   `json:"currentPeriodEnd,omitempty"`
	CancelAtPeriodEnd bool         `json:"cancelAtPeriodEnd"`
	DaysLeft          int          `json:"daysLeft"`
	Entitlements      Entitlements `json:"entitlements"`
}

// ToResponse converts a snapshot to its API view.
func ToResponse(s Snapshot) SubscriptionResponse {
	return SubscriptionResponse{
		Plan:              s.Subscription.Plan,
		Status:            s.Status,
		TrialEndsAt:       s.Subscription.TrialEndsAt,
		CurrentPeriodEnd:  s.Subscription.CurrentPeriodEnd,
		CancelAtPeriodEnd: s.Subscription.CancelAtPeriodEnd,
		DaysLeft:          s.DaysLeft,
		Entitlements:      s.Entitlements,
	}
}

// RegisterRoutes attaches the authenticated subscription routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/subscription", h.get)
	rg.POST("/subscription/cancel", h.cancel)
}

// RegisterWebhookRoutes attaches the billing webhook, which authenticates by signature.
func (h *Handler) RegisterWebhookRoutes(rg *gin.RouterGroup) {
	rg.POST("/billing/webhook", h.webhook)
}

// RegisterDevRoutes attaches dev-only routes.
func (h *Handler) RegisterDevRoutes(rg *gin.RouterGroup) {
	rg.POST("/subscription/activate", h.devActivate)
}

func (h *Handler) get(c *gin.Context) {
	snap, err := h.Svc.Get(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		WriteError(c, err)
		return
	}
	respond.OK(c, ToResponse(snap))
}

func (h *Handler) cancel(c *gin.Context) {
	snap, err := h.Svc.Cancel(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		WriteError(c, err)
		return
	}
	respond.OK(c, ToResponse(snap))
}

func (h *Handler) webhook(c *gin.Context) {
	if h.WebhookSecret == "" {
		respond.Error(c, http.StatusServiceUnavailable, "webhook_disabled", "billing webhook is not configured", nil)
		return
	}
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBytes+1))
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read body", nil)
		return
	}
	if len(body) > maxWebhookBytes {
		respond.Error(c, http.StatusRequestEntityTooLarge, "payload_too_large", "webhook body too large", nil)
		return
	}
	if !VerifySignature(h.WebhookSecret, body, c.GetHeader(SignatureHeader)) {
		respond.Error(c, http.StatusUnauthorized, "invalid_signature", "signature mismatch", nil)
		return
	}
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid event payload", nil)
		return
	}
	duplicate, err := h.Svc.HandleEvent(c.Request.Context(), ev)
	if err != nil {
		WriteError(c, err)
		return
	}
	respond.OK(c, gin.H{"received": true, "duplicate": duplicate})
}

type devActivateRequest struct {
	Days int `json:"days"`
}

func (h *Handler) devActivate(c *gin.Context) {
	var req devActivateRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
			return
		}
	}
	if req.Days <= 0 {
		req.Days = 30
	}
	userID := middleware.UserIDFromContext(c)
	if _, err := h.Svc.Activate(c.Request.Context(), userID, h.Svc.now().Add(time.Duration(req.Days)*24*time.Hour), "dev"); err != nil {
		WriteError(c, err)
		return
	}
	snap, err := h.Svc.Get(c.Request.Context(), userID)
	if err != nil {
		WriteError(c, err)
		return
	}
	respond.OK(c, ToResponse(snap))
}

// WriteError maps subscription errors onto HTTP responses. Other packages use
// it for gating errors returned by Require.
func WriteError(c *gin.Context, err error) {
	var required *RequiredError
	switch {
	case errors.As(err, &required):
		respond.Error(c, http.StatusPaymentRequired, "subscription_required",
			"an active subscription or trial is required", gin.H{"feature": required.Feature, "status": required.Status})
	case errors.Is(err, ErrSubscriptionRequired):
		respond.Error(c, http.StatusPaymentRequired, "subscription_required", "an active subscription or trial is required", nil)
	case errors.Is(err, ErrLoginRequired):
		respond.Error(c, http.StatusUnauthorized, "login_required", "sign in to use this feature", nil)
	case errors.Is(err, ErrNotCancelable):
		respond.Error(c, http.StatusConflict, "not_cancelable", err.Error(), nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "subscription not found", nil)
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		respond.Error(c, http.StatusRequestTimeout, "timeout", "request canceled", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "subscription lookup failed", nil)
	}
}

// MapError writes a response for gating errors and reports whether it did.
func MapError(c *gin.Context, err error) bool {
	if errors.Is(err, ErrSubscriptionRequired) || errors.Is(err, ErrLoginRequired) {
		WriteError(c, err)
		return true
	}
	return false
}
