package subscriptions

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"cvbuilder/internal/shared/telemetry"
)

// SignatureHeader carries the hex HMAC-SHA256 of the raw webhook body.
const SignatureHeader = "X-Billing-Signature"

const (
	EventActivated = "subscription.activated"
	EventRenewed   = "subscription.renewed"
	EventCanceled  = "subscription.canceled"
	EventExpired   = "subscription.expired"
)

// Event is a billing provider notification.
type Event struct {
	ID               string    `json:"id"`
	Type             string    `json:"type"`
	UserID           string    `json:"userId"`
	CurrentPeriodEnd time.Time `json:"currentPeriodEnd"`
	ExternalID       string    `json:"externalId"`
}

// Sign returns the signature header value for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a header produced by Sign. The "sha256=" prefix is optional.
func VerifySignature(secret string, body []byte, header string) bool {
	if secret == "" {
		return false
	}
	got, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(header), "sha256="))
	if err != nil || len(got) == 0 {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}

// HandleEvent applies a billing event once. Replays of an already processed
// event id return duplicate=true and change nothing. When applying fails the
// event id is released again so the provider's redelivery is not lost.
func (s *Service) HandleEvent(ctx context.Context, ev Event) (duplicate bool, err error) {
	if strings.TrimSpace(ev.ID) == "" || strings.TrimSpace(ev.UserID) == "" {
		return false, fmt.Errorf("%w: id and userId are required", ErrInvalidInput)
	}
	switch ev.Type {
	case EventActivated, EventRenewed:
		if !ev.CurrentPeriodEnd.After(s.now()) {
			return false, fmt.Errorf("%w: currentPeriodEnd must be in the future", ErrInvalidInput)
		}
	case EventCanceled, EventExpired:
	default:
		return false, fmt.Errorf("%w: unknown event type %q", ErrInvalidInput, ev.Type)
	}

	fresh, err := s.Repo.RecordEvent(ctx, ev.ID, ev.Type, ev.UserID)
	if err != nil {
		return false, err
	}
	if !fresh {
		telemetry.Info("billing.event_duplicate", map[string]any{"event_id": ev.ID, "type": ev.Type})
		return true, nil
	}

	switch ev.Type {
	case EventActivated, EventRenewed:
		_, err = s.Activate(ctx, ev.UserID, ev.CurrentPeriodEnd, ev.ExternalID)
	case EventCanceled:
		err = s.markCanceled(ctx, ev.UserID)
	case EventExpired:
		_, err = s.Expire(ctx, ev.UserID)
	}
	if errors.Is(err, ErrNotFound) {
		// Nothing to cancel or expire for a user who never subscribed.
		err = nil
	}
	if err != nil {
		// The request context may already be done; the release must still run.
		if ferr := s.Repo.ForgetEvent(context.WithoutCancel(ctx), ev.ID); ferr != nil {
			telemetry.Error("billing.event_release_failed", map[string]any{"event_id": ev.ID, "error": ferr.Error()})
		}
		return false, err
	}
	telemetry.Info("billing.event", map[string]any{"event_id": ev.ID, "type": ev.Type, "user_id": ev.UserID})
	return false, nil
}

func (s *Service) markCanceled(ctx context.Context, userID string) error {
	sub, err := s.Repo.Get(ctx, userID)
	if err != nil {
		return err
	}
	sub.CancelAtPeriodEnd = true
	sub.UpdatedAt = s.now()
	if err := s.Repo.Upsert(ctx, sub); err != nil {
		return err
	}
	logChange(sub, "canceled")
	return nil
}
