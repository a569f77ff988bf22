package subscriptions

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound             = errors.New("subscription not found")
	ErrInvalidInput         = errors.New("invalid input")
	ErrNotCancelable        = errors.New("no active subscription to cancel")
	ErrSubscriptionRequired = errors.New("subscription required")
	ErrLoginRequired        = errors.New("login required")
	ErrInvalidSignature     = errors.New("invalid webhook signature")
)

// RequiredError reports which feature was denied and the status that denied it.
type RequiredError struct {
	Feature Feature
	Status  Status
}

func (e *RequiredError) Error() string {
	return fmt.Sprintf("%s: feature %s unavailable on %s", ErrSubscriptionRequired, e.Feature, e.Status)
}

func (e *RequiredError) Unwrap() error { return ErrSubscriptionRequired }
