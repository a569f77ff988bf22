package llm

import (
	"context"
	"time"

	"cvbuilder/internal/shared/telemetry"
)

const retryBaseDelay = 300 * time.Millisecond

// Retrying retries a transient failure once after a short delay.
type Retrying struct {
	Base  Completer
	Delay time.Duration
}

// NewRetrying wraps base. A nil base stays nil.
func NewRetrying(base Completer) Completer {
	if base == nil {
		return nil
	}
	return &Retrying{Base: base, Delay: retryBaseDelay}
}

func (r *Retrying) Complete(ctx context.Context, req Request) (Response, error) {
	resp, err := r.Base.Complete(ctx, req)
	if err == nil || !IsTransient(err) || ctx.Err() != nil {
		return resp, err
	}

	telemetry.Warn("llm.retry", map[string]any{"attempt": 1, "err": err})
	select {
	case <-time.After(r.Delay):
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}
	return r.Base.Complete(ctx, req)
}
