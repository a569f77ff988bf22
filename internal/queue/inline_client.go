package queue

import (
	"context"
	"sync"

	"cvbuilder/internal/shared/telemetry"
)

// InlineClient runs the handler in a goroutine in the sending process. It is
// used when no broker is configured.
type InlineClient struct {
	handle HandlerFunc
	wg     sync.WaitGroup
}

// NewInlineClient constructs an InlineClient.
func NewInlineClient(handle HandlerFunc) *InlineClient {
	return &InlineClient{handle: handle}
}

// Send schedules msg. The handler gets a context that outlives the request.
func (c *InlineClient) Send(ctx context.Context, msg Message) error {
	if c.handle == nil {
		return nil
	}
	detached := context.WithoutCancel(ctx)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				telemetry.Error("queue.inline.panic", map[string]any{"analysisId": msg.AnalysisID, "panic": r})
			}
		}()
		if err := c.handle(detached, msg); err != nil {
			telemetry.Error("queue.inline.failed", map[string]any{
				"analysisId": msg.AnalysisID,
				"requestId":  msg.RequestID,
				"error":      err.Error(),
			})
		}
	}()
	return nil
}

// Wait blocks until every scheduled message has been handled or ctx ends.
func (c *InlineClient) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var _ Client = (*InlineClient)(nil)
