package resumes

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"cvbuilder/internal/shared/metrics"
	"cvbuilder/internal/shared/telemetry"
)

// SaveFunc persists a batch of coalesced section drafts for one résumé.
type SaveFunc func(ctx context.Context, userID, resumeID string, sections map[string]json.RawMessage) error

// Autosaver coalesces draft writes per résumé and saves them once the résumé
// has been quiet for the configured delay. Pending drafts are also flushed on
// demand (before a read) and on Close.
type Autosaver struct {
	delay time.Duration
	save  SaveFunc

	mu       sync.Mutex
	pending  map[string]*draft
	inflight map[string]chan struct{}
	closed   bool
}

type draft struct {
	userID   string
	sections map[string]json.RawMessage
	timer    *time.Timer
	attempts int
}

const maxSaveAttempts = 3

// NewAutosaver constructs an Autosaver.
func NewAutosaver(delay time.Duration, save SaveFunc) *Autosaver {
	if delay <= 0 {
		delay = 1500 * time.Millisecond
	}
	return &Autosaver{
		delay:    delay,
		save:     save,
		pending:  make(map[string]*draft),
		inflight: make(map[string]chan struct{}),
	}
}

// Queue records sections for resumeID and (re)starts its quiet timer. Later
// writes to the same section replace earlier ones.
func (a *Autosaver) Queue(userID, resumeID string, sections map[string]json.RawMessage) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrAutosaveClosed
	}

	d, ok := a.pending[resumeID]
	if !ok {
		d = &draft{userID: userID, sections: make(map[string]json.RawMessage, len(sections))}
		a.pending[resumeID] = d
		d.timer = time.AfterFunc(a.delay, func() { a.fire(resumeID, d) })
	} else {
		d.timer.Reset(a.delay)
	}
	for name, raw := range sections {
		d.sections[name] = raw
	}
	return nil
}

// Pending reports whether resumeID has unsaved drafts.
func (a *Autosaver) Pending(resumeID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.pending[resumeID]
	return ok
}

// Flush saves any pending draft for resumeID now, waiting for an in-flight
// save of the same résumé to finish first.
func (a *Autosaver) Flush(ctx context.Context, resumeID string) error {
	return a.flush(ctx, resumeID, nil, "read")
}

// Discard drops any pending draft for resumeID without saving it.
func (a *Autosaver) Discard(resumeID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if d, ok := a.pending[resumeID]; ok {
		d.timer.Stop()
		delete(a.pending, resumeID)
	}
}

// FlushUser saves every pending draft queued by userID.
func (a *Autosaver) FlushUser(ctx context.Context, userID string) error {
	var errs []error
	for _, id := range a.pendingFor(userID) {
		if err := a.flush(ctx, id, nil, "claim"); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// DiscardUser drops every pending draft queued by userID.
func (a *Autosaver) DiscardUser(userID string) {
	for _, id := range a.pendingFor(userID) {
		a.Discard(id)
	}
}

func (a *Autosaver) pendingFor(userID string) []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	var ids []string
	for id, d := range a.pending {
		if d.userID == userID {
			ids = append(ids, id)
		}
	}
	return ids
}

// Close stops accepting drafts and flushes everything still pending.
func (a *Autosaver) Close(ctx context.Context) error {
	a.mu.Lock()
	a.closed = true
	ids := make([]string, 0, len(a.pending))
	for id := range a.pending {
		ids = append(ids, id)
	}
	a.mu.Unlock()

	var errs []error
	for _, id := range ids {
		if err := a.flush(ctx, id, nil, "shutdown"); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (a *Autosaver) fire(resumeID string, d *draft) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_ = a.flush(ctx, resumeID, d, "timer")
}

// flush saves the pending draft of resumeID. When only is non-nil the flush
// is skipped unless that exact draft is still pending, so a stale timer never
// saves a newer draft early.
func (a *Autosaver) flush(ctx context.Context, resumeID string, only *draft, reason string) error {
	a.mu.Lock()
	for {
		ch, busy := a.inflight[resumeID]
		if !busy {
			break
		}
		a.mu.Unlock()
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
		a.mu.Lock()
	}
	d, ok := a.pending[resumeID]
	if !ok || (only != nil && d != only) {
		a.mu.Unlock()
		return nil
	}
	d.timer.Stop()
	delete(a.pending, resumeID)
	done := make(chan struct{})
	a.inflight[resumeID] = done
	a.mu.Unlock()

	err := a.save(ctx, d.userID, resumeID, d.sections)

	a.mu.Lock()
	delete(a.inflight, resumeID)
	close(done)
	a.mu.Unlock()

	fields := map[string]any{"resumeId": resumeID, "reason": reason, "sections": len(d.sections)}
	switch {
	case err == nil:
		metrics.IncAutosaveFlush("ok")
		telemetry.Info("autosave.flush", fields)
	case errors.Is(err, ErrNotFound):
		metrics.IncAutosaveFlush("dropped")
		fields["err"] = err
		telemetry.Warn("autosave.flush", fields)
	default:
		metrics.IncAutosaveFlush("error")
		fields["err"] = err
		telemetry.Error("autosave.flush", fields)
		if reason == "timer" {
			d.attempts++
			a.requeue(d, resumeID)
		}
	}
	return err
}

// requeue puts failed sections back underneath anything queued since.
func (a *Autosaver) requeue(failed *draft, resumeID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed || failed.attempts >= maxSaveAttempts {
		telemetry.Error("autosave.dropped", map[string]any{"resumeId": resumeID, "attempts": failed.attempts})
		return
	}
	d, ok := a.pending[resumeID]
	if !ok {
		d = &draft{userID: failed.userID, sections: failed.sections, attempts: failed.attempts}
		a.pending[resumeID] = d
		d.timer = time.AfterFunc(a.delay, func() { a.fire(resumeID, d) })
		return
	}
	for name, raw := range failed.sections {
		if _, newer := d.sections[name]; !newer {
			d.sections[name] = raw
		}
	}
}
