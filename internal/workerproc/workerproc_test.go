package workerproc

import (
	"context"
	"errors"
	"testing"

	"cvbuilder/internal/queue"
)

type recordingProcessor struct {
	ids []string
	err error
}

func (r *recordingProcessor) ProcessAnalysis(_ context.Context, id string) error {
	r.ids = append(r.ids, id)
	return r.err
}

func TestParseMessageErrors(t *testing.T) {
	if _, _, err := ParseMessage("   "); !IsUnrecoverable(err) {
		t.Fatalf("expected unrecoverable empty body, got %v", err)
	}

	_, meta, err := ParseMessage("{bad")
	var decodeErr ErrDecode
	if !errors.As(err, &decodeErr) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
	if meta.BodyLen != 4 || meta.BodySHA == "" {
		t.Fatalf("unexpected meta %+v", meta)
	}

	_, _, err = ParseMessage(`{"requestId":"req-1","version":1}`)
	var missing ErrMissingAnalysisID
	if !errors.As(err, &missing) || missing.RequestID != "req-1" {
		t.Fatalf("expected ErrMissingAnalysisID with request id, got %v", err)
	}
}

func TestHandleMessageProcesses(t *testing.T) {
	body, err := queue.EncodeMessage(queue.NewMessage("a-1", "req-1"))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	p := &recordingProcessor{}
	if err := HandleMessage(context.Background(), p, string(body)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(p.ids) != 1 || p.ids[0] != "a-1" {
		t.Fatalf("unexpected ids %v", p.ids)
	}
}

func TestHandleMessageWrapsProcessError(t *testing.T) {
	body, _ := queue.EncodeMessage(queue.NewMessage("a-2", "req-2"))
	boom := errors.New("boom")
	err := HandleMessage(context.Background(), &recordingProcessor{err: boom}, string(body))

	var procErr ErrProcess
	if !errors.As(err, &procErr) || procErr.AnalysisID != "a-2" {
		t.Fatalf("expected ErrProcess, got %v", err)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped cause")
	}
	if IsUnrecoverable(err) {
		t.Fatalf("process errors must be retried")
	}
}
