package main

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-lambda-go/events"

	"cvbuilder/internal/queue"
)

type stubProcessor struct {
	failFor map[string]bool
	seen    []string
}

func (s *stubProcessor) ProcessAnalysis(_ context.Context, analysisID string) error {
	s.seen = append(s.seen, analysisID)
	if s.failFor[analysisID] {
		return errors.New("transient")
	}
	return nil
}

func record(t *testing.T, id, analysisID string) events.SQSMessage {
	t.Helper()
	body, err := queue.EncodeMessage(queue.NewMessage(analysisID, "req-"+id))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return events.SQSMessage{MessageId: id, Body: string(body)}
}

func TestHandleBatchReportsOnlyRetryableFailures(t *testing.T) {
	p := &stubProcessor{failFor: map[string]bool{"a-2": true}}
	event := events.SQSEvent{Records: []events.SQSMessage{
		record(t, "m1", "a-1"),
		record(t, "m2", "a-2"),
		{MessageId: "m3", Body: "{not json"},
		{MessageId: "m4", Body: ""},
	}}

	resp := handleBatch(context.Background(), p, event)

	if len(resp.BatchItemFailures) != 1 || resp.BatchItemFailures[0].ItemIdentifier != "m2" {
		t.Fatalf("expected only m2 to fail, got %+v", resp.BatchItemFailures)
	}
	if len(p.seen) != 2 {
		t.Fatalf("expected two processed analyses, got %v", p.seen)
	}
}
