package queue

import (
	"reflect"
	"testing"
	"time"
)

func TestMessageRoundTrip(t *testing.T) {
	msg := Message{
		AnalysisID: "analysis-123",
		RequestID:  "request-456",
		EnqueuedAt: "2026-01-30T22:00:00Z",
		Version:    1,
	}

	payload, err := EncodeMessage(msg)
	if err != nil {
		t.Fatalf("encode message: %v", err)
	}

	got, err := DecodeMessage(payload)
	if err != nil {
		t.Fatalf("decode message: %v", err)
	}

	if !reflect.DeepEqual(got, msg) {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, msg)
	}
}

func TestNewMessageStampsVersionAndTime(t *testing.T) {
	msg := NewMessage("analysis-1", "req-1")
	if msg.Version != MessageVersion {
		t.Fatalf("version = %d", msg.Version)
	}
	if _, err := time.Parse(time.RFC3339, msg.EnqueuedAt); err != nil {
		t.Fatalf("enqueuedAt %q: %v", msg.EnqueuedAt, err)
	}
}
