package queue

import (
	"encoding/json"
	"time"
)

// MessageVersion is the payload version written by this build.
const MessageVersion = 1

// Message asks a worker to process one analysis.
type Message struct {
	AnalysisID string `json:"analysisId"`
	RequestID  string `json:"requestId"`
	EnqueuedAt string `json:"enqueuedAt"`
	Version    int    `json:"version"`
}

// NewMessage builds a message stamped with the current time.
func NewMessage(analysisID, requestID string) Message {
	return Message{
		AnalysisID: analysisID,
		RequestID:  requestID,
		EnqueuedAt: time.Now().UTC().Format(time.RFC3339),
		Version:    MessageVersion,
	}
}

// EncodeMessage returns the JSON representation of a message.
func EncodeMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeMessage parses a JSON payload into a Message.
func DecodeMessage(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}
