package models

import (
	"fmt"
	"time"
)

type MessageEnvelope struct {
	ID        string                 `json:"id"`
	Source    string                 `json:"source"`
	Timestamp time.Time              `json:"timestamp"`
	Payload   map[string]interface{} `json:"payload"`
	Metadata  Metadata               `json:"metadata"`
}

type Metadata struct {
	TraceID string `json:"trace_id,omitempty"`
	BatchID string `json:"batch_id,omitempty"`
	Actor   string `json:"actor,omitempty"`
}

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

func ValidateMessageEnvelope(msg *MessageEnvelope) error {
	switch {
	case msg == nil:
		return &ValidationError{Field: "envelope", Message: "message envelope cannot be nil"}
	case msg.ID == "":
		return &ValidationError{Field: "id", Message: "message ID is required"}
	case msg.Source == "":
		return &ValidationError{Field: "source", Message: "message source is required"}
	case msg.Timestamp.IsZero():
		return &ValidationError{Field: "timestamp", Message: "message timestamp is required"}
	case msg.Payload == nil:
		return &ValidationError{Field: "payload", Message: "message payload cannot be nil"}
	}
	return nil
}
