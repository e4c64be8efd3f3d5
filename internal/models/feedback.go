// internal/models/feedback.go
package models

import (
	"fmt"
	"strings"
	"time"
)

// Terminal and in-flight states of a feedback record. A record is created
// as StatusProcessing and transitions exactly once to StatusCompleted or
// StatusFailed; it is never mutated after that.
const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// FeedbackSubmission is the intake payload and the sanitized echo stored
// under original_data on the durable record.
type FeedbackSubmission struct {
	FeedbackID   string `json:"feedback_id" dynamodbav:"feedback_id"`
	CustomerName string `json:"customer_name" dynamodbav:"customer_name"`
	FeedbackText string `json:"feedback_text" dynamodbav:"feedback_text"`
	Timestamp    string `json:"timestamp,omitempty" dynamodbav:"timestamp,omitempty"`
	Instructions string `json:"instructions,omitempty" dynamodbav:"instructions,omitempty"`
}

// UnixTimestamp converts the submission timestamp into the epoch-seconds
// range key of the durable record. Intake and the analysis worker must
// derive the key from the same string or they address different records.
func (s *FeedbackSubmission) UnixTimestamp() (int64, error) {
	raw := strings.TrimSpace(s.Timestamp)
	if raw == "" {
		return 0, fmt.Errorf("submission %s has no timestamp", s.FeedbackID)
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return 0, fmt.Errorf("parse submission timestamp %q: %w", raw, err)
	}
	return t.Unix(), nil
}

// FeedbackRecord is the authoritative durable record. The composite key is
// (feedback_id, timestamp); the store may hold multiple timestamped
// versions per feedback_id and retrieval always selects the most recent.
//
// Results is deliberately untyped: older writers stored the analysis as a
// nested object, newer ones as a JSON-encoded string, and some records
// carry a top-level analysis field instead. The retrieval normalizer owns
// decoding all of those shapes.
type FeedbackRecord struct {
	FeedbackID          string              `json:"feedback_id" dynamodbav:"feedback_id"`
	Timestamp           int64               `json:"timestamp" dynamodbav:"timestamp"`
	Status              string              `json:"status" dynamodbav:"status"`
	OriginalData        *FeedbackSubmission `json:"original_data,omitempty" dynamodbav:"original_data,omitempty"`
	Results             interface{}         `json:"results,omitempty" dynamodbav:"results,omitempty"`
	Analysis            interface{}         `json:"analysis,omitempty" dynamodbav:"analysis,omitempty"`
	CreatedAt           string              `json:"created_at,omitempty" dynamodbav:"created_at,omitempty"`
	UpdatedAt           string              `json:"updated_at,omitempty" dynamodbav:"updated_at,omitempty"`
	ProcessingTimestamp string              `json:"processing_timestamp,omitempty" dynamodbav:"processing_timestamp,omitempty"`
	RequestID           string              `json:"request_id,omitempty" dynamodbav:"request_id,omitempty"`
}

// QueuedSubmission is the envelope sent to the analysis queue at intake
// and consumed by the analysis worker.
type QueuedSubmission struct {
	FeedbackData FeedbackSubmission `json:"feedback_data"`
	RequestID    string             `json:"request_id"`
}
