// internal/intake/service.go

// Package intake accepts feedback submissions: schema validation,
// guardrail screening, durable record creation, and queueing for
// asynchronous analysis.
package intake

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"

	pipelineerrors "feedback-pipeline/internal/common/errors"
	"feedback-pipeline/internal/common/logger"
	"feedback-pipeline/internal/common/metrics"
	"feedback-pipeline/internal/models"
)

const submissionSchema = `{
	"type": "object",
	"required": ["feedback_id", "customer_name", "feedback_text"],
	"properties": {
		"feedback_id":   {"type": "string", "minLength": 1},
		"customer_name": {"type": "string", "minLength": 1},
		"feedback_text": {"type": "string", "minLength": 1},
		"timestamp":     {"type": "string"},
		"instructions":  {"type": "string"}
	}
}`

var schemaLoader = gojsonschema.NewStringLoader(submissionSchema)

// RecordStore writes the initial processing record.
type RecordStore interface {
	PutRecord(ctx context.Context, record *models.FeedbackRecord) error
}

// Queue hands the submission to the analysis worker.
type Queue interface {
	Send(ctx context.Context, body string) (string, error)
}

// Guardrails screens text and instructions before they are persisted.
type Guardrails interface {
	CheckContent(ctx context.Context, text string) (string, error)
	ValidateInstructions(ctx context.Context, instructions string) (string, error)
}

// Receipt acknowledges an accepted submission.
type Receipt struct {
	FeedbackID string `json:"feedback_id"`
	Status     string `json:"status"`
	Message    string `json:"message"`
	RequestID  string `json:"request_id"`
}

// Service runs the intake sequence. The durable write happens before the
// queue send so a queue fault never loses the record; a stuck processing
// record is recoverable, a vanished submission is not.
type Service struct {
	store  RecordStore
	queue  Queue
	guards Guardrails
	logger logger.Logger
	now    func() time.Time
}

func NewService(store RecordStore, queue Queue, guards Guardrails, log logger.Logger) *Service {
	return &Service{
		store:  store,
		queue:  queue,
		guards: guards,
		logger: log.With(map[string]interface{}{"component": "intake"}),
		now:    time.Now,
	}
}

// Submit validates and accepts one raw submission payload.
func (s *Service) Submit(ctx context.Context, raw []byte) (*Receipt, error) {
	submission, err := s.validate(raw)
	if err != nil {
		metrics.IntakeSubmissions.WithLabelValues("rejected").Inc()
		return nil, err
	}

	sanitizedText, err := s.guards.CheckContent(ctx, submission.FeedbackText)
	if err != nil {
		metrics.IntakeSubmissions.WithLabelValues("rejected").Inc()
		return nil, err
	}
	submission.FeedbackText = sanitizedText

	sanitizedInstructions, err := s.guards.ValidateInstructions(ctx, submission.Instructions)
	if err != nil {
		metrics.IntakeSubmissions.WithLabelValues("rejected").Inc()
		return nil, err
	}
	submission.Instructions = sanitizedInstructions

	now := s.now().UTC()
	if submission.Timestamp == "" {
		submission.Timestamp = now.Format(time.RFC3339)
	}
	unixTS, err := submission.UnixTimestamp()
	if err != nil {
		metrics.IntakeSubmissions.WithLabelValues("rejected").Inc()
		return nil, pipelineerrors.Wrap(pipelineerrors.ErrCodeValidationFailed, "timestamp must be RFC3339", err)
	}

	requestID := fmt.Sprintf("%s_%d", submission.FeedbackID, now.Unix())

	record := &models.FeedbackRecord{
		FeedbackID:          submission.FeedbackID,
		Timestamp:           unixTS,
		Status:              models.StatusProcessing,
		OriginalData:        submission,
		CreatedAt:           now.Format(time.RFC3339),
		ProcessingTimestamp: now.Format(time.RFC3339),
		RequestID:           requestID,
	}
	if err := s.store.PutRecord(ctx, record); err != nil {
		metrics.IntakeSubmissions.WithLabelValues("failed").Inc()
		return nil, err
	}

	message, err := json.Marshal(models.QueuedSubmission{
		FeedbackData: *submission,
		RequestID:    requestID,
	})
	if err != nil {
		metrics.IntakeSubmissions.WithLabelValues("failed").Inc()
		return nil, pipelineerrors.Wrap(pipelineerrors.ErrCodeQueueSendFailed, "marshal queue message", err)
	}
	if _, err := s.queue.Send(ctx, string(message)); err != nil {
		metrics.IntakeSubmissions.WithLabelValues("failed").Inc()
		return nil, pipelineerrors.Wrap(pipelineerrors.ErrCodeQueueSendFailed, "send queue message", err)
	}

	metrics.IntakeSubmissions.WithLabelValues("accepted").Inc()
	s.logger.Info("feedback accepted", map[string]interface{}{
		"feedbackId": submission.FeedbackID,
		"requestId":  requestID,
	})

	return &Receipt{
		FeedbackID: submission.FeedbackID,
		Status:     models.StatusProcessing,
		Message:    "Feedback received and queued for processing",
		RequestID:  requestID,
	}, nil
}

func (s *Service) validate(raw []byte) (*models.FeedbackSubmission, error) {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, pipelineerrors.Wrap(pipelineerrors.ErrCodeValidationFailed, "submission is not valid JSON", err)
	}
	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, fieldErr := range result.Errors() {
			details = append(details, fieldErr.String())
		}
		return nil, pipelineerrors.New(pipelineerrors.ErrCodeValidationFailed, strings.Join(details, "; "))
	}

	var submission models.FeedbackSubmission
	if err := json.Unmarshal(raw, &submission); err != nil {
		return nil, pipelineerrors.Wrap(pipelineerrors.ErrCodeValidationFailed, "decode submission", err)
	}
	return &submission, nil
}
