// internal/analysis/worker.go
package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"feedback-pipeline/internal/common/aws"
	"feedback-pipeline/internal/common/logger"
	"feedback-pipeline/internal/common/metrics"
	"feedback-pipeline/internal/common/observability"
	"feedback-pipeline/internal/models"
)

// RecordCompleter transitions a feedback record to its terminal state.
type RecordCompleter interface {
	CompleteRecord(ctx context.Context, feedbackID string, timestamp int64, results interface{}) error
	FailRecord(ctx context.Context, feedbackID string, timestamp int64, results interface{}) error
}

// Queue is the consuming side of the submission queue.
type Queue interface {
	Receive(ctx context.Context, max int32, waitSeconds int32) ([]aws.Message, error)
	Delete(ctx context.Context, receiptHandle string) error
}

// Notifier publishes completion notifications. A nil Notifier disables
// notifications.
type Notifier interface {
	Publish(ctx context.Context, subject, message string) error
}

// Worker consumes queued submissions, runs the analysis tools, and
// writes the terminal record. Each message is processed exactly once
// from the worker's perspective: success and permanent failure both
// consume the message, only infrastructure faults leave it for redelivery.
type Worker struct {
	queue       Queue
	store       RecordCompleter
	tools       ToolRunner
	notifier    Notifier
	obs         *observability.Observability
	logger      logger.Logger
	maxMessages int32
	waitSeconds int32
}

type WorkerOptions struct {
	MaxMessages int32
	WaitSeconds int32
}

func NewWorker(queue Queue, store RecordCompleter, tools ToolRunner, notifier Notifier, obs *observability.Observability, log logger.Logger, opts WorkerOptions) *Worker {
	if opts.MaxMessages <= 0 {
		opts.MaxMessages = 10
	}
	if opts.WaitSeconds <= 0 {
		opts.WaitSeconds = 20
	}
	return &Worker{
		queue:       queue,
		store:       store,
		tools:       tools,
		notifier:    notifier,
		obs:         obs,
		logger:      log.With(map[string]interface{}{"component": "analysis-worker"}),
		maxMessages: opts.MaxMessages,
		waitSeconds: opts.WaitSeconds,
	}
}

// Run long-polls the queue until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("analysis worker started", nil)
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("analysis worker stopping", nil)
			return ctx.Err()
		default:
		}

		messages, err := w.queue.Receive(ctx, w.maxMessages, w.waitSeconds)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.logger.WithError(err).Error("queue receive failed", nil)
			select {
			case <-time.After(5 * time.Second):
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}

		for _, msg := range messages {
			w.processMessage(ctx, msg)
		}
	}
}

func (w *Worker) processMessage(ctx context.Context, msg aws.Message) {
	start := time.Now()

	var queued models.QueuedSubmission
	if err := json.Unmarshal([]byte(msg.Body), &queued); err != nil {
		// A malformed message can never succeed; drop it.
		w.logger.WithError(err).Error("discarding undecodable queue message", map[string]interface{}{
			"messageId": msg.ID,
		})
		metrics.AnalysisJobsFailed.WithLabelValues("malformed_message").Inc()
		w.deleteMessage(ctx, msg)
		return
	}

	submission := queued.FeedbackData
	log := w.logger.With(map[string]interface{}{
		"feedbackId": submission.FeedbackID,
		"requestId":  queued.RequestID,
	})

	timestamp, err := submission.UnixTimestamp()
	if err != nil {
		log.WithError(err).Error("discarding message without a usable timestamp", nil)
		metrics.AnalysisJobsFailed.WithLabelValues("malformed_message").Inc()
		w.deleteMessage(ctx, msg)
		return
	}

	log.Info("processing feedback", nil)
	status := w.analyze(ctx, log, submission, queued.RequestID, timestamp)

	metrics.AnalysisJobDuration.Observe(time.Since(start).Seconds())
	if w.obs != nil {
		w.obs.RecordJobProcessed(ctx, status)
		w.obs.RecordJobDuration(ctx, time.Since(start), status)
	}

	// Redelivery only on infrastructure faults: the durable write failed
	// and the record is still in processing, so another attempt can win.
	if status != "retry" {
		w.deleteMessage(ctx, msg)
	}
}

// analyze runs the tool sequence and writes the terminal record. It
// returns the job outcome: completed, failed, or retry.
func (w *Worker) analyze(ctx context.Context, log logger.Logger, submission models.FeedbackSubmission, requestID string, timestamp int64) string {
	toolContext := w.runContextTools(ctx, log, submission.FeedbackText)

	payload, err := w.tools.Summarize(ctx, submission.FeedbackText, submission.Instructions, toolContext)
	if err != nil {
		log.WithError(err).Error("summarization failed", nil)
		metrics.AnalysisJobsFailed.WithLabelValues("summarization").Inc()
		return w.failRecord(ctx, log, submission.FeedbackID, requestID, timestamp)
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		log.WithError(err).Error("analysis payload not encodable", nil)
		metrics.AnalysisJobsFailed.WithLabelValues("encoding").Inc()
		return w.failRecord(ctx, log, submission.FeedbackID, requestID, timestamp)
	}

	results := map[string]interface{}{
		"feedback_id":          submission.FeedbackID,
		"request_id":           requestID,
		"analysis":             string(encoded),
		"processing_timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if err := w.store.CompleteRecord(ctx, submission.FeedbackID, timestamp, results); err != nil {
		log.WithError(err).Error("completed record write did not land", nil)
		metrics.AnalysisJobsFailed.WithLabelValues("store_write").Inc()
		return "retry"
	}

	metrics.AnalysisJobsCompleted.Inc()
	log.Info("analysis completed", nil)
	w.notify(ctx, log, submission, payload)
	return models.StatusCompleted
}

// failRecord writes the terminal failed record. The message may only be
// consumed once the record has left processing, so a failed write asks
// for redelivery.
func (w *Worker) failRecord(ctx context.Context, log logger.Logger, feedbackID, requestID string, timestamp int64) string {
	failResults := map[string]interface{}{
		"feedback_id":          feedbackID,
		"request_id":           requestID,
		"error":                "analysis failed",
		"processing_timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if err := w.store.FailRecord(ctx, feedbackID, timestamp, failResults); err != nil {
		log.WithError(err).Error("failed record write did not land", nil)
		return "retry"
	}
	return models.StatusFailed
}

// runContextTools runs the best-effort tools. Failures degrade the
// summarization context instead of failing the job.
func (w *Worker) runContextTools(ctx context.Context, log logger.Logger, text string) map[string]interface{} {
	toolContext := map[string]interface{}{}

	if sentiment, err := w.tools.AnalyzeSentiment(ctx, text); err != nil {
		log.WithError(err).Warn("sentiment analysis skipped", nil)
	} else {
		toolContext["sentiment_analysis"] = sentiment
	}

	if topics, err := w.tools.CategorizeTopics(ctx, text); err != nil {
		log.WithError(err).Warn("topic categorization skipped", nil)
	} else {
		toolContext["topic_categorization"] = topics
	}

	if keywords, err := w.tools.ExtractKeywords(ctx, text); err != nil {
		log.WithError(err).Warn("keyword extraction skipped", nil)
	} else {
		toolContext["keyword_contextualization"] = keywords
	}

	return toolContext
}

// notify publishes a completion notification. Notification faults never
// affect the job outcome.
func (w *Worker) notify(ctx context.Context, log logger.Logger, submission models.FeedbackSubmission, payload *models.AnalysisPayload) {
	if w.notifier == nil {
		return
	}
	message, err := json.Marshal(map[string]interface{}{
		"feedback_id":       submission.FeedbackID,
		"customer_name":     submission.CustomerName,
		"executive_summary": payload.ExecutiveSummary,
	})
	if err != nil {
		return
	}
	subject := fmt.Sprintf("Feedback analysis completed: %s", submission.FeedbackID)
	if err := w.notifier.Publish(ctx, subject, string(message)); err != nil {
		log.WithError(err).Warn("completion notification not delivered", nil)
	}
}

func (w *Worker) deleteMessage(ctx context.Context, msg aws.Message) {
	if err := w.queue.Delete(ctx, msg.ReceiptHandle); err != nil {
		w.logger.WithError(err).Warn("queue message not deleted", map[string]interface{}{
			"messageId": msg.ID,
		})
	}
}
