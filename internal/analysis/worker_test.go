// internal/analysis/worker_test.go
package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feedback-pipeline/internal/common/aws"
	"feedback-pipeline/internal/common/logger"
	"feedback-pipeline/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================

type fakeCompleter struct {
	completed   []string
	failed      []string
	results     interface{}
	completeErr error
	failErr     error
}

func (f *fakeCompleter) CompleteRecord(_ context.Context, feedbackID string, _ int64, results interface{}) error {
	if f.completeErr != nil {
		return f.completeErr
	}
	f.completed = append(f.completed, feedbackID)
	f.results = results
	return nil
}

func (f *fakeCompleter) FailRecord(_ context.Context, feedbackID string, _ int64, results interface{}) error {
	if f.failErr != nil {
		return f.failErr
	}
	f.failed = append(f.failed, feedbackID)
	f.results = results
	return nil
}

type fakeConsumerQueue struct {
	deleted []string
}

func (f *fakeConsumerQueue) Receive(context.Context, int32, int32) ([]aws.Message, error) {
	return nil, nil
}

func (f *fakeConsumerQueue) Delete(_ context.Context, receiptHandle string) error {
	f.deleted = append(f.deleted, receiptHandle)
	return nil
}

type fakeTools struct {
	summary      *models.AnalysisPayload
	summaryErr   error
	sentimentErr error
}

func (f *fakeTools) AnalyzeSentiment(context.Context, string) (*models.SentimentResult, error) {
	if f.sentimentErr != nil {
		return nil, f.sentimentErr
	}
	return &models.SentimentResult{ToolName: "sentiment_analysis", Sentiment: "positive"}, nil
}

func (f *fakeTools) CategorizeTopics(context.Context, string) (*models.TopicResult, error) {
	return &models.TopicResult{ToolName: "topic_categorization", PrimaryTopic: "Delivery"}, nil
}

func (f *fakeTools) ExtractKeywords(context.Context, string) (*models.KeywordResult, error) {
	return &models.KeywordResult{ToolName: "keyword_contextualization"}, nil
}

func (f *fakeTools) Summarize(context.Context, string, string, map[string]interface{}) (*models.AnalysisPayload, error) {
	if f.summaryErr != nil {
		return nil, f.summaryErr
	}
	return f.summary, nil
}

type fakeNotifier struct {
	subjects []string
	err      error
}

func (f *fakeNotifier) Publish(_ context.Context, subject, _ string) error {
	if f.err != nil {
		return f.err
	}
	f.subjects = append(f.subjects, subject)
	return nil
}

type workerFixture struct {
	worker   *Worker
	store    *fakeCompleter
	queue    *fakeConsumerQueue
	tools    *fakeTools
	notifier *fakeNotifier
}

func newWorkerFixture(t *testing.T) *workerFixture {
	t.Helper()
	f := &workerFixture{
		store: &fakeCompleter{},
		queue: &fakeConsumerQueue{},
		tools: &fakeTools{summary: &models.AnalysisPayload{
			ExecutiveSummary: "Good",
			KeyPoints:        []string{"fast checkout"},
			CustomerImpact:   "low",
		}},
		notifier: &fakeNotifier{},
	}
	f.worker = NewWorker(f.queue, f.store, f.tools, f.notifier, nil, logger.NewTestLogger(t), WorkerOptions{})
	return f
}

func queuedMessage(t *testing.T) aws.Message {
	t.Helper()
	body, err := json.Marshal(models.QueuedSubmission{
		FeedbackData: models.FeedbackSubmission{
			FeedbackID:   "fb-1",
			CustomerName: "Dana",
			FeedbackText: "Checkout was fast.",
			Timestamp:    "2023-11-14T22:13:20Z",
		},
		RequestID: "fb-1_1700000001",
	})
	require.NoError(t, err)
	return aws.Message{ID: "msg-1", Body: string(body), ReceiptHandle: "rh-1"}
}

// ==========================
// Job Processing Tests
// ==========================

func TestProcessMessage_CompletesRecord(t *testing.T) {
	f := newWorkerFixture(t)

	f.worker.processMessage(context.Background(), queuedMessage(t))

	require.Equal(t, []string{"fb-1"}, f.store.completed)
	assert.Equal(t, []string{"rh-1"}, f.queue.deleted)

	// The stored analysis is a JSON string, not a nested object.
	results, ok := f.store.results.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "fb-1", results["feedback_id"])
	assert.Equal(t, "fb-1_1700000001", results["request_id"])

	encoded, ok := results["analysis"].(string)
	require.True(t, ok)
	var payload models.AnalysisPayload
	require.NoError(t, json.Unmarshal([]byte(encoded), &payload))
	assert.Equal(t, "Good", payload.ExecutiveSummary)

	require.Len(t, f.notifier.subjects, 1)
	assert.Contains(t, f.notifier.subjects[0], "fb-1")
}

func TestProcessMessage_SummarizationFailureFailsRecord(t *testing.T) {
	f := newWorkerFixture(t)
	f.tools.summaryErr = errors.New("model unavailable")

	f.worker.processMessage(context.Background(), queuedMessage(t))

	assert.Empty(t, f.store.completed)
	require.Equal(t, []string{"fb-1"}, f.store.failed)
	assert.Equal(t, []string{"rh-1"}, f.queue.deleted, "a permanent failure still consumes the message")
	assert.Empty(t, f.notifier.subjects)
}

func TestFailRecord_WritesTerminalState(t *testing.T) {
	f := newWorkerFixture(t)
	log := logger.NewTestLogger(t)

	status := f.worker.failRecord(context.Background(), log, "fb-1", "fb-1_1700000001", 1700000000)

	assert.Equal(t, models.StatusFailed, status)
	require.Equal(t, []string{"fb-1"}, f.store.failed)

	results, ok := f.store.results.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "fb-1", results["feedback_id"])
	assert.Equal(t, "analysis failed", results["error"])
}

func TestProcessMessage_FailedWriteFaultLeavesMessageForRedelivery(t *testing.T) {
	f := newWorkerFixture(t)
	f.tools.summaryErr = errors.New("model unavailable")
	f.store.failErr = errors.New("capacity exceeded")

	f.worker.processMessage(context.Background(), queuedMessage(t))

	assert.Empty(t, f.queue.deleted, "the record is still in processing, redelivery must retry it")
}

func TestProcessMessage_ContextToolFailureDegradesGracefully(t *testing.T) {
	f := newWorkerFixture(t)
	f.tools.sentimentErr = errors.New("tool unavailable")

	f.worker.processMessage(context.Background(), queuedMessage(t))

	require.Equal(t, []string{"fb-1"}, f.store.completed, "optional tool faults must not fail the job")
}

func TestProcessMessage_StoreFaultLeavesMessageForRedelivery(t *testing.T) {
	f := newWorkerFixture(t)
	f.store.completeErr = errors.New("capacity exceeded")

	f.worker.processMessage(context.Background(), queuedMessage(t))

	assert.Empty(t, f.queue.deleted, "an infrastructure fault must leave the message queued")
}

func TestProcessMessage_MalformedMessageDropped(t *testing.T) {
	f := newWorkerFixture(t)

	f.worker.processMessage(context.Background(), aws.Message{ID: "msg-x", Body: "{broken", ReceiptHandle: "rh-x"})

	assert.Empty(t, f.store.completed)
	assert.Empty(t, f.store.failed)
	assert.Equal(t, []string{"rh-x"}, f.queue.deleted)
}

func TestProcessMessage_NotifierFaultDoesNotFailJob(t *testing.T) {
	f := newWorkerFixture(t)
	f.notifier.err = errors.New("topic gone")

	f.worker.processMessage(context.Background(), queuedMessage(t))

	require.Equal(t, []string{"fb-1"}, f.store.completed)
	assert.Equal(t, []string{"rh-1"}, f.queue.deleted)
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	f := newWorkerFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := f.worker.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
