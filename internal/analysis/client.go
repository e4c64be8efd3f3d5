// internal/analysis/client.go

// Package analysis runs the feedback analysis tools and the worker that
// consumes queued submissions.
package analysis

import (
	"context"
	"errors"
	"time"

	pipelineerrors "feedback-pipeline/internal/common/errors"
	httpclient "feedback-pipeline/internal/common/http"
	"feedback-pipeline/internal/common/logger"
	"feedback-pipeline/internal/models"
)

// PredefinedTopics is the closed topic set the categorization tool
// classifies feedback into.
var PredefinedTopics = []string{
	"Product Quality", "Delivery", "Customer Support", "Pricing",
	"Website/App", "Billing", "Returns", "Shipping", "User Experience",
}

// ToolRunner is the set of analysis tools the worker composes. Only
// Summarize is mandatory for a job to complete; the other tools feed it
// context and are best-effort.
type ToolRunner interface {
	AnalyzeSentiment(ctx context.Context, text string) (*models.SentimentResult, error)
	CategorizeTopics(ctx context.Context, text string) (*models.TopicResult, error)
	ExtractKeywords(ctx context.Context, text string) (*models.KeywordResult, error)
	Summarize(ctx context.Context, text, instructions string, toolContext map[string]interface{}) (*models.AnalysisPayload, error)
}

type jsonPoster interface {
	PostJSON(ctx context.Context, url string, headers map[string]string, body, out interface{}) error
}

var _ jsonPoster = (*httpclient.Client)(nil)

// Client calls the analysis API tool endpoints with bounded retries.
type Client struct {
	client     jsonPoster
	baseURL    string
	apiKey     string
	maxRetries int
	logger     logger.Logger
	backoff    func(attempt int) time.Duration
}

func NewClient(client jsonPoster, baseURL, apiKey string, maxRetries int, log logger.Logger) *Client {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &Client{
		client:     client,
		baseURL:    baseURL,
		apiKey:     apiKey,
		maxRetries: maxRetries,
		logger:     log.With(map[string]interface{}{"component": "analysis-client"}),
		backoff: func(attempt int) time.Duration {
			return 100 * time.Millisecond << (attempt - 1)
		},
	}
}

type sentimentRequest struct {
	Text string `json:"text"`
}

type topicsRequest struct {
	Text   string   `json:"text"`
	Topics []string `json:"topics"`
}

type keywordsRequest struct {
	Text string `json:"text"`
}

type summarizeRequest struct {
	Text         string                 `json:"text"`
	Instructions string                 `json:"instructions,omitempty"`
	ToolContext  map[string]interface{} `json:"tool_context,omitempty"`
}

func (c *Client) AnalyzeSentiment(ctx context.Context, text string) (*models.SentimentResult, error) {
	var out models.SentimentResult
	if err := c.post(ctx, "/tools/sentiment", sentimentRequest{Text: text}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CategorizeTopics(ctx context.Context, text string) (*models.TopicResult, error) {
	var out models.TopicResult
	if err := c.post(ctx, "/tools/topics", topicsRequest{Text: text, Topics: PredefinedTopics}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ExtractKeywords(ctx context.Context, text string) (*models.KeywordResult, error) {
	var out models.KeywordResult
	if err := c.post(ctx, "/tools/keywords", keywordsRequest{Text: text}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Summarize(ctx context.Context, text, instructions string, toolContext map[string]interface{}) (*models.AnalysisPayload, error) {
	var out models.AnalysisPayload
	req := summarizeRequest{Text: text, Instructions: instructions, ToolContext: toolContext}
	if err := c.post(ctx, "/tools/summarize", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// post retries transient faults with exponential backoff. A deadline or
// cancellation aborts the retry loop immediately and reports a timeout.
func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	url := c.baseURL + path

	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		lastErr = c.client.PostJSON(ctx, url, c.headers(), body, out)
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, context.DeadlineExceeded) || errors.Is(lastErr, context.Canceled) || ctx.Err() != nil {
			return pipelineerrors.Wrap(pipelineerrors.ErrCodeAnalysisAPITimeout, "analysis API call timed out", lastErr)
		}

		c.logger.WithError(lastErr).Warn("analysis API call failed", map[string]interface{}{
			"path":    path,
			"attempt": attempt,
		})
		if attempt < c.maxRetries {
			select {
			case <-time.After(c.backoff(attempt)):
			case <-ctx.Done():
				return pipelineerrors.Wrap(pipelineerrors.ErrCodeAnalysisAPITimeout, "analysis API call timed out", ctx.Err())
			}
		}
	}
	return pipelineerrors.Wrap(pipelineerrors.ErrCodeAnalysisFailed, "analysis API call failed", lastErr)
}

func (c *Client) headers() map[string]string {
	if c.apiKey == "" {
		return nil
	}
	return map[string]string{"Authorization": "Bearer " + c.apiKey}
}
