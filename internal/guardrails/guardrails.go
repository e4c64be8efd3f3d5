// internal/guardrails/guardrails.go

// Package guardrails screens inbound feedback text and processing
// instructions against the analysis API's moderation endpoints before
// anything enters the pipeline.
package guardrails

import (
	"context"

	pipelineerrors "feedback-pipeline/internal/common/errors"
	httpclient "feedback-pipeline/internal/common/http"
	"feedback-pipeline/internal/common/logger"
)

// jsonPoster is the transport dependency, satisfied by the shared HTTP
// client.
type jsonPoster interface {
	PostJSON(ctx context.Context, url string, headers map[string]string, body, out interface{}) error
}

var _ jsonPoster = (*httpclient.Client)(nil)

// Agent screens content and instructions. Screening is fail-open: when
// the moderation backend is unreachable the input passes unmodified,
// because losing feedback over a moderation outage is the worse failure.
type Agent struct {
	client  jsonPoster
	baseURL string
	apiKey  string
	logger  logger.Logger
}

func NewAgent(client jsonPoster, baseURL, apiKey string, log logger.Logger) *Agent {
	return &Agent{
		client:  client,
		baseURL: baseURL,
		apiKey:  apiKey,
		logger:  log.With(map[string]interface{}{"component": "guardrails"}),
	}
}

type contentCheckRequest struct {
	Text string `json:"text"`
}

type contentCheckResponse struct {
	IsSafe        bool   `json:"is_safe"`
	Reason        string `json:"reason"`
	SanitizedText string `json:"sanitized_text"`
}

type instructionCheckRequest struct {
	Instructions string `json:"instructions"`
}

type instructionCheckResponse struct {
	IsValid               bool   `json:"is_valid"`
	Reason                string `json:"reason"`
	SanitizedInstructions string `json:"sanitized_instructions"`
}

// CheckContent screens feedback text. It returns the sanitized text on
// approval, the original text when the backend is unavailable, and a
// CONTENT_REJECTED error when moderation rejects the input.
func (a *Agent) CheckContent(ctx context.Context, text string) (string, error) {
	var resp contentCheckResponse
	err := a.client.PostJSON(ctx, a.baseURL+"/guardrails/content", a.headers(), contentCheckRequest{Text: text}, &resp)
	if err != nil {
		a.logger.WithError(err).Warn("content check unavailable, passing input through", nil)
		return text, nil
	}

	if !resp.IsSafe {
		return "", pipelineerrors.New(pipelineerrors.ErrCodeContentRejected, resp.Reason)
	}
	if resp.SanitizedText != "" {
		return resp.SanitizedText, nil
	}
	return text, nil
}

// ValidateInstructions screens optional processing instructions. Empty
// instructions pass without a backend call.
func (a *Agent) ValidateInstructions(ctx context.Context, instructions string) (string, error) {
	if instructions == "" {
		return "", nil
	}

	var resp instructionCheckResponse
	err := a.client.PostJSON(ctx, a.baseURL+"/guardrails/instructions", a.headers(), instructionCheckRequest{Instructions: instructions}, &resp)
	if err != nil {
		a.logger.WithError(err).Warn("instruction check unavailable, passing input through", nil)
		return instructions, nil
	}

	if !resp.IsValid {
		return "", pipelineerrors.New(pipelineerrors.ErrCodeInstructionsRejected, resp.Reason)
	}
	if resp.SanitizedInstructions != "" {
		return resp.SanitizedInstructions, nil
	}
	return instructions, nil
}

func (a *Agent) headers() map[string]string {
	if a.apiKey == "" {
		return nil
	}
	return map[string]string{"Authorization": "Bearer " + a.apiKey}
}
