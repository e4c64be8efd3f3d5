// internal/guardrails/guardrails_test.go
package guardrails

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pipelineerrors "feedback-pipeline/internal/common/errors"
	"feedback-pipeline/internal/common/logger"
)

// ==========================
// Test Helper Functions
// ==========================

type fakePoster struct {
	lastURL  string
	lastBody interface{}
	response interface{}
	err      error
	calls    int
}

func (f *fakePoster) PostJSON(_ context.Context, url string, _ map[string]string, body, out interface{}) error {
	f.calls++
	f.lastURL = url
	f.lastBody = body
	if f.err != nil {
		return f.err
	}
	raw, err := json.Marshal(f.response)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func newTestAgent(t *testing.T, poster *fakePoster) *Agent {
	t.Helper()
	return NewAgent(poster, "https://moderation.internal", "test-key", logger.NewTestLogger(t))
}

// ==========================
// Content Check Tests
// ==========================

func TestCheckContent(t *testing.T) {
	tests := []struct {
		name     string
		response contentCheckResponse
		want     string
		wantCode pipelineerrors.ErrorCode
	}{
		{
			name:     "approved with sanitized text",
			response: contentCheckResponse{IsSafe: true, SanitizedText: "cleaned feedback"},
			want:     "cleaned feedback",
		},
		{
			name:     "approved without sanitized text keeps original",
			response: contentCheckResponse{IsSafe: true},
			want:     "raw feedback",
		},
		{
			name:     "rejected",
			response: contentCheckResponse{IsSafe: false, Reason: "abusive content"},
			wantCode: pipelineerrors.ErrCodeContentRejected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			poster := &fakePoster{response: tt.response}
			agent := newTestAgent(t, poster)

			got, err := agent.CheckContent(context.Background(), "raw feedback")

			if tt.wantCode != "" {
				var perr *pipelineerrors.PipelineError
				require.ErrorAs(t, err, &perr)
				assert.Equal(t, tt.wantCode, perr.Code)
				assert.False(t, perr.Retryable)
				assert.Contains(t, perr.Message, "abusive content")
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, "https://moderation.internal/guardrails/content", poster.lastURL)
		})
	}
}

func TestCheckContent_BackendUnavailableFailsOpen(t *testing.T) {
	poster := &fakePoster{err: errors.New("connection refused")}
	agent := newTestAgent(t, poster)

	got, err := agent.CheckContent(context.Background(), "raw feedback")

	require.NoError(t, err, "a moderation outage must not block intake")
	assert.Equal(t, "raw feedback", got)
}

// ==========================
// Instruction Check Tests
// ==========================

func TestValidateInstructions(t *testing.T) {
	tests := []struct {
		name     string
		response instructionCheckResponse
		want     string
		wantCode pipelineerrors.ErrorCode
	}{
		{
			name:     "valid with sanitized instructions",
			response: instructionCheckResponse{IsValid: true, SanitizedInstructions: "focus on shipping complaints"},
			want:     "focus on shipping complaints",
		},
		{
			name:     "valid without sanitized instructions keeps original",
			response: instructionCheckResponse{IsValid: true},
			want:     "focus on shipping",
		},
		{
			name:     "rejected",
			response: instructionCheckResponse{IsValid: false, Reason: "prompt injection attempt"},
			wantCode: pipelineerrors.ErrCodeInstructionsRejected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			poster := &fakePoster{response: tt.response}
			agent := newTestAgent(t, poster)

			got, err := agent.ValidateInstructions(context.Background(), "focus on shipping")

			if tt.wantCode != "" {
				var perr *pipelineerrors.PipelineError
				require.ErrorAs(t, err, &perr)
				assert.Equal(t, tt.wantCode, perr.Code)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateInstructions_EmptySkipsBackend(t *testing.T) {
	poster := &fakePoster{}
	agent := newTestAgent(t, poster)

	got, err := agent.ValidateInstructions(context.Background(), "")

	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Zero(t, poster.calls)
}

func TestValidateInstructions_BackendUnavailableFailsOpen(t *testing.T) {
	poster := &fakePoster{err: errors.New("timeout")}
	agent := newTestAgent(t, poster)

	got, err := agent.ValidateInstructions(context.Background(), "focus on shipping")

	require.NoError(t, err)
	assert.Equal(t, "focus on shipping", got)
}
