// internal/api/handlers.go

// Package api exposes the feedback pipeline over HTTP: intake, result
// retrieval with cache controls, health, and metrics.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	pipelineerrors "feedback-pipeline/internal/common/errors"
	"feedback-pipeline/internal/common/logger"
	"feedback-pipeline/internal/intake"
	"feedback-pipeline/internal/retrieval"
)

// RetrievalService is the result-retrieval dependency.
type RetrievalService interface {
	GetFeedbackResults(ctx context.Context, feedbackID string, useCache bool) *retrieval.Result
	InvalidateCache(ctx context.Context, feedbackID string) bool
}

// IntakeService accepts raw submission payloads.
type IntakeService interface {
	Submit(ctx context.Context, raw []byte) (*intake.Receipt, error)
}

// Handler holds the HTTP handlers for the pipeline API.
type Handler struct {
	retrieval RetrievalService
	intake    IntakeService
	logger    logger.Logger
	now       func() time.Time
}

func NewHandler(retrievalSvc RetrievalService, intakeSvc IntakeService, log logger.Logger) *Handler {
	return &Handler{
		retrieval: retrievalSvc,
		intake:    intakeSvc,
		logger:    log.With(map[string]interface{}{"component": "api"}),
		now:       time.Now,
	}
}

// statusCodes maps retrieval statuses to HTTP codes. Unknown statuses
// default to 200.
var statusCodes = map[string]int{
	retrieval.StatusNotFound: http.StatusNotFound,
	retrieval.StatusError:    http.StatusInternalServerError,
	"processing":             http.StatusAccepted,
	"failed":                 http.StatusUnprocessableEntity,
	"completed":              http.StatusOK,
}

// performance is the per-request metadata block appended to every
// retrieval response.
type performance struct {
	CacheEnabled  bool   `json:"cache_enabled"`
	CacheHit      bool   `json:"cache_hit"`
	RetrievedFrom string `json:"retrieved_from"`
	Timestamp     string `json:"timestamp"`
}

type resultsResponse struct {
	*retrieval.Result
	Performance performance `json:"performance"`
}

type retrievalParams struct {
	feedbackID   string
	useCache     bool
	forceRefresh bool
}

// parseRetrievalParams resolves parameters with path taking precedence
// over query over body. use_cache and force_refresh resolve
// independently so the cache controls work on the path route too.
func parseRetrievalParams(r *http.Request) retrievalParams {
	params := retrievalParams{useCache: true}

	var body map[string]interface{}
	if r.Body != nil {
		if raw, err := io.ReadAll(r.Body); err == nil && len(raw) > 0 {
			json.Unmarshal(raw, &body)
		}
	}

	params.feedbackID = chi.URLParam(r, "feedback_id")
	if params.feedbackID == "" {
		params.feedbackID = r.URL.Query().Get("feedback_id")
	}
	if params.feedbackID == "" {
		if v, ok := body["feedback_id"].(string); ok {
			params.feedbackID = v
		}
	}

	// Query values compare case-insensitively so ?use_cache=True behaves
	// the same as ?use_cache=true.
	if v := r.URL.Query().Get("use_cache"); v != "" {
		params.useCache = strings.EqualFold(v, "true")
	} else if v, ok := body["use_cache"].(bool); ok {
		params.useCache = v
	}

	if v := r.URL.Query().Get("force_refresh"); v != "" {
		params.forceRefresh = strings.EqualFold(v, "true")
	} else if v, ok := body["force_refresh"].(bool); ok {
		params.forceRefresh = v
	}

	return params
}

// GetResults serves GET/POST result lookups.
func (h *Handler) GetResults(w http.ResponseWriter, r *http.Request) {
	params := parseRetrievalParams(r)

	if params.feedbackID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error": "Missing required parameter: feedback_id",
			"usage": "Provide feedback_id in path parameters, query parameters, or request body",
			"cache_options": map[string]string{
				"use_cache":     "true/false - Enable/disable cache lookup",
				"force_refresh": "true/false - Force refresh from database",
			},
		})
		return
	}

	if params.forceRefresh {
		h.retrieval.InvalidateCache(r.Context(), params.feedbackID)
		params.useCache = false
	}

	result := h.retrieval.GetFeedbackResults(r.Context(), params.feedbackID, params.useCache)

	h.logger.Info("results retrieved", map[string]interface{}{
		"feedbackId": params.feedbackID,
		"status":     result.Status,
		"cacheHit":   result.CacheHit,
	})

	code, ok := statusCodes[result.Status]
	if !ok {
		code = http.StatusOK
	}

	cacheStatus := "MISS"
	if result.CacheHit {
		cacheStatus = "HIT"
	}
	w.Header().Set("X-Cache-Status", cacheStatus)

	writeJSON(w, code, resultsResponse{
		Result: result,
		Performance: performance{
			CacheEnabled:  params.useCache,
			CacheHit:      result.CacheHit,
			RetrievedFrom: result.RetrievedFrom,
			Timestamp:     h.now().UTC().Format(time.RFC3339),
		},
	})
}

// SubmitFeedback serves POST feedback submissions.
func (h *Handler) SubmitFeedback(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unreadable request body"})
		return
	}

	receipt, err := h.intake.Submit(r.Context(), raw)
	if err != nil {
		h.writeIntakeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, receipt)
}

func (h *Handler) writeIntakeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	message := "Internal server error"

	var perr *pipelineerrors.PipelineError
	if errors.As(err, &perr) {
		message = perr.Message
		switch perr.Code {
		case pipelineerrors.ErrCodeValidationFailed:
			code = http.StatusBadRequest
		case pipelineerrors.ErrCodeContentRejected, pipelineerrors.ErrCodeInstructionsRejected:
			code = http.StatusUnprocessableEntity
		case pipelineerrors.ErrCodeDatabaseWriteFailed, pipelineerrors.ErrCodeQueueSendFailed:
			code = http.StatusServiceUnavailable
			message = "Feedback could not be accepted, please retry"
		}
		writeJSON(w, code, map[string]interface{}{
			"error": message,
			"code":  perr.Code,
		})
		return
	}

	h.logger.WithError(err).Error("intake failed", nil)
	writeJSON(w, code, map[string]string{"error": message})
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
