// internal/retrieval/service.go

// Package retrieval serves analysis results through a two-tier lookup:
// volatile cache first, durable record store as the source of truth.
package retrieval

import (
	"context"
	"encoding/json"
	"time"

	"feedback-pipeline/internal/cache"
	"feedback-pipeline/internal/common/logger"
	"feedback-pipeline/internal/common/metrics"
	"feedback-pipeline/internal/models"
)

// RecordStore is the durable-store dependency. LatestRecord returns the
// most recent record for the id by descending timestamp, or nil with a
// nil error when no record exists — absence is a normal outcome, not a
// fault.
type RecordStore interface {
	LatestRecord(ctx context.Context, feedbackID string) (*models.FeedbackRecord, error)
}

// Service orchestrates cache lookup, store fallback, response
// normalization, and conditional cache population.
type Service struct {
	store  RecordStore
	cache  cache.Store
	ttl    time.Duration
	logger logger.Logger
}

func NewService(store RecordStore, cacheStore cache.Store, ttl time.Duration, log logger.Logger) *Service {
	return &Service{
		store:  store,
		cache:  cacheStore,
		ttl:    ttl,
		logger: log.With(map[string]interface{}{"component": "retrieval"}),
	}
}

// GetFeedbackResults retrieves results for a feedback id. It never
// returns an error: store faults surface as a structured error result
// and cache faults are absorbed entirely. On a cache hit the durable
// store is not consulted.
func (s *Service) GetFeedbackResults(ctx context.Context, feedbackID string, useCache bool) *Result {
	start := time.Now()
	result := s.getResults(ctx, feedbackID, useCache)
	metrics.RetrievalRequests.WithLabelValues(result.Status).Inc()
	metrics.RetrievalDuration.WithLabelValues(result.RetrievedFrom).Observe(time.Since(start).Seconds())
	return result
}

func (s *Service) getResults(ctx context.Context, feedbackID string, useCache bool) *Result {
	if useCache {
		if cached, ok := s.cacheLookup(ctx, feedbackID); ok {
			metrics.CacheHits.Inc()
			return cached
		}
		metrics.CacheMisses.Inc()
	}

	record, err := s.store.LatestRecord(ctx, feedbackID)
	if err != nil {
		s.logger.WithError(err).Error("feedback record lookup failed", map[string]interface{}{
			"feedbackId": feedbackID,
		})
		return &Result{
			FeedbackID:    feedbackID,
			Status:        StatusError,
			Message:       "Error retrieving results",
			CacheHit:      false,
			RetrievedFrom: SourceError,
		}
	}

	if record == nil {
		return &Result{
			FeedbackID:    feedbackID,
			Status:        StatusNotFound,
			Message:       statusMessages[StatusNotFound],
			CacheHit:      false,
			RetrievedFrom: SourceDatabase,
		}
	}

	result := s.normalize(record)
	result.CacheHit = false
	result.RetrievedFrom = SourceDatabase

	// Only completed results enter the cache: caching an in-flight or
	// failed state would serve stale status to subsequent pollers.
	if useCache && result.Status == models.StatusCompleted {
		if data, err := json.Marshal(result); err == nil {
			s.cache.Set(ctx, cache.Key(feedbackID), data, s.ttl)
		} else {
			s.logger.WithError(err).Warn("result not cacheable", map[string]interface{}{
				"feedbackId": feedbackID,
			})
		}
	}

	return result
}

func (s *Service) cacheLookup(ctx context.Context, feedbackID string) (*Result, bool) {
	data, ok := s.cache.Get(ctx, cache.Key(feedbackID))
	if !ok {
		return nil, false
	}

	var cached Result
	if err := json.Unmarshal(data, &cached); err != nil {
		s.logger.WithError(err).Warn("discarding undecodable cache entry", map[string]interface{}{
			"feedbackId": feedbackID,
		})
		s.cache.Delete(ctx, cache.Key(feedbackID))
		return nil, false
	}

	cached.CacheHit = true
	cached.RetrievedFrom = SourceCache
	return &cached, true
}

// InvalidateCache unconditionally deletes the cache entry for the id.
// Deleting an absent key succeeds; invalidation alone does not stop a
// concurrent request from repopulating the key, so a forced refresh must
// also bypass the cache on its own read.
func (s *Service) InvalidateCache(ctx context.Context, feedbackID string) bool {
	return s.cache.Delete(ctx, cache.Key(feedbackID))
}

// TTLSeconds exposes the configured cache TTL for response metadata.
func (s *Service) TTLSeconds() int {
	return int(s.ttl / time.Second)
}
