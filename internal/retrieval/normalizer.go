// internal/retrieval/normalizer.go
package retrieval

import (
	"encoding/json"
	"fmt"
	"strings"

	"feedback-pipeline/internal/models"
)

// Timeline phrases that promote a recommendation into immediate_actions
// regardless of its priority.
var immediateTimelines = map[string]bool{
	"immediate":               true,
	"urgent":                  true,
	"24 hours":                true,
	"within the next 2 weeks": true,
}

// normalize shapes a raw durable record into the stable Result contract.
// A record whose payload can be extracted reports completed; a record
// that yields no extractable payload is downgraded to failed even if its
// stored status flag said otherwise.
func (s *Service) normalize(record *models.FeedbackRecord) *Result {
	status := record.Status
	if status == "" {
		status = models.StatusCompleted
	}

	message, ok := statusMessages[status]
	if !ok {
		message = "Analysis results available"
	}

	result := &Result{
		FeedbackID:          record.FeedbackID,
		Status:              status,
		Message:             message,
		CreatedAt:           record.CreatedAt,
		UpdatedAt:           record.UpdatedAt,
		ProcessingTimestamp: record.ProcessingTimestamp,
		RequestID:           record.RequestID,
		OriginalData:        record.OriginalData,
		CacheMetadata: &CacheMetadata{
			Cacheable: status == models.StatusCompleted,
			CacheTTL:  s.TTLSeconds(),
		},
	}

	if status == models.StatusProcessing {
		result.EstimatedCompletion = "Within 2-3 minutes"
		return result
	}

	payload, ok := s.extractAnalysis(record)
	if !ok {
		result.Status = models.StatusFailed
		result.Message = "Analysis results not found or corrupted"
		result.Results = &NormalizedResults{}
		result.CacheMetadata.Cacheable = false
		return result
	}

	result.Results = structureResults(payload)
	result.Status = models.StatusCompleted
	result.Message = statusMessages[models.StatusCompleted]
	return result
}

// extractAnalysis resolves the polymorphic stored payload through an
// ordered chain of extractors; the first extractor whose candidate
// decodes wins. A candidate that is present but unparsable is logged and
// treated as absent so the chain keeps going.
func (s *Service) extractAnalysis(record *models.FeedbackRecord) (*models.AnalysisPayload, bool) {
	extractors := []struct {
		source string
		fn     func(*models.FeedbackRecord) (interface{}, bool)
	}{
		{"results.analysis", extractNestedAnalysis},
		{"results", extractInlineResults},
		{"results-string", extractResultsString},
		{"analysis", extractTopLevelAnalysis},
	}

	for _, ex := range extractors {
		candidate, found := ex.fn(record)
		if !found {
			continue
		}
		payload, err := decodePayload(candidate)
		if err != nil {
			s.logger.WithError(err).Warn("analysis payload not decodable", map[string]interface{}{
				"feedbackId": record.FeedbackID,
				"source":     ex.source,
			})
			continue
		}
		return payload, true
	}
	return nil, false
}

// results is a mapping holding an analysis key.
func extractNestedAnalysis(record *models.FeedbackRecord) (interface{}, bool) {
	m, ok := record.Results.(map[string]interface{})
	if !ok {
		return nil, false
	}
	v, ok := m["analysis"]
	return v, ok
}

// results is itself the payload mapping.
func extractInlineResults(record *models.FeedbackRecord) (interface{}, bool) {
	m, ok := record.Results.(map[string]interface{})
	if !ok {
		return nil, false
	}
	if _, ok := m["executive_summary"]; !ok {
		return nil, false
	}
	return m, true
}

// results is a JSON-encoded string.
func extractResultsString(record *models.FeedbackRecord) (interface{}, bool) {
	str, ok := record.Results.(string)
	return str, ok
}

// legacy top-level analysis field.
func extractTopLevelAnalysis(record *models.FeedbackRecord) (interface{}, bool) {
	if record.Analysis == nil {
		return nil, false
	}
	return record.Analysis, true
}

// decodePayload coerces a candidate value (JSON string or decoded
// structure) into the strict AnalysisPayload schema.
func decodePayload(candidate interface{}) (*models.AnalysisPayload, error) {
	var raw []byte
	switch v := candidate.(type) {
	case string:
		raw = []byte(v)
	case nil:
		return nil, fmt.Errorf("empty analysis candidate")
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("re-encode analysis candidate: %w", err)
		}
		raw = encoded
	}

	var payload models.AnalysisPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("decode analysis payload: %w", err)
	}
	// A payload with no populated fields counts as absent, the same as
	// an extractor finding nothing at all.
	if payloadEmpty(&payload) {
		return nil, fmt.Errorf("empty analysis payload")
	}
	return &payload, nil
}

func payloadEmpty(p *models.AnalysisPayload) bool {
	return p.ExecutiveSummary == "" &&
		len(p.KeyPoints) == 0 &&
		len(p.ActionableRecommendations) == 0 &&
		p.CustomerImpact == ""
}

// structureResults produces the external results shape. Confidence is a
// coarse binary signal: High iff the source payload carried a non-empty
// executive summary.
func structureResults(payload *models.AnalysisPayload) *NormalizedResults {
	confidence := "Low"
	if payload.ExecutiveSummary != "" {
		confidence = "High"
	}

	summary := payload.ExecutiveSummary
	if summary == "" {
		summary = "Summary not available"
	}

	impact := payload.CustomerImpact
	if impact == "" {
		impact = "Not assessed"
	}

	mainPoints := payload.KeyPoints
	if mainPoints == nil {
		mainPoints = []string{}
	}

	return &NormalizedResults{
		ExecutiveSummary: summary,
		KeyInsights: &KeyInsights{
			MainPoints:               mainPoints,
			CustomerImpactAssessment: impact,
		},
		ActionableRecommendations: groupRecommendations(payload.ActionableRecommendations),
		AnalysisConfidence:        confidence,
	}
}

// groupRecommendations partitions recommendations by priority and
// department. The input sequence is preserved unmodified under
// detailed_recommendations; defaults (medium priority, General
// department) apply only to the grouped views.
func groupRecommendations(recs []models.Recommendation) *RecommendationGroup {
	if len(recs) == 0 {
		return &RecommendationGroup{Message: "No specific recommendations generated"}
	}

	group := &RecommendationGroup{
		TotalRecommendations: len(recs),
		ByPriority: map[string][]models.Recommendation{
			"high":   {},
			"medium": {},
			"low":    {},
		},
		ByDepartment:            map[string][]models.Recommendation{},
		ImmediateActions:        []ImmediateAction{},
		DetailedRecommendations: recs,
	}

	for _, rec := range recs {
		priority := strings.ToLower(rec.Priority)
		if priority == "" {
			priority = "medium"
		}
		department := rec.Department
		if department == "" {
			department = "General"
		}

		// Unrecognized priorities are dropped from the partition but kept
		// in detailed_recommendations.
		if _, known := group.ByPriority[priority]; known {
			group.ByPriority[priority] = append(group.ByPriority[priority], rec)
		}

		group.ByDepartment[department] = append(group.ByDepartment[department], rec)

		if priority == "high" || immediateTimelines[strings.ToLower(rec.Timeline)] {
			group.ImmediateActions = append(group.ImmediateActions, ImmediateAction{
				Action:     rec.Action,
				Department: department,
				Timeline:   rec.Timeline,
				Priority:   priority,
			})
		}
	}

	return group
}
