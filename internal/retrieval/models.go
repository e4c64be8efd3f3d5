// internal/retrieval/models.go
package retrieval

import "feedback-pipeline/internal/models"

// Statuses a retrieval can report beyond the stored record states.
const (
	StatusNotFound = "not_found"
	StatusError    = "error"
)

// Where a result was served from.
const (
	SourceCache    = "cache"
	SourceDatabase = "database"
	SourceError    = "error"
)

var statusMessages = map[string]string{
	models.StatusProcessing: "Feedback is still being processed",
	models.StatusCompleted:  "Analysis completed successfully",
	models.StatusFailed:     "Analysis failed - please try again",
	StatusNotFound:          "Feedback ID not found",
}

// Result is the envelope returned for every retrieval request. It is the
// stable external contract regardless of which stored shape produced it,
// and the exact value cached for completed results.
type Result struct {
	FeedbackID          string                     `json:"feedback_id"`
	Status              string                     `json:"status"`
	Message             string                     `json:"message"`
	CreatedAt           string                     `json:"created_at,omitempty"`
	UpdatedAt           string                     `json:"updated_at,omitempty"`
	ProcessingTimestamp string                     `json:"processing_timestamp,omitempty"`
	RequestID           string                     `json:"request_id,omitempty"`
	OriginalData        *models.FeedbackSubmission `json:"original_data,omitempty"`
	EstimatedCompletion string                     `json:"estimated_completion,omitempty"`
	Results             *NormalizedResults         `json:"results,omitempty"`
	CacheHit            bool                       `json:"cache_hit"`
	RetrievedFrom       string                     `json:"retrieved_from"`
	CacheMetadata       *CacheMetadata             `json:"cache_metadata,omitempty"`
}

// CacheMetadata tells callers whether this result is cacheable and under
// which TTL.
type CacheMetadata struct {
	Cacheable bool `json:"cacheable"`
	CacheTTL  int  `json:"cache_ttl"`
}

// NormalizedResults is the stable, tool-agnostic analysis shape.
type NormalizedResults struct {
	ExecutiveSummary          string               `json:"executive_summary,omitempty"`
	KeyInsights               *KeyInsights         `json:"key_insights,omitempty"`
	ActionableRecommendations *RecommendationGroup `json:"actionable_recommendations,omitempty"`
	AnalysisConfidence        string               `json:"analysis_confidence,omitempty"`
}

// KeyInsights carries the main points and the customer impact assessment.
type KeyInsights struct {
	MainPoints               []string `json:"main_points"`
	CustomerImpactAssessment string   `json:"customer_impact_assessment"`
}

// RecommendationGroup partitions recommendations by priority and
// department. When the input sequence is empty only Message is set.
type RecommendationGroup struct {
	Message                 string                             `json:"message,omitempty"`
	TotalRecommendations    int                                `json:"total_recommendations,omitempty"`
	ByPriority              map[string][]models.Recommendation `json:"by_priority,omitempty"`
	ByDepartment            map[string][]models.Recommendation `json:"by_department,omitempty"`
	ImmediateActions        []ImmediateAction                  `json:"immediate_actions,omitempty"`
	DetailedRecommendations []models.Recommendation            `json:"detailed_recommendations,omitempty"`
}

// ImmediateAction is a recommendation promoted into the immediate bucket
// by priority or by an urgent timeline phrase.
type ImmediateAction struct {
	Action     string `json:"action"`
	Department string `json:"department"`
	Timeline   string `json:"timeline"`
	Priority   string `json:"priority"`
}
