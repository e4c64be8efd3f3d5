// internal/models/analysis.go
package models

// Recommendation is one actionable item produced by the summarization
// tool. Priority and Department have defaults (medium / General) that are
// applied when grouping, not here, so detailed_recommendations can echo
// the stored items unchanged.
type Recommendation struct {
	Action     string `json:"action"`
	Priority   string `json:"priority,omitempty"`
	Department string `json:"department,omitempty"`
	Timeline   string `json:"timeline,omitempty"`
}

// AnalysisPayload is the strict schema of the summarization output, the
// payload the retrieval normalizer extracts from a durable record.
type AnalysisPayload struct {
	ExecutiveSummary          string           `json:"executive_summary"`
	KeyPoints                 []string         `json:"key_points"`
	ActionableRecommendations []Recommendation `json:"actionable_recommendations"`
	CustomerImpact            string           `json:"customer_impact"`
}

// SentimentResult is the sentiment tool output.
type SentimentResult struct {
	ToolName            string   `json:"tool_name"`
	Sentiment           string   `json:"sentiment"`
	Confidence          float64  `json:"confidence"`
	EmotionalIndicators []string `json:"emotional_indicators,omitempty"`
	Reasoning           string   `json:"sentiment_reasoning,omitempty"`
}

// TopicResult is the topic-categorization tool output.
type TopicResult struct {
	ToolName        string             `json:"tool_name"`
	PrimaryTopic    string             `json:"primary_topic"`
	SecondaryTopics []string           `json:"secondary_topics,omitempty"`
	TopicScores     map[string]float64 `json:"topic_scores,omitempty"`
	Reasoning       string             `json:"reasoning,omitempty"`
}

// KeywordInfo is one context-aware keyword with a relevance score.
type KeywordInfo struct {
	Keyword        string  `json:"keyword"`
	RelevanceScore float64 `json:"relevance_score"`
	Context        string  `json:"context,omitempty"`
	Category       string  `json:"category,omitempty"`
}

// KeywordResult is the keyword-contextualization tool output.
type KeywordResult struct {
	ToolName   string        `json:"tool_name"`
	Keywords   []KeywordInfo `json:"keywords,omitempty"`
	KeyPhrases []string      `json:"key_phrases,omitempty"`
	Entities   []string      `json:"entities,omitempty"`
}
