package model

// InsightSource records how a narrative was obtained.
type InsightSource string

const (
	InsightFromModel    InsightSource = "model"
	InsightFromFallback InsightSource = "fallback"
	InsightFromCache    InsightSource = "cache"
)

// InsightRecord is the AI narrative for one instrument within one hour bucket.
type InsightRecord struct {
	Text            string        `json:"text"`
	Sentiment       string        `json:"sentiment,omitempty"`
	Upside          string        `json:"upside,omitempty"`
	FetchedAtBucket string        `json:"fetched_at_bucket"`
	Model           string        `json:"model,omitempty"`
	Source          InsightSource `json:"source"`
}
