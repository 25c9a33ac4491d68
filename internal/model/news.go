package model

import (
	"net/url"
	"strings"
	"time"
)

// Sentiment is the classifier label attached to a news item.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

// NormalizeSentiment lower-cases a raw label; unknown labels are returned as-is.
func NormalizeSentiment(s string) Sentiment {
	return Sentiment(strings.ToLower(strings.TrimSpace(s)))
}

// NewsItem is a read-only article from the sentiment store.
type NewsItem struct {
	ID          int64     `json:"id"`
	Code        string    `json:"code"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"published_at"`
	Sentiment   Sentiment `json:"sentiment"`
	Score       float64   `json:"score"`
	Source      string    `json:"source"`
}

// SourceFromURL derives the display source (host without "www.") from an
// article URL, or "News" when it cannot be parsed.
func SourceFromURL(raw string) string {
	if raw == "" {
		return "News"
	}
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return "News"
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}
