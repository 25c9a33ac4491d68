package calculator

import (
	"math"
	"sort"

	"github.com/ahmadfadadm/indostock-ai/internal/model"
)

// SentimentWindow is how many of the most recent articles are counted.
const SentimentWindow = 10

// SentimentDistribution returns the rounded share of positive, negative and
// neutral labels among the most recent SentimentWindow items. Unknown labels
// are ignored.
func SentimentDistribution(items []model.NewsItem) model.SentimentShare {
	recent := make([]model.NewsItem, len(items))
	copy(recent, items)
	sort.SliceStable(recent, func(i, j int) bool { return recent[i].PublishedAt.After(recent[j].PublishedAt) })
	if len(recent) > SentimentWindow {
		recent = recent[:SentimentWindow]
	}

	var pos, neg, neu int
	for _, n := range recent {
		switch model.NormalizeSentiment(string(n.Sentiment)) {
		case model.SentimentPositive:
			pos++
		case model.SentimentNegative:
			neg++
		case model.SentimentNeutral:
			neu++
		}
	}
	total := pos + neg + neu
	denom := float64(total)
	if denom == 0 {
		denom = 1
	}
	share := func(n int) int { return int(math.Round(float64(n) / denom * 100)) }
	return model.SentimentShare{
		Positive: share(pos),
		Negative: share(neg),
		Neutral:  share(neu),
		Total:    total,
	}
}
