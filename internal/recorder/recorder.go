package recorder

import "time"

// RefreshCycle summarises one RefreshAll run.
type RefreshCycle struct {
	ID        string // uuid
	Trigger   string // "manual", "cron", "startup"
	StartedAt time.Time
	Duration  time.Duration
	Snapshots int
	Errors    int
}

// InsightEvent records how a narrative was acquired.
type InsightEvent struct {
	Code   string
	Bucket string
	Source string // "model" or "fallback"
	Model  string
}

// Recorder persists dashboard activity for later analysis.
type Recorder interface {
	RecordRefresh(c *RefreshCycle) error
	RecordInsight(evt *InsightEvent) error
	Close() error
}
