package recorder

var _ Recorder = (*NoopRecorder)(nil)

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordRefresh(_ *RefreshCycle) error { return nil }
func (n *NoopRecorder) RecordInsight(_ *InsightEvent) error { return nil }
func (n *NoopRecorder) Close() error                        { return nil }
