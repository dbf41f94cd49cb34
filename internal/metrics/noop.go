package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// IncSwipeRecorded is a no-op.
func (n *NoopRecorder) IncSwipeRecorded(liked bool) {}

// IncSwipeDuplicate is a no-op.
func (n *NoopRecorder) IncSwipeDuplicate() {}

// IncCreditRejected is a no-op.
func (n *NoopRecorder) IncCreditRejected() {}

// ObserveSwipeDuration is a no-op.
func (n *NoopRecorder) ObserveSwipeDuration(duration time.Duration) {}

// IncMatchCreated is a no-op.
func (n *NoopRecorder) IncMatchCreated() {}

// IncMatchEventPublished is a no-op.
func (n *NoopRecorder) IncMatchEventPublished(status string) {}

// IncStorageUnavailable is a no-op.
func (n *NoopRecorder) IncStorageUnavailable() {}

// IncRateLimited is a no-op.
func (n *NoopRecorder) IncRateLimited() {}
