// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Swipe metrics
	IncSwipeRecorded(liked bool)
	IncSwipeDuplicate()
	IncCreditRejected()
	ObserveSwipeDuration(duration time.Duration)

	// Match metrics
	IncMatchCreated()
	IncMatchEventPublished(status string) // status: "success" or "dropped"

	// Infrastructure
	IncStorageUnavailable()
	IncRateLimited()
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
