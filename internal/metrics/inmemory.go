package metrics

import (
	"sync/atomic"
	"time"
)

var (
	_ Recorder    = (*InMemoryRecorder)(nil)
	_ Snapshotter = (*InMemoryRecorder)(nil)
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	SwipesLiked          uint64
	SwipesDisliked       uint64
	SwipesDuplicate      uint64
	CreditRejections     uint64
	SwipeDurationCount   uint64
	SwipeDurationTotalNs int64
	MatchesCreated       uint64
	MatchEventsPublished uint64
	MatchEventsDropped   uint64
	StorageUnavailable   uint64
	RateLimited          uint64
}

// InMemoryRecorder stores metrics in memory. It backs the /metrics endpoint
// and is used directly by tests.
type InMemoryRecorder struct {
	swipesLiked          atomic.Uint64
	swipesDisliked       atomic.Uint64
	swipesDuplicate      atomic.Uint64
	creditRejections     atomic.Uint64
	swipeDurationCount   atomic.Uint64
	swipeDurationTotalNs atomic.Int64
	matchesCreated       atomic.Uint64
	matchEventsPublished atomic.Uint64
	matchEventsDropped   atomic.Uint64
	storageUnavailable   atomic.Uint64
	rateLimited          atomic.Uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	return Snapshot{
		SwipesLiked:          m.swipesLiked.Load(),
		SwipesDisliked:       m.swipesDisliked.Load(),
		SwipesDuplicate:      m.swipesDuplicate.Load(),
		CreditRejections:     m.creditRejections.Load(),
		SwipeDurationCount:   m.swipeDurationCount.Load(),
		SwipeDurationTotalNs: m.swipeDurationTotalNs.Load(),
		MatchesCreated:       m.matchesCreated.Load(),
		MatchEventsPublished: m.matchEventsPublished.Load(),
		MatchEventsDropped:   m.matchEventsDropped.Load(),
		StorageUnavailable:   m.storageUnavailable.Load(),
		RateLimited:          m.rateLimited.Load(),
	}
}

// IncSwipeRecorded increments the liked or disliked swipe counter.
func (m *InMemoryRecorder) IncSwipeRecorded(liked bool) {
	if liked {
		m.swipesLiked.Add(1)
		return
	}
	m.swipesDisliked.Add(1)
}

// IncSwipeDuplicate increments the idempotent replay counter.
func (m *InMemoryRecorder) IncSwipeDuplicate() {
	m.swipesDuplicate.Add(1)
}

// IncCreditRejected increments the insufficient credits counter.
func (m *InMemoryRecorder) IncCreditRejected() {
	m.creditRejections.Add(1)
}

// ObserveSwipeDuration records swipe processing duration.
func (m *InMemoryRecorder) ObserveSwipeDuration(duration time.Duration) {
	m.swipeDurationCount.Add(1)
	m.swipeDurationTotalNs.Add(duration.Nanoseconds())
}

// IncMatchCreated increments match created counter.
func (m *InMemoryRecorder) IncMatchCreated() {
	m.matchesCreated.Add(1)
}

// IncMatchEventPublished increments the publish counter for status.
func (m *InMemoryRecorder) IncMatchEventPublished(status string) {
	if status == "success" {
		m.matchEventsPublished.Add(1)
		return
	}
	m.matchEventsDropped.Add(1)
}

// IncStorageUnavailable increments the transient storage failure counter.
func (m *InMemoryRecorder) IncStorageUnavailable() {
	m.storageUnavailable.Add(1)
}

// IncRateLimited increments the rate limited request counter.
func (m *InMemoryRecorder) IncRateLimited() {
	m.rateLimited.Add(1)
}
