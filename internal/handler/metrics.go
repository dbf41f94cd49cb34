package handler

import (
	"fmt"
	"net/http"

	"github.com/enigmatch/enigmatch/internal/metrics"
)

// MetricsHandler exposes in-memory metrics.
type MetricsHandler struct {
	snapshotter metrics.Snapshotter
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(snapshotter metrics.Snapshotter) *MetricsHandler {
	return &MetricsHandler{snapshotter: snapshotter}
}

// Metrics returns metrics in Prometheus exposition format.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.snapshotter == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	snap := h.snapshotter.Snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	writeMetric(w, "enigmatch_swipes_total{liked=\"true\"} %d\n", snap.SwipesLiked)
	writeMetric(w, "enigmatch_swipes_total{liked=\"false\"} %d\n", snap.SwipesDisliked)
	writeMetric(w, "enigmatch_swipes_duplicate_total %d\n", snap.SwipesDuplicate)
	writeMetric(w, "enigmatch_swipe_credit_rejections_total %d\n", snap.CreditRejections)
	writeMetric(w, "enigmatch_swipe_duration_seconds_count %d\n", snap.SwipeDurationCount)
	writeMetric(w, "enigmatch_swipe_duration_seconds_sum %.6f\n", float64(snap.SwipeDurationTotalNs)/1e9)

	writeMetric(w, "enigmatch_matches_created_total %d\n", snap.MatchesCreated)
	writeMetric(w, "enigmatch_match_events_published_total{status=\"success\"} %d\n", snap.MatchEventsPublished)
	writeMetric(w, "enigmatch_match_events_published_total{status=\"dropped\"} %d\n", snap.MatchEventsDropped)

	writeMetric(w, "enigmatch_storage_unavailable_total %d\n", snap.StorageUnavailable)
	writeMetric(w, "enigmatch_rate_limited_total %d\n", snap.RateLimited)
}

func writeMetric(w http.ResponseWriter, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
