package handler

import (
	"fmt"
	"net/http"

	"github.com/parley/parley/internal/metrics"
)

// MetricsHandler exposes application metrics in Prometheus text format.
type MetricsHandler struct {
	snapshotter metrics.Snapshotter
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(snapshotter metrics.Snapshotter) *MetricsHandler {
	return &MetricsHandler{snapshotter: snapshotter}
}

// Metrics handles GET /metrics.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	snap := h.snapshotter.Snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	writeMetric(w, "parley_completions_total", `status="success"`, snap.CompletionSuccesses)
	writeMetric(w, "parley_completions_total", `status="error"`, snap.CompletionErrors)
	writeMetric(w, "parley_completion_duration_seconds_count", "", snap.CompletionDurationCount)
	fmt.Fprintf(w, "parley_completion_duration_seconds_sum %.6f\n", float64(snap.CompletionDurationTotalNs)/1e9)

	writeMetric(w, "parley_chats_created_total", "", snap.ChatsCreated)
	writeMetric(w, "parley_chats_renamed_total", "", snap.ChatsRenamed)
	writeMetric(w, "parley_chats_deleted_total", "", snap.ChatsDeleted)
	writeMetric(w, "parley_turns_persisted_total", `role="user"`, snap.UserTurnsPersisted)
	writeMetric(w, "parley_turns_persisted_total", `role="assistant"`, snap.AssistantTurnsPersisted)

	writeMetric(w, "parley_principal_cache_total", `result="hit"`, snap.PrincipalCacheHits)
	writeMetric(w, "parley_principal_cache_total", `result="miss"`, snap.PrincipalCacheMisses)

	writeMetric(w, "parley_usage_events_total", `stage="published"`, snap.UsageEventsPublished)
	writeMetric(w, "parley_usage_events_total", `stage="dropped"`, snap.UsageEventsDropped)
	writeMetric(w, "parley_usage_events_total", `stage="processed"`, snap.UsageEventsProcessed)
	writeMetric(w, "parley_usage_events_total", `stage="failed"`, snap.UsageEventsFailed)
}

// writeMetric writes a single counter line, with optional labels.
func writeMetric(w http.ResponseWriter, name, labels string, value uint64) {
	if labels != "" {
		fmt.Fprintf(w, "%s{%s} %d\n", name, labels, value)
	} else {
		fmt.Fprintf(w, "%s %d\n", name, value)
	}
}
