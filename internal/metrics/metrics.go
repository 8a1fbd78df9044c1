// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Completion metrics
	IncCompletion(status string) // status: "success" or "error"
	ObserveCompletionDuration(duration time.Duration)

	// Chat management metrics
	IncChatCreated()
	IncChatRenamed()
	IncChatDeleted()
	IncTurnPersisted(role string) // role: "user" or "assistant"

	// Auth cache metrics
	IncPrincipalCacheHit()
	IncPrincipalCacheMiss()

	// Usage pipeline metrics
	IncUsageEventPublished(status string) // status: "success" or "dropped"
	IncUsageEventProcessed(status string) // status: "success", "failed", "skipped"
	ObserveUsageBatchSize(size int)
	ObserveUsageBatchDuration(duration time.Duration)
	SetUsageQueueDepth(depth int64)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
