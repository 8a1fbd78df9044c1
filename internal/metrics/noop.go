package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// IncCompletion is a no-op.
func (n *NoopRecorder) IncCompletion(status string) {}

// ObserveCompletionDuration is a no-op.
func (n *NoopRecorder) ObserveCompletionDuration(duration time.Duration) {}

// IncChatCreated is a no-op.
func (n *NoopRecorder) IncChatCreated() {}

// IncChatRenamed is a no-op.
func (n *NoopRecorder) IncChatRenamed() {}

// IncChatDeleted is a no-op.
func (n *NoopRecorder) IncChatDeleted() {}

// IncTurnPersisted is a no-op.
func (n *NoopRecorder) IncTurnPersisted(role string) {}

// IncPrincipalCacheHit is a no-op.
func (n *NoopRecorder) IncPrincipalCacheHit() {}

// IncPrincipalCacheMiss is a no-op.
func (n *NoopRecorder) IncPrincipalCacheMiss() {}

// IncUsageEventPublished is a no-op.
func (n *NoopRecorder) IncUsageEventPublished(status string) {}

// IncUsageEventProcessed is a no-op.
func (n *NoopRecorder) IncUsageEventProcessed(status string) {}

// ObserveUsageBatchSize is a no-op.
func (n *NoopRecorder) ObserveUsageBatchSize(size int) {}

// ObserveUsageBatchDuration is a no-op.
func (n *NoopRecorder) ObserveUsageBatchDuration(duration time.Duration) {}

// SetUsageQueueDepth is a no-op.
func (n *NoopRecorder) SetUsageQueueDepth(depth int64) {}
