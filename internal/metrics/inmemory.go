package metrics

import (
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	CompletionSuccesses       uint64
	CompletionErrors          uint64
	CompletionDurationCount   uint64
	CompletionDurationTotalNs int64
	ChatsCreated              uint64
	ChatsRenamed              uint64
	ChatsDeleted              uint64
	UserTurnsPersisted        uint64
	AssistantTurnsPersisted   uint64
	PrincipalCacheHits        uint64
	PrincipalCacheMisses      uint64
	UsageEventsPublished      uint64
	UsageEventsDropped        uint64
	UsageEventsProcessed      uint64
	UsageEventsFailed         uint64
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	completionSuccesses       uint64
	completionErrors          uint64
	completionDurationCount   uint64
	completionDurationTotalNs int64
	chatsCreated              uint64
	chatsRenamed              uint64
	chatsDeleted              uint64
	userTurnsPersisted        uint64
	assistantTurnsPersisted   uint64
	principalCacheHits        uint64
	principalCacheMisses      uint64
	usageEventsPublished      uint64
	usageEventsDropped        uint64
	usageEventsProcessed      uint64
	usageEventsFailed         uint64
	usageQueueDepth           int64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	return Snapshot{
		CompletionSuccesses:       atomic.LoadUint64(&m.completionSuccesses),
		CompletionErrors:          atomic.LoadUint64(&m.completionErrors),
		CompletionDurationCount:   atomic.LoadUint64(&m.completionDurationCount),
		CompletionDurationTotalNs: atomic.LoadInt64(&m.completionDurationTotalNs),
		ChatsCreated:              atomic.LoadUint64(&m.chatsCreated),
		ChatsRenamed:              atomic.LoadUint64(&m.chatsRenamed),
		ChatsDeleted:              atomic.LoadUint64(&m.chatsDeleted),
		UserTurnsPersisted:        atomic.LoadUint64(&m.userTurnsPersisted),
		AssistantTurnsPersisted:   atomic.LoadUint64(&m.assistantTurnsPersisted),
		PrincipalCacheHits:        atomic.LoadUint64(&m.principalCacheHits),
		PrincipalCacheMisses:      atomic.LoadUint64(&m.principalCacheMisses),
		UsageEventsPublished:      atomic.LoadUint64(&m.usageEventsPublished),
		UsageEventsDropped:        atomic.LoadUint64(&m.usageEventsDropped),
		UsageEventsProcessed:      atomic.LoadUint64(&m.usageEventsProcessed),
		UsageEventsFailed:         atomic.LoadUint64(&m.usageEventsFailed),
	}
}

// IncCompletion increments the completion counter for a status.
func (m *InMemoryRecorder) IncCompletion(status string) {
	if status == "success" {
		atomic.AddUint64(&m.completionSuccesses, 1)
	} else {
		atomic.AddUint64(&m.completionErrors, 1)
	}
}

// ObserveCompletionDuration records completion duration.
func (m *InMemoryRecorder) ObserveCompletionDuration(duration time.Duration) {
	atomic.AddUint64(&m.completionDurationCount, 1)
	atomic.AddInt64(&m.completionDurationTotalNs, duration.Nanoseconds())
}

// IncChatCreated increments chat created counter.
func (m *InMemoryRecorder) IncChatCreated() {
	atomic.AddUint64(&m.chatsCreated, 1)
}

// IncChatRenamed increments chat renamed counter.
func (m *InMemoryRecorder) IncChatRenamed() {
	atomic.AddUint64(&m.chatsRenamed, 1)
}

// IncChatDeleted increments chat deleted counter.
func (m *InMemoryRecorder) IncChatDeleted() {
	atomic.AddUint64(&m.chatsDeleted, 1)
}

// IncTurnPersisted increments the persisted turn counter for a role.
func (m *InMemoryRecorder) IncTurnPersisted(role string) {
	if role == "assistant" {
		atomic.AddUint64(&m.assistantTurnsPersisted, 1)
	} else {
		atomic.AddUint64(&m.userTurnsPersisted, 1)
	}
}

// IncPrincipalCacheHit increments auth cache hit counter.
func (m *InMemoryRecorder) IncPrincipalCacheHit() {
	atomic.AddUint64(&m.principalCacheHits, 1)
}

// IncPrincipalCacheMiss increments auth cache miss counter.
func (m *InMemoryRecorder) IncPrincipalCacheMiss() {
	atomic.AddUint64(&m.principalCacheMisses, 1)
}

// IncUsageEventPublished increments published counter by status.
func (m *InMemoryRecorder) IncUsageEventPublished(status string) {
	if status == "success" {
		atomic.AddUint64(&m.usageEventsPublished, 1)
	} else {
		atomic.AddUint64(&m.usageEventsDropped, 1)
	}
}

// IncUsageEventProcessed increments processed counter by status.
func (m *InMemoryRecorder) IncUsageEventProcessed(status string) {
	if status == "success" {
		atomic.AddUint64(&m.usageEventsProcessed, 1)
	} else {
		atomic.AddUint64(&m.usageEventsFailed, 1)
	}
}

// ObserveUsageBatchSize is tracked only via processed counters.
func (m *InMemoryRecorder) ObserveUsageBatchSize(size int) {}

// ObserveUsageBatchDuration is tracked only via processed counters.
func (m *InMemoryRecorder) ObserveUsageBatchDuration(duration time.Duration) {}

// SetUsageQueueDepth records the current stream depth.
func (m *InMemoryRecorder) SetUsageQueueDepth(depth int64) {
	atomic.StoreInt64(&m.usageQueueDepth, depth)
}
