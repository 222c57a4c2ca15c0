package models

import "time"

// SyncHistoryLimit bounds the sync history ring kept by the engine.
const SyncHistoryLimit = 20

// SyncHistoryEntry records the outcome of one completed drain cycle.
type SyncHistoryEntry struct {
	// Timestamp is when the drain finished.
	Timestamp time.Time `json:"timestamp"`

	// Count is how many mutations the drain attempted.
	Count int `json:"count"`

	// Success is false when the drain hit a permanent failure or conflict.
	Success bool `json:"success"`
}

// SyncHealthSnapshot is a derived, read-only view of queue and engine state
// for dashboards. It is computed on demand and never persisted.
type SyncHealthSnapshot struct {
	// PendingCount is the number of mutations still awaiting apply
	// (pending or in_flight).
	PendingCount int `json:"pending_count"`

	// FailedCount is the number of mutations that exhausted their retries.
	FailedCount int `json:"failed_count"`

	// ConflictedCount is the number of mutations awaiting user resolution.
	ConflictedCount int `json:"conflicted_count"`

	// AppliedCount is the number of mutations applied since the queue was
	// created. Together with the other counters it satisfies the
	// conservation property: every enqueued mutation is accounted for.
	AppliedCount int `json:"applied_count"`

	// PendingByType breaks PendingCount down per entity type.
	PendingByType map[EntityType]int `json:"pending_by_type"`

	// LastSyncTime is when the engine last completed a drain, zero if it
	// has never drained.
	LastSyncTime time.Time `json:"last_sync_time"`

	// IsSyncing reports whether a drain is currently running.
	IsSyncing bool `json:"is_syncing"`

	// SyncHistory lists recent drain outcomes, most recent first, capped
	// at SyncHistoryLimit entries.
	SyncHistory []SyncHistoryEntry `json:"sync_history"`
}
