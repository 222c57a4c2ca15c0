package models

import "time"

// EntityType identifies which kind of care-log record a mutation targets.
// The set is extensible: the queue and the sync protocol treat the value as
// an opaque tag, only the merge policy distinguishes individual types.
type EntityType string

const (
	EntityEvent      EntityType = "event"
	EntityBaby       EntityType = "baby"
	EntitySettings   EntityType = "settings"
	EntityMedication EntityType = "medication"
	EntityMilestone  EntityType = "milestone"
)

// Operation is the kind of local write a mutation represents.
type Operation string

const (
	OperationCreate Operation = "create"
	OperationUpdate Operation = "update"
	OperationDelete Operation = "delete"
)

// MutationStatus is the lifecycle state of a queued mutation.
//
// Allowed transitions:
//
//	pending → in_flight → {applied | failed | conflicted}
//	failed → pending (explicit user retry)
//	in_flight → pending (retryable error, or stale entry demoted on startup)
//
// applied is terminal; conflicted is terminal until the conflict resolver
// enqueues a derived mutation in its place.
type MutationStatus string

const (
	StatusPending    MutationStatus = "pending"
	StatusInFlight   MutationStatus = "in_flight"
	StatusApplied    MutationStatus = "applied"
	StatusFailed     MutationStatus = "failed"
	StatusConflicted MutationStatus = "conflicted"
)

// FieldChanges is a field-level delta: field name → new value. Mutations
// carry deltas rather than full snapshots so that the server can merge them
// into the stored record and the client can build field-level conflict diffs.
type FieldChanges map[string]any

// QueuedMutation is a single pending local write awaiting application to the
// remote store. It is the primary persistence model of the client-side queue.
type QueuedMutation struct {
	// Seq is the append order assigned by the local queue storage.
	// FIFO-per-entity ordering is defined over this value.
	Seq int64 `json:"seq"`

	// ID is the client-generated identifier of the mutation. It is stable
	// across retries so the server can deduplicate re-sent batches.
	ID string `json:"id"`

	// EntityType tags the kind of record the mutation targets.
	EntityType EntityType `json:"entity_type"`

	// EntityID is the identifier of the target record.
	EntityID string `json:"entity_id"`

	// Operation is create, update or delete.
	Operation Operation `json:"operation"`

	// Payload holds the field-level changes. Empty for delete operations.
	Payload FieldChanges `json:"payload,omitempty"`

	// BaseVersion is the version of the entity as last known locally.
	// It is the optimistic-concurrency precondition for the remote apply:
	// zero for create operations.
	BaseVersion int64 `json:"base_version"`

	// LocalTimestamp is the client clock time the mutation was created.
	LocalTimestamp time.Time `json:"local_timestamp"`

	// Status is the current lifecycle state. See MutationStatus.
	Status MutationStatus `json:"status"`

	// AttemptCount is how many remote applies have been attempted.
	AttemptCount int `json:"attempt_count"`

	// LastError holds the most recent apply error, if any.
	LastError *string `json:"last_error,omitempty"`

	// NextAttemptAt is the earliest time the next apply may run. Backoff
	// state is kept here, per mutation, so one struggling record does not
	// throttle unrelated ones.
	NextAttemptAt time.Time `json:"next_attempt_at"`
}

// MutationInput is the caller-facing shape accepted by the queue's enqueue
// operation. ID, timestamps and status are assigned by the queue itself.
type MutationInput struct {
	EntityType  EntityType   `json:"entity_type"`
	EntityID    string       `json:"entity_id"`
	Operation   Operation    `json:"operation"`
	Payload     FieldChanges `json:"payload,omitempty"`
	BaseVersion int64        `json:"base_version"`
}

// Terminal reports whether the status needs no further sync work.
func (s MutationStatus) Terminal() bool {
	return s == StatusApplied || s == StatusConflicted
}

// TableName returns the name of the local database table
// associated with the QueuedMutation model.
func (m QueuedMutation) TableName() string {
	return "mutations"
}
