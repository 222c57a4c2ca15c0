package models

import "time"

// Resolution is the user's (or policy's) decision for a surfaced conflict.
type Resolution string

const (
	// ResolutionLocal re-applies the local change over the remote version.
	ResolutionLocal Resolution = "local"

	// ResolutionRemote discards the local change and adopts the remote state.
	// This is also the safe default applied when a conflict is dismissed.
	ResolutionRemote Resolution = "remote"

	// ResolutionMerge combines both sides field by field, newer timestamp
	// winning. Only supported for event entities.
	ResolutionMerge Resolution = "merge"
)

// DataConflict packages both sides of a version mismatch for user resolution.
// Conflicts are transient: they live from detection until a resolution choice
// and are never persisted beyond the owning resolver.
type DataConflict struct {
	// ID uniquely identifies the conflict within the resolver.
	ID string `json:"id"`

	// MutationID points at the queued mutation whose apply was rejected.
	MutationID string `json:"mutation_id"`

	// EntityType and EntityID identify the record both sides disagree on.
	EntityType EntityType `json:"entity_type"`
	EntityID   string     `json:"entity_id"`

	// LocalData is the local field-level delta that failed to apply.
	LocalData FieldChanges `json:"local_data"`

	// RemoteData is the remote record's current values for the fields the
	// local delta touches.
	RemoteData FieldChanges `json:"remote_data"`

	// LocalTimestamp is when the local change was made;
	// RemoteTimestamp is the remote record's last update time.
	LocalTimestamp  time.Time `json:"local_timestamp"`
	RemoteTimestamp time.Time `json:"remote_timestamp"`

	// RemoteVersion is the remote record's current version. A force
	// overwrite (local resolution) uses it as the fresh base version.
	RemoteVersion int64 `json:"remote_version"`

	// RemoteUser attributes the competing write to the device or account
	// label that made it (e.g. "dad's phone").
	RemoteUser string `json:"remote_user"`
}

// ConflictOutcome describes what a resolution did, so callers can update
// their local caches without re-reading the queue.
type ConflictOutcome struct {
	// Resolution echoes the applied choice.
	Resolution Resolution `json:"resolution"`

	// AdoptedFields holds the field values the local state should now
	// reflect: remote values for a remote resolution, the merged set for
	// merge, nil for local (local state already matches).
	AdoptedFields FieldChanges `json:"adopted_fields,omitempty"`

	// EnqueuedMutationID is the id of the derived mutation created by a
	// local or merge resolution, empty for remote.
	EnqueuedMutationID string `json:"enqueued_mutation_id,omitempty"`
}
