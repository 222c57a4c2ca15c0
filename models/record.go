package models

import "time"

// EntityRecord is the server-side persistence model for a single care-log
// record. Field values are stored as an opaque JSON object so every entity
// type shares one table and one optimistic-concurrency scheme.
type EntityRecord struct {
	// UserID is the account the record belongs to.
	UserID int64 `json:"user_id"`

	// EntityType tags the kind of record (event, baby, settings, ...).
	EntityType EntityType `json:"entity_type"`

	// EntityID is the client-generated identifier of the record.
	EntityID string `json:"entity_id"`

	// Fields holds the record's current field values.
	Fields FieldChanges `json:"fields"`

	// Version is incremented on every accepted write. Writes must present
	// the current value as their precondition.
	Version int64 `json:"version"`

	// Deleted marks a soft-deleted record. Deleted records keep their
	// version so late mutations from offline devices still conflict
	// deterministically instead of resurrecting the record.
	Deleted bool `json:"deleted"`

	// CreatedAt and UpdatedAt are server clock timestamps.
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// UpdatedBy is the device label of the writer that produced the
	// current version. Surfaced to other devices as conflict attribution.
	UpdatedBy string `json:"updated_by"`
}

// TableName returns the name of the database table
// associated with the EntityRecord model.
func (r EntityRecord) TableName() string {
	return "records"
}

// RecordFilter narrows a record listing. Zero-value fields are ignored.
type RecordFilter struct {
	// EntityType restricts the listing to one kind of record.
	EntityType EntityType

	// Since restricts the listing to records updated at or after the
	// given instant. Used by devices catching up after time offline.
	Since time.Time
}
