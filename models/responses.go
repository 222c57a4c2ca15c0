package models

// ApplyStatus classifies the outcome of one mutation inside a batch apply.
type ApplyStatus string

const (
	// ApplyOK means the mutation was accepted and the record version advanced.
	ApplyOK ApplyStatus = "applied"

	// ApplyConflict means the base version no longer matches; Remote carries
	// the record's current state so the client can surface a field diff.
	ApplyConflict ApplyStatus = "conflict"

	// ApplyError means the mutation was rejected for a reason unrelated to
	// versioning (malformed payload, unknown operation). Not retryable.
	ApplyError ApplyStatus = "error"
)

// ApplyResult reports the per-mutation outcome of a batch apply. Results are
// returned in request order.
type ApplyResult struct {
	// MutationID echoes the mutation this result belongs to.
	MutationID string `json:"mutation_id"`

	// Status classifies the outcome.
	Status ApplyStatus `json:"status"`

	// NewVersion is the record version after a successful apply.
	NewVersion int64 `json:"new_version,omitempty"`

	// Remote is the record's current server state, populated only for
	// conflict outcomes.
	Remote *EntityRecord `json:"remote,omitempty"`

	// Error describes an ApplyError outcome.
	Error string `json:"error,omitempty"`
}

// ApplyResponse is the sync endpoint's reply to an ApplyRequest.
type ApplyResponse struct {
	// Results holds one entry per request mutation, in request order.
	Results []ApplyResult `json:"results"`

	// Length is the number of entries in Results.
	Length int `json:"length"`
}
