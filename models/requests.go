package models

// ApplyRequest is a batch of queued mutations sent to the sync endpoint.
// Mutations arrive in queue order; the server applies them sequentially so
// the client's FIFO-per-entity guarantee holds across the wire.
type ApplyRequest struct {
	// Mutations lists the mutations to apply, in enqueue order.
	Mutations []QueuedMutation `json:"mutations"`

	// Length is the number of entries in Mutations. Provided for
	// convenience so the server can validate the batch without iterating.
	Length int `json:"length"`
}

// RegisterRequest creates a new account.
type RegisterRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
	Name     string `json:"name"`

	// Device labels the enrolling device (e.g. "mom's phone"). It is
	// embedded in the issued token and recorded against every write for
	// conflict attribution.
	Device string `json:"device"`
}

// LoginRequest authenticates an existing account from a (possibly new)
// device.
type LoginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
	Device   string `json:"device"`
}
