package models

import "time"

// User represents a caregiver account. One account is shared by every device
// in the household; individual devices are distinguished by the device label
// carried in their tokens, not by separate accounts.
type User struct {
	// UserID is the internal unique identifier of the user.
	// It is not exposed via JSON and is used only at the persistence layer.
	UserID int64 `json:"-"`

	// Login is the unique user login identifier.
	Login string `json:"login"`

	// Name is the display name of the caregiver.
	Name string `json:"name"`

	// PasswordHash stores the bcrypt hash of the account password.
	// It is never exposed via JSON.
	PasswordHash string `json:"-"`

	// CreatedAt is the timestamp when the account was created.
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the name of the database table
// associated with the User model.
func (u User) TableName() string {
	return "users"
}
