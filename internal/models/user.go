package models

import (
	"time"

	"github.com/google/uuid"
)

// User is a registered account. Users own groups; group members are not
// required to be users.
type User struct {
	// ID is the unique identifier for the user (UUID format).
	ID string

	// Email is unique and used for login.
	Email string

	// DisplayName is shown in the UI.
	DisplayName string

	// Phone is optional.
	Phone string

	// PasswordHash is the bcrypt hash of the user's password.
	PasswordHash string

	// CreatedAt and UpdatedAt are Unix timestamps.
	CreatedAt int64
	UpdatedAt int64
}

// NewUser creates a user with a fresh ID and timestamps.
func NewUser(email, displayName, passwordHash string) *User {
	now := time.Now().Unix()
	return &User{
		ID:           uuid.New().String(),
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
