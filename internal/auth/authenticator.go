// Package auth handles account credentials and session tokens.
package auth

import (
	"context"

	"github.com/yuv5120/SplitPay/internal/models"
)

// Registration holds the fields collected when an account is created.
type Registration struct {
	Email       string
	DisplayName string
	Phone       string
	Credential  string
}

// Authenticator defines the interface for authentication implementations.
// Password login is the only method today; the service layer only sees this interface.
type Authenticator interface {
	// Register creates a new user account. The credential format depends on
	// the implementation.
	Register(ctx context.Context, reg Registration) (*models.User, error)

	// Authenticate verifies the user's credentials and returns the user if successful.
	Authenticate(ctx context.Context, email, credential string) (*models.User, error)

	// ValidateCredential checks if the credential meets the implementation's requirements.
	ValidateCredential(credential string) error
}
