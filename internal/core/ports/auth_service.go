package ports

import (
	"context"

	"github.com/yamdb/yamdb-api/internal/core/domain"
)

// SignupResult echoes the identity a confirmation code was sent for.
type SignupResult struct {
	Username string
	Email    string
}

// AuthService covers passwordless signup and bearer token issuance.
type AuthService interface {
	// Signup finds or creates the user and mails a fresh confirmation code.
	Signup(ctx context.Context, username, email string) (*SignupResult, error)
	// ExchangeToken trades a confirmation code for an access token.
	ExchangeToken(ctx context.Context, username, code string) (string, error)
	// Authenticate resolves a bearer token to its current user record.
	Authenticate(ctx context.Context, token string) (*domain.User, error)
}
