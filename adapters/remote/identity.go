package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/AR-937/framevault-app/domain/identity"
	"github.com/AR-937/framevault-app/ports"
)

// ErrInvalidToken is returned when the auth service rejects a token.
var ErrInvalidToken = errors.New("invalid or expired token")

// IdentityVerifier implements ports.IdentityVerifier against a GoTrue
// compatible auth service (GET /auth/v1/user).
type IdentityVerifier struct {
	client *Client
}

// NewIdentityVerifier creates a new remote identity verifier.
func NewIdentityVerifier(client *Client) *IdentityVerifier {
	return &IdentityVerifier{client: client}
}

type remoteUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Verify asks the auth service who the token belongs to.
func (v *IdentityVerifier) Verify(ctx context.Context, token string) (identity.User, error) {
	var resp remoteUser
	if err := v.client.RequestAs(ctx, token, http.MethodGet, "/auth/v1/user", nil, &resp); err != nil {
		if IsUnauthorized(err) {
			return identity.User{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
		return identity.User{}, fmt.Errorf("verify token: %w", err)
	}
	if resp.ID == "" {
		return identity.User{}, ErrInvalidToken
	}
	return identity.User{ID: resp.ID, Email: resp.Email, Role: resp.Role}, nil
}

// Ensure interface compliance.
var _ ports.IdentityVerifier = (*IdentityVerifier)(nil)
