// Package auth verifies Supabase-style access tokens locally using the
// project's JWT secret. No network round trip per request.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/AR-937/framevault-app/domain/identity"
	"github.com/AR-937/framevault-app/ports"
	"github.com/golang-jwt/jwt/v5"
)

// DefaultAudience is the audience Supabase sets on user access tokens.
const DefaultAudience = "authenticated"

// ErrNoSubject is returned for a valid token that names no user.
var ErrNoSubject = errors.New("token has no subject")

// Claims represents the access token claims.
type Claims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies HS256 access tokens.
// Thread-safe and suitable for concurrent use.
type TokenService struct {
	secret     []byte
	issuer     string
	audience   string
	expiration time.Duration
}

// NewTokenService creates a new JWT token service.
// If secret is empty, a random 32-byte secret is generated.
func NewTokenService(secret, audience string, expiration time.Duration) *TokenService {
	var secretBytes []byte
	if secret == "" {
		secretBytes = make([]byte, 32)
		rand.Read(secretBytes)
	} else {
		secretBytes = []byte(secret)
	}

	if expiration == 0 {
		expiration = time.Hour
	}

	return &TokenService{
		secret:     secretBytes,
		issuer:     "framevault",
		audience:   audience,
		expiration: expiration,
	}
}

// GenerateToken creates a signed token for the given user.
func (s *TokenService) GenerateToken(userID, email string) (string, time.Time, error) {
	now := time.Now().UTC()
	expiresAt := now.Add(s.expiration)

	claims := Claims{
		Email: email,
		Role:  DefaultAudience,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	if s.audience != "" {
		claims.Audience = jwt.ClaimStrings{s.audience}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}

	return signed, expiresAt, nil
}

// ValidateToken validates a token and returns its claims.
func (s *TokenService) ValidateToken(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if s.audience != "" {
		opts = append(opts, jwt.WithAudience(s.audience))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}

	return claims, nil
}

// Verify implements ports.IdentityVerifier.
func (s *TokenService) Verify(ctx context.Context, token string) (identity.User, error) {
	claims, err := s.ValidateToken(token)
	if err != nil {
		return identity.User{}, err
	}
	if claims.Subject == "" {
		return identity.User{}, ErrNoSubject
	}
	return identity.User{
		ID:    claims.Subject,
		Email: claims.Email,
		Role:  claims.Role,
	}, nil
}

// GenerateSecret returns 32 random bytes, hex encoded, for use as a JWT
// signing secret or downloads.idempotency_secret.
func GenerateSecret() string {
	b := make([]byte, 32)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// Ensure interface compliance.
var _ ports.IdentityVerifier = (*TokenService)(nil)
