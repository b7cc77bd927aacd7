package auth_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/AR-937/framevault-app/adapters/auth"
	"github.com/golang-jwt/jwt/v5"
)

func TestNewTokenService_EmptySecret(t *testing.T) {
	svc := auth.NewTokenService("", "", time.Hour)

	// Should still round-trip with the generated secret
	token, _, err := svc.GenerateToken("user1", "test@example.com")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	if _, err := svc.Verify(context.Background(), token); err != nil {
		t.Errorf("Verify failed: %v", err)
	}
}

func TestNewTokenService_DefaultExpiration(t *testing.T) {
	svc := auth.NewTokenService("secret", "", 0)

	_, expiresAt, err := svc.GenerateToken("user1", "test@example.com")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	expectedExpiry := time.Now().Add(time.Hour)
	if expiresAt.Before(expectedExpiry.Add(-time.Minute)) || expiresAt.After(expectedExpiry.Add(time.Minute)) {
		t.Errorf("expiration should be ~1h, got %v", expiresAt)
	}
}

func TestTokenService_Verify(t *testing.T) {
	svc := auth.NewTokenService("test-secret", auth.DefaultAudience, time.Hour)

	token, _, err := svc.GenerateToken("user-123", "user@example.com")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	if strings.Count(token, ".") != 2 {
		t.Errorf("token should have 3 segments: %s", token)
	}

	user, err := svc.Verify(context.Background(), token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if user.ID != "user-123" {
		t.Errorf("ID = %s, want user-123", user.ID)
	}
	if user.Email != "user@example.com" {
		t.Errorf("Email = %s, want user@example.com", user.Email)
	}
	if user.Role != auth.DefaultAudience {
		t.Errorf("Role = %s, want %s", user.Role, auth.DefaultAudience)
	}
}

func TestTokenService_VerifyRejects(t *testing.T) {
	svc := auth.NewTokenService("test-secret", auth.DefaultAudience, time.Hour)
	ctx := context.Background()

	sign := func(claims jwt.Claims, method jwt.SigningMethod, key any) string {
		t.Helper()
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return s
	}
	future := jwt.NewNumericDate(time.Now().Add(time.Hour))
	past := jwt.NewNumericDate(time.Now().Add(-time.Hour))
	aud := jwt.ClaimStrings{auth.DefaultAudience}

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"wrong secret", sign(auth.Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "u", Audience: aud, ExpiresAt: future}}, jwt.SigningMethodHS256, []byte("other"))},
		{"expired", sign(auth.Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "u", Audience: aud, ExpiresAt: past}}, jwt.SigningMethodHS256, []byte("test-secret"))},
		{"no expiry", sign(auth.Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "u", Audience: aud}}, jwt.SigningMethodHS256, []byte("test-secret"))},
		{"wrong audience", sign(auth.Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "u", Audience: jwt.ClaimStrings{"anon"}, ExpiresAt: future}}, jwt.SigningMethodHS256, []byte("test-secret"))},
		{"other HMAC size", sign(auth.Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "u", Audience: aud, ExpiresAt: future}}, jwt.SigningMethodHS512, []byte("test-secret"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Verify(ctx, tt.token); err == nil {
				t.Error("Verify should fail")
			}
		})
	}
}

func TestTokenService_VerifyNoSubject(t *testing.T) {
	svc := auth.NewTokenService("test-secret", "", time.Hour)

	claims := auth.Claims{RegisteredClaims: jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := svc.Verify(context.Background(), token); !errors.Is(err, auth.ErrNoSubject) {
		t.Errorf("Verify error = %v, want ErrNoSubject", err)
	}
}

func TestGenerateSecret(t *testing.T) {
	s1 := auth.GenerateSecret()
	s2 := auth.GenerateSecret()
	if len(s1) != 64 {
		t.Errorf("len = %d, want 64", len(s1))
	}
	if s1 == s2 {
		t.Error("secrets should differ")
	}
}
