// Package identity provides caller identity types and credential parsing.
package identity

import "strings"

// User is an authenticated caller as resolved by an identity verifier.
type User struct {
	ID    string
	Email string
	Role  string
}

const bearerPrefix = "Bearer "

// ParseBearer extracts the token from an Authorization header value of the
// form "Bearer <token>". The scheme is matched exactly. It returns false
// when the header is missing, uses another scheme, or carries an empty token.
func ParseBearer(header string) (string, bool) {
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(bearerPrefix):])
	if token == "" {
		return "", false
	}
	return token, true
}
