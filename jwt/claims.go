package jwt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMalformedToken is returned when a token cannot be decoded.
	ErrMalformedToken = errors.New("jwt: malformed token")
	// ErrNoExpiry is returned when a token carries no exp claim.
	ErrNoExpiry = errors.New("jwt: token has no exp claim")
)

// AccessClaims is the subset of backend access-token claims the client reads.
type AccessClaims struct {
	Email        string            `json:"email,omitempty"`
	Role         string            `json:"role,omitempty"`
	SessionID    string            `json:"session_id,omitempty"`
	UserMetadata map[string]any `json:"user_metadata,omitempty"`
	jwt.RegisteredClaims
}

// Metadata returns UserMetadata flattened by [StringMetadata].
func (c *AccessClaims) Metadata() map[string]string {
	if c == nil {
		return nil
	}
	return StringMetadata(c.UserMetadata)
}

// StringMetadata keeps string values and renders booleans and numbers with
// %v. Nested objects, arrays and nulls are dropped.
func StringMetadata(in map[string]any) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		switch vv := v.(type) {
		case string:
			out[k] = vv
		case bool, float64:
			out[k] = fmt.Sprintf("%v", vv)
		}
	}
	return out
}

// Inspect decodes tokenStr without verifying its signature.
func Inspect(tokenStr string) (*AccessClaims, error) {
	tokenStr = strings.TrimSpace(tokenStr)
	if tokenStr == "" {
		return nil, ErrMalformedToken
	}

	claims := &AccessClaims{}
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	if _, _, err := parser.ParseUnverified(tokenStr, claims); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedToken, err)
	}
	return claims, nil
}

// ExpiresAt returns the exp claim of tokenStr.
func ExpiresAt(tokenStr string) (time.Time, error) {
	claims, err := Inspect(tokenStr)
	if err != nil {
		return time.Time{}, err
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, ErrNoExpiry
	}
	return claims.ExpiresAt.Time, nil
}

// Subject returns the sub claim of tokenStr, the backend user id.
func Subject(tokenStr string) (string, error) {
	claims, err := Inspect(tokenStr)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// SignHS256 issues an HS256 token for claims. The auth backend signs real
// tokens; this exists for local backends and tests.
func SignHS256(claims *AccessClaims, secret []byte) (string, error) {
	if claims == nil {
		return "", errors.New("jwt: nil claims")
	}
	if len(secret) == 0 {
		return "", errors.New("jwt: hs256 requires a secret")
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}
