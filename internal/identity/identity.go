// Package identity verifies bearer credentials against an external identity
// provider and carries the verified claim through the request context.
package identity

import (
	"context"
	"errors"
	"strings"
)

// Header parsing errors. Their messages are returned to clients verbatim.
var (
	ErrMissingHeader = errors.New("missing authorization header")
	ErrHeaderFormat  = errors.New("invalid authorization header format")
	ErrEmptyToken    = errors.New("empty token")
)

// Token errors
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
	ErrMissingClaim = errors.New("missing required claim")
	// ErrProviderUnavailable means the provider could not be reached, so the
	// credential was neither accepted nor rejected.
	ErrProviderUnavailable = errors.New("identity provider unavailable")
)

// Claim is the verified identity behind a credential. It lives only for the
// duration of one request.
type Claim struct {
	Subject  string
	Email    string
	Provider string
}

// Verifier validates an opaque credential. It must not touch any store.
type Verifier interface {
	Verify(ctx context.Context, credential string) (Claim, error)
}

// ParseBearer extracts the token from an Authorization header value.
func ParseBearer(header string) (string, error) {
	if header == "" {
		return "", ErrMissingHeader
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return "", ErrHeaderFormat
	}
	if strings.TrimSpace(token) == "" {
		return "", ErrEmptyToken
	}
	return strings.TrimSpace(token), nil
}

type claimKey struct{}

// WithClaim returns a new context with c attached.
func WithClaim(ctx context.Context, c Claim) context.Context {
	return context.WithValue(ctx, claimKey{}, c)
}

// ClaimFrom retrieves the Claim attached by WithClaim.
func ClaimFrom(ctx context.Context) (Claim, bool) {
	c, ok := ctx.Value(claimKey{}).(Claim)
	return c, ok
}
