package identity

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/supabase-community/supabase-go"
)

// userLookup resolves an access token to the owning user's id and email.
type userLookup func(token string) (id, email string, err error)

// SupabaseVerifier asks Supabase Auth who owns an access token.
type SupabaseVerifier struct {
	lookup userLookup
}

func NewSupabaseVerifier(client *supabase.Client) *SupabaseVerifier {
	return &SupabaseVerifier{lookup: func(token string) (string, string, error) {
		user, err := client.Auth.WithToken(token).GetUser()
		if err != nil {
			return "", "", err
		}
		return user.ID.String(), user.Email, nil
	}}
}

// Verify returns the Supabase user behind credential. The auth client does
// not take a context, so ctx is only checked up front.
func (v *SupabaseVerifier) Verify(ctx context.Context, credential string) (Claim, error) {
	if err := ctx.Err(); err != nil {
		return Claim{}, err
	}
	id, email, err := v.lookup(credential)
	if err != nil {
		if authUnreachable(err) {
			return Claim{}, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
		}
		return Claim{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if id == "" {
		return Claim{}, fmt.Errorf("%w: sub", ErrMissingClaim)
	}
	return Claim{Subject: id, Email: email, Provider: "supabase"}, nil
}

// authUnreachable reports whether err means Supabase Auth never judged the
// token: a transport failure, or a 5xx reported by the auth client as
// "response status code NNN".
func authUnreachable(err error) bool {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var code int
	if _, scanErr := fmt.Sscanf(err.Error(), "response status code %d", &code); scanErr == nil {
		return code >= 500
	}
	return false
}
