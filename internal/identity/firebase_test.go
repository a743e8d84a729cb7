package identity

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testProject = "sahayak-test"

var testNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

type staticKeys struct {
	keys map[string]*rsa.PublicKey
	err  error
}

func (s staticKeys) Keys(context.Context) (map[string]*rsa.PublicKey, error) {
	return s.keys, s.err
}

func newTestKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

func validClaims(sub string) jwt.MapClaims {
	return jwt.MapClaims{
		"iss":   firebaseIssuerPrefix + testProject,
		"aud":   testProject,
		"sub":   sub,
		"email": sub + "@example.com",
		"iat":   testNow.Add(-time.Minute).Unix(),
		"exp":   testNow.Add(time.Hour).Unix(),
	}
}

func sign(t *testing.T, key *rsa.PrivateKey, kid string, claims jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	if kid != "" {
		tok.Header["kid"] = kid
	}
	s, err := tok.SignedString(key)
	require.NoError(t, err)
	return s
}

func newTestVerifier(key *rsa.PrivateKey) *FirebaseVerifier {
	v := NewFirebaseVerifier(testProject, staticKeys{keys: map[string]*rsa.PublicKey{"k1": &key.PublicKey}})
	v.now = func() time.Time { return testNow }
	return v
}

func TestFirebaseVerify_ReturnsEncodedSubject(t *testing.T) {
	key := newTestKey(t)
	v := newTestVerifier(key)

	for _, sub := range []string{"U1", "abcDEF123", "user-with-dashes"} {
		claim, err := v.Verify(context.Background(), sign(t, key, "k1", validClaims(sub)))
		require.NoError(t, err, sub)
		assert.Equal(t, sub, claim.Subject)
		assert.Equal(t, sub+"@example.com", claim.Email)
		assert.Equal(t, "firebase", claim.Provider)
	}
}

func TestFirebaseVerify_Rejects(t *testing.T) {
	key := newTestKey(t)
	other := newTestKey(t)
	v := newTestVerifier(key)

	mutate := func(f func(c jwt.MapClaims)) jwt.MapClaims {
		c := validClaims("U1")
		f(c)
		return c
	}

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{"expired", sign(t, key, "k1", mutate(func(c jwt.MapClaims) { c["exp"] = testNow.Add(-time.Second).Unix() })), ErrExpiredToken},
		{"missing exp", sign(t, key, "k1", mutate(func(c jwt.MapClaims) { delete(c, "exp") })), ErrInvalidToken},
		{"wrong audience", sign(t, key, "k1", mutate(func(c jwt.MapClaims) { c["aud"] = "other-project" })), ErrInvalidToken},
		{"wrong issuer", sign(t, key, "k1", mutate(func(c jwt.MapClaims) { c["iss"] = "https://evil.example" })), ErrInvalidToken},
		{"issued in future", sign(t, key, "k1", mutate(func(c jwt.MapClaims) { c["iat"] = testNow.Add(time.Hour).Unix() })), ErrInvalidToken},
		{"empty subject", sign(t, key, "k1", mutate(func(c jwt.MapClaims) { c["sub"] = "" })), ErrMissingClaim},
		{"missing kid", sign(t, key, "", validClaims("U1")), ErrMissingClaim},
		{"unknown kid", sign(t, key, "k9", validClaims("U1")), ErrInvalidToken},
		{"wrong signer", sign(t, other, "k1", validClaims("U1")), ErrInvalidToken},
		{"garbage", "not-a-jwt", ErrInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Verify(context.Background(), tt.token)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestFirebaseVerify_RejectsHS256(t *testing.T) {
	key := newTestKey(t)
	v := newTestVerifier(key)

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, validClaims("U1"))
	tok.Header["kid"] = "k1"
	s, err := tok.SignedString([]byte("shared-secret"))
	require.NoError(t, err)

	_, err = v.Verify(context.Background(), s)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestFirebaseVerify_KeySourceUnavailable(t *testing.T) {
	key := newTestKey(t)
	v := NewFirebaseVerifier(testProject, staticKeys{err: errors.Join(ErrProviderUnavailable, errors.New("dial tcp"))})
	v.now = func() time.Time { return testNow }

	_, err := v.Verify(context.Background(), sign(t, key, "k1", validClaims("U1")))
	assert.ErrorIs(t, err, ErrProviderUnavailable)
	assert.NotErrorIs(t, err, ErrInvalidToken)
}
