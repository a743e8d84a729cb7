package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const firebaseIssuerPrefix = "https://securetoken.google.com/"

type firebaseClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// FirebaseVerifier validates Firebase ID tokens issued for one project.
type FirebaseVerifier struct {
	projectID string
	keys      KeySource
	now       func() time.Time
}

func NewFirebaseVerifier(projectID string, keys KeySource) *FirebaseVerifier {
	return &FirebaseVerifier{projectID: projectID, keys: keys, now: time.Now}
}

// Verify checks signature, issuer, audience, expiry, issue time and subject.
func (v *FirebaseVerifier) Verify(ctx context.Context, credential string) (Claim, error) {
	claims := &firebaseClaims{}
	_, err := jwt.ParseWithClaims(credential, claims,
		func(t *jwt.Token) (interface{}, error) {
			kid, _ := t.Header["kid"].(string)
			if kid == "" {
				return nil, fmt.Errorf("%w: kid", ErrMissingClaim)
			}
			keys, err := v.keys.Keys(ctx)
			if err != nil {
				return nil, err
			}
			key, ok := keys[kid]
			if !ok {
				return nil, fmt.Errorf("%w: unknown key id %q", ErrInvalidToken, kid)
			}
			return key, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(firebaseIssuerPrefix+v.projectID),
		jwt.WithAudience(v.projectID),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		switch {
		case errors.Is(err, ErrProviderUnavailable):
			return Claim{}, err
		case errors.Is(err, jwt.ErrTokenExpired):
			return Claim{}, ErrExpiredToken
		case errors.Is(err, ErrMissingClaim):
			return Claim{}, ErrMissingClaim
		}
		return Claim{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims.Subject == "" || len(claims.Subject) > 128 {
		return Claim{}, fmt.Errorf("%w: sub", ErrMissingClaim)
	}
	return Claim{Subject: claims.Subject, Email: claims.Email, Provider: "firebase"}, nil
}
