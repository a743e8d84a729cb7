package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/zadescoxp/Sahayak/internal/apperr"
	"github.com/zadescoxp/Sahayak/internal/identity"
	"github.com/zadescoxp/Sahayak/internal/observability"
)

// Guard rejects requests without a valid bearer credential before any
// route logic runs. On success the verified claim is attached to the
// request context.
func Guard(v identity.Verifier, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := identity.ParseBearer(r.Header.Get("Authorization"))
			if err != nil {
				httpError(w, apperr.Unauthorized(err.Error(), err))
				return
			}

			claim, err := v.Verify(r.Context(), token)
			if err != nil {
				if errors.Is(err, identity.ErrProviderUnavailable) {
					logger.Error("identity provider unavailable",
						zap.String("requestID", middleware.GetReqID(r.Context())),
						zap.Error(err),
					)
					httpError(w, apperr.Upstream("identity provider unavailable", err))
					return
				}
				logger.Debug("credential rejected", zap.Error(err))
				httpError(w, apperr.Unauthorized(err.Error(), err))
				return
			}

			observability.SetUser(r.Context(), claim.Subject)
			next.ServeHTTP(w, r.WithContext(identity.WithClaim(r.Context(), claim)))
		})
	}
}

// claimFrom returns the claim Guard attached. Handlers mounted behind Guard
// always have one.
func claimFrom(r *http.Request) (identity.Claim, error) {
	c, ok := identity.ClaimFrom(r.Context())
	if !ok {
		return identity.Claim{}, apperr.Unauthorized("missing identity", nil)
	}
	return c, nil
}
