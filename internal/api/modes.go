package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/zadescoxp/Sahayak/internal/apperr"
	"github.com/zadescoxp/Sahayak/internal/composer"
	"github.com/zadescoxp/Sahayak/internal/profile"
	"github.com/zadescoxp/Sahayak/internal/proxy"
)

type modeRequest struct {
	Input string `json:"input" validate:"required"`
}

type modeResponse struct {
	Response string `json:"response"`
}

func handleMode(deps Deps, mode composer.Mode) handlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		claim, err := claimFrom(r)
		if err != nil {
			return err
		}

		var req modeRequest
		if err := decodeJSON(w, r, maxRequestBodySize, &req); err != nil {
			return err
		}

		p, err := loadProfile(r.Context(), deps, claim.Subject)
		if err != nil {
			return err
		}
		instructions, err := composer.Compose(mode, p)
		if err != nil {
			return err
		}

		out, err := generate(r.Context(), deps.Generators.For(string(mode)), instructions, req.Input)
		if err != nil {
			return err
		}

		writeJSON(w, http.StatusOK, modeResponse{Response: out})
		return nil
	}
}

var errEmptyReply = errors.New("model returned an empty reply")

// generate runs one model call. An empty reply counts as a provider failure.
func generate(ctx context.Context, g proxy.Generator, instructions, input string) (string, error) {
	out, err := g.Generate(ctx, instructions, input, "")
	if err == nil && strings.TrimSpace(out) == "" {
		err = errEmptyReply
	}
	if err != nil {
		return "", apperr.Upstream("model provider request failed", err)
	}
	return out, nil
}

// loadProfile fetches the caller's profile. A missing profile is a client
// precondition failure on mode routes, not a 404.
func loadProfile(ctx context.Context, deps Deps, uid string) (profile.Profile, error) {
	p, err := deps.Profiles.Get(ctx, uid)
	if errors.Is(err, profile.ErrNotFound) {
		return profile.Profile{}, apperr.Validation("user profile not found, submit your details first")
	}
	if err != nil {
		return profile.Profile{}, apperr.Internal("failed to load user profile", err)
	}
	return p, nil
}
