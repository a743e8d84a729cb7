package api

import (
	"errors"
	"net/http"

	"github.com/zadescoxp/Sahayak/internal/apperr"
	"github.com/zadescoxp/Sahayak/internal/profile"
)

func handleStoreUser(deps Deps) handlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		claim, err := claimFrom(r)
		if err != nil {
			return err
		}

		var fields map[string]any
		if err := decodeBody(w, r, maxRequestBodySize, &fields); err != nil {
			return err
		}
		if fields == nil {
			return apperr.Validation("request body must be a JSON object")
		}

		if err := deps.Profiles.Submit(r.Context(), claim.Subject, claim.Email, fields); err != nil {
			return apperr.Internal("failed to store user data", err)
		}

		writeJSON(w, http.StatusOK, map[string]string{"message": "User data stored successfully."})
		return nil
	}
}

func handleGetUser(deps Deps) handlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		claim, err := claimFrom(r)
		if err != nil {
			return err
		}

		doc, err := deps.Profiles.Document(r.Context(), claim.Subject)
		if errors.Is(err, profile.ErrNotFound) {
			return apperr.NotFound("user not found", err)
		}
		if err != nil {
			return apperr.Internal("failed to load user data", err)
		}

		writeJSON(w, http.StatusOK, doc)
		return nil
	}
}
