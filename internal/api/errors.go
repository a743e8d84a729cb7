package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/zadescoxp/Sahayak/internal/apperr"
	"github.com/zadescoxp/Sahayak/internal/composer"
)

// handlerFunc is an HTTP handler that reports failure by returning an error.
type handlerFunc func(w http.ResponseWriter, r *http.Request) error

// handle adapts fn into an http.HandlerFunc. Every returned error is
// converted to the {"error","details"} body with the status of its kind.
// Causes of 5xx errors are logged, not sent.
func handle(logger *zap.Logger, fn handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := fn(w, r)
		if err == nil {
			return
		}

		e := classify(err)
		status := e.Kind.Status()
		if status >= http.StatusInternalServerError {
			logger.Error("request failed",
				zap.String("path", r.URL.Path),
				zap.String("requestID", middleware.GetReqID(r.Context())),
				zap.String("kind", string(e.Kind)),
				zap.Error(e.Err),
			)
		}
		httpError(w, e)
	}
}

// recoverer turns a handler panic into the standard InternalError body.
func recoverer(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.Error("panic recovered",
					zap.String("path", r.URL.Path),
					zap.String("requestID", middleware.GetReqID(r.Context())),
					zap.Any("panic", rec),
					zap.Stack("stack"),
				)
				httpError(w, apperr.Internal("an internal error occurred", fmt.Errorf("panic: %v", rec)))
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func classify(err error) *apperr.Error {
	var mfe *composer.MissingFieldError
	if errors.As(err, &mfe) {
		return apperr.Validation("%s", mfe.Error())
	}
	return apperr.From(err)
}

func httpError(w http.ResponseWriter, e *apperr.Error) {
	writeJSON(w, e.Kind.Status(), map[string]string{
		"error":   string(e.Kind),
		"details": e.Details,
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
