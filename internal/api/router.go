package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/zadescoxp/Sahayak/internal/composer"
	"github.com/zadescoxp/Sahayak/internal/identity"
	"github.com/zadescoxp/Sahayak/internal/media"
	"github.com/zadescoxp/Sahayak/internal/observability"
	"github.com/zadescoxp/Sahayak/internal/profile"
	"github.com/zadescoxp/Sahayak/internal/proxy"
	"github.com/zadescoxp/Sahayak/internal/storage"
)

// HealthStore persists image analyses.
type HealthStore interface {
	SaveHealthRecord(ctx context.Context, r storage.HealthRecord) error
	LatestHealthRecord(ctx context.Context, userID string) (storage.HealthRecord, error)
}

// Uploader stores a payload and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, p media.Payload, folder string) (string, error)
}

// Pinger reports whether the database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps carries every collaborator the handlers use. It is built once at
// startup and shared by all requests.
type Deps struct {
	Verifier    identity.Verifier
	Profiles    *profile.Manager
	Health      HealthStore
	DB          Pinger // optional, checked by /health
	Generators  proxy.Strategies
	Analyzer    proxy.ImageAnalyzer
	Synthesizer proxy.Synthesizer
	Transcriber proxy.Transcriber
	// Media is nil when object storage is not configured; routes that
	// upload then fail with InternalError.
	Media   Uploader
	Logger  *zap.Logger
	Metrics *observability.Collector // optional

	AllowedOrigins []string
	Now            func() time.Time
}

// NewRouter mounts every route. Everything except /health and /metrics
// sits behind Guard.
func NewRouter(deps Deps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if len(deps.AllowedOrigins) == 0 {
		deps.AllowedOrigins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.RequestLogger(deps.Logger))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware)
	}
	r.Use(recoverer(deps.Logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: deps.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", handleHealth(deps))
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(Guard(deps.Verifier, deps.Logger))

		r.Post("/store_user", handle(deps.Logger, handleStoreUser(deps)))
		r.Post("/get_user", handle(deps.Logger, handleGetUser(deps)))

		r.Post("/mode/general", handle(deps.Logger, handleMode(deps, composer.ModeGeneral)))
		r.Post("/mode/religion", handle(deps.Logger, handleMode(deps, composer.ModeReligion)))
		r.Post("/mode/schemes", handle(deps.Logger, handleMode(deps, composer.ModeSchemes)))
		r.Post("/mode/health/analyze", handle(deps.Logger, handleHealthAnalyze(deps)))
		r.Post("/mode/health/chat", handle(deps.Logger, handleHealthChat(deps)))

		r.Post("/text-to-speech", handle(deps.Logger, handleTextToSpeech(deps)))
		r.Post("/speech-to-text", handle(deps.Logger, handleSpeechToText(deps)))
	})

	return r
}

func handleHealth(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.DB != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := deps.DB.Ping(ctx); err != nil {
				deps.Logger.Error("health check failed", zap.Error(err))
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
