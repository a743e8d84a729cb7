package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/supabase-community/supabase-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/zadescoxp/Sahayak/internal/api"
	"github.com/zadescoxp/Sahayak/internal/config"
	"github.com/zadescoxp/Sahayak/internal/identity"
	"github.com/zadescoxp/Sahayak/internal/media"
	"github.com/zadescoxp/Sahayak/internal/observability"
	"github.com/zadescoxp/Sahayak/internal/profile"
	"github.com/zadescoxp/Sahayak/internal/proxy"
	"github.com/zadescoxp/Sahayak/internal/storage"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runServer(ctx)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus(cmd.Context())
	},
}

func runServer(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration:\n%w", err)
	}

	logger, err := observability.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer logger.Sync()
	logger.Info(versionString())

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("closing storage", zap.Error(err))
		}
	}()

	handler, err := buildHandler(cfg, store, logger)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// buildHandler wires every collaborator the router needs from cfg.
func buildHandler(cfg config.Config, store *storage.Store, logger *zap.Logger) (http.Handler, error) {
	var (
		metrics  *observability.Collector
		recorder proxy.Recorder
	)
	if cfg.Metrics.Enabled {
		metrics = observability.NewCollector("sahayak")
		recorder = metrics
	}

	var sb *supabase.Client
	if cfg.Supabase.Configured() {
		var err error
		sb, err = supabase.NewClient(cfg.Supabase.URL, cfg.Supabase.ServiceKey, nil)
		if err != nil {
			return nil, fmt.Errorf("creating supabase client: %w", err)
		}
	}

	var verifier identity.Verifier
	switch cfg.Auth.Provider {
	case config.AuthSupabase:
		if sb == nil {
			return nil, errors.New("supabase auth selected but supabase is not configured")
		}
		verifier = identity.NewSupabaseVerifier(sb)
	default:
		verifier = identity.NewFirebaseVerifier(cfg.Auth.FirebaseProjectID, identity.NewCertSource(cfg.Auth.FirebaseCertsURL))
	}

	var uploader api.Uploader
	if sb != nil && sb.Storage != nil {
		uploader = media.NewRelay(media.NewSupabaseStore(sb.Storage, cfg.Media.Bucket))
	} else {
		logger.Warn("supabase storage not configured, upload routes will fail")
	}

	openai := proxy.NewOpenAIClient(proxy.OpenAIConfig{
		APIKey:      cfg.OpenAI.APIKey,
		BaseURL:     cfg.OpenAI.BaseURL,
		ChatModel:   cfg.OpenAI.ChatModel,
		VisionModel: cfg.OpenAI.VisionModel,
		TTSModel:    cfg.OpenAI.TTSModel,
		TTSVoice:    cfg.OpenAI.TTSVoice,
		STTModel:    cfg.OpenAI.STTModel,
	}, recorder)

	generators, err := buildStrategies(cfg, openai, recorder)
	if err != nil {
		return nil, err
	}

	return api.NewRouter(api.Deps{
		Verifier:       verifier,
		Profiles:       profile.NewManager(store, logger),
		Health:         store,
		DB:             store,
		Generators:     generators,
		Analyzer:       openai,
		Synthesizer:    openai,
		Transcriber:    openai,
		Media:          uploader,
		Logger:         logger,
		Metrics:        metrics,
		AllowedOrigins: cfg.Server.Origins(),
	}), nil
}

// buildStrategies routes schemes mode to the configured backend. Every
// other mode uses OpenAI.
func buildStrategies(cfg config.Config, openai *proxy.OpenAIClient, recorder proxy.Recorder) (proxy.Strategies, error) {
	s := proxy.Strategies{Default: openai}

	strategy, err := proxy.ParseStrategy(cfg.Modes.SchemesStrategy)
	if err != nil {
		return s, err
	}
	if strategy == proxy.StrategyGeminiSearch {
		s.ByMode = map[string]proxy.Generator{
			"schemes": proxy.NewGeminiClient(proxy.GeminiConfig{
				APIKey:  cfg.Gemini.APIKey,
				BaseURL: cfg.Gemini.BaseURL,
				Model:   cfg.Gemini.Model,
				Search:  true,
			}, recorder),
		}
	}
	return s, nil
}

func showStatus(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	base := serverURL
	if base == "" {
		base = localURL(cfg)
	}
	client := &apiClient{baseURL: base, httpClient: &http.Client{Timeout: 2 * time.Second}}

	resp, err := client.get(ctx, "/health")
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			printStatus("Server", "running at %s", base)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	printStatus("Auth provider", "%s", cfg.Auth.Provider)
	printStatus("Chat model", "%s", cfg.OpenAI.ChatModel)
	printStatus("Schemes strategy", "%s", cfg.Modes.SchemesStrategy)
	if cfg.Supabase.Configured() {
		printStatus("Media bucket", "%s", cfg.Media.Bucket)
	} else {
		printStatus("Media bucket", "not configured")
	}
	printStatus("Data dir", "%s", cfg.Storage.DataDir)

	if err := cfg.Validate(); err != nil {
		printWarning("configuration incomplete: %v", err)
	}
	return nil
}
