package config

import (
	"errors"
	"fmt"
	"strings"
)

type Config struct {
	Server   ServerConfig
	Storage  StorageConfig
	Log      LogConfig
	Metrics  MetricsConfig
	Auth     AuthConfig
	Supabase SupabaseConfig
	Media    MediaConfig
	OpenAI   OpenAIConfig
	Gemini   GeminiConfig
	Modes    ModesConfig
}

type ServerConfig struct {
	Host string
	Port int
	// AllowedOrigins is a comma-separated CORS origin list.
	AllowedOrigins string
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Origins splits AllowedOrigins into trimmed, non-empty entries.
func (s ServerConfig) Origins() []string {
	var out []string
	for _, o := range strings.Split(s.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

type StorageConfig struct {
	DataDir string
}

type LogConfig struct {
	Level  string
	Format string
}

type MetricsConfig struct {
	Enabled bool
}

const (
	AuthFirebase = "firebase"
	AuthSupabase = "supabase"
)

type AuthConfig struct {
	Provider          string
	FirebaseProjectID string
	FirebaseCertsURL  string
}

type SupabaseConfig struct {
	URL        string
	ServiceKey string
}

// Configured reports whether both the project URL and service key are set.
func (s SupabaseConfig) Configured() bool {
	return s.URL != "" && s.ServiceKey != ""
}

type MediaConfig struct {
	Bucket string
}

type OpenAIConfig struct {
	BaseURL     string
	APIKey      string
	ChatModel   string
	VisionModel string
	TTSModel    string
	TTSVoice    string
	STTModel    string
}

type GeminiConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

type ModesConfig struct {
	SchemesStrategy string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           5000,
			AllowedOrigins: "*",
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
		Auth: AuthConfig{
			Provider: AuthFirebase,
		},
		Media: MediaConfig{
			Bucket: "sahayak-media",
		},
		OpenAI: OpenAIConfig{
			ChatModel:   "gpt-4o-mini",
			VisionModel: "gpt-4o-mini",
			TTSModel:    "tts-1",
			TTSVoice:    "alloy",
			STTModel:    "whisper-1",
		},
		Gemini: GeminiConfig{
			Model: "gemini-2.0-flash",
		},
		Modes: ModesConfig{
			SchemesStrategy: "openai",
		},
	}
}

// Load reads configuration from the YAML file at FilePath, then applies
// SAHAYAK_* environment overrides. Secrets are read from the environment
// only. Load does not check required keys; call Validate before serving.
func Load() (Config, error) {
	b, err := newFileBackend(FilePath())
	if err != nil {
		return Config{}, err
	}
	return loadWith(b)
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}
	applyEnvOverrides(&cfg)

	return cfg, nil
}

// Validate reports every missing or inconsistent setting the server needs.
func (c Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.OpenAI.APIKey == "" {
		errs = append(errs, errors.New("missing required config: OpenAI API key. Set it via environment variable SAHAYAK_OPENAI_API_KEY"))
	}

	switch c.Auth.Provider {
	case AuthFirebase:
		if c.Auth.FirebaseProjectID == "" {
			errs = append(errs, errors.New("auth.firebase_project_id is required when auth.provider is firebase"))
		}
	case AuthSupabase:
		if !c.Supabase.Configured() {
			errs = append(errs, errors.New("supabase.url and SAHAYAK_SUPABASE_SERVICE_KEY are required when auth.provider is supabase"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown auth.provider %q (want %s or %s)", c.Auth.Provider, AuthFirebase, AuthSupabase))
	}

	switch c.Modes.SchemesStrategy {
	case "openai":
	case "gemini_search":
		if c.Gemini.APIKey == "" {
			errs = append(errs, errors.New("SAHAYAK_GEMINI_API_KEY is required when modes.schemes_strategy is gemini_search"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown modes.schemes_strategy %q", c.Modes.SchemesStrategy))
	}

	return errors.Join(errs...)
}
