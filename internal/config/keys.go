package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kBool
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.host", typ: kString, env: "SAHAYAK_SERVER_HOST",
		apply:   func(cfg *Config, v any) { cfg.Server.Host = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.Host },
	},
	{
		key: "server.port", typ: kInt, env: "SAHAYAK_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "server.allowed_origins", typ: kString, env: "SAHAYAK_SERVER_ALLOWED_ORIGINS",
		apply:   func(cfg *Config, v any) { cfg.Server.AllowedOrigins = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.AllowedOrigins },
	},
	{
		key: "storage.data_dir", typ: kString, env: "SAHAYAK_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "log.level", typ: kString, env: "SAHAYAK_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
	{
		key: "log.format", typ: kString, env: "SAHAYAK_LOG_FORMAT",
		apply:   func(cfg *Config, v any) { cfg.Log.Format = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Format },
	},
	{
		key: "metrics.enabled", typ: kBool, env: "SAHAYAK_METRICS_ENABLED",
		apply:   func(cfg *Config, v any) { cfg.Metrics.Enabled = v.(bool) },
		extract: func(cfg Config) any { return cfg.Metrics.Enabled },
	},
	{
		key: "auth.provider", typ: kString, env: "SAHAYAK_AUTH_PROVIDER",
		apply:   func(cfg *Config, v any) { cfg.Auth.Provider = v.(string) },
		extract: func(cfg Config) any { return cfg.Auth.Provider },
	},
	{
		key: "auth.firebase_project_id", typ: kString, env: "SAHAYAK_AUTH_FIREBASE_PROJECT_ID",
		apply:   func(cfg *Config, v any) { cfg.Auth.FirebaseProjectID = v.(string) },
		extract: func(cfg Config) any { return cfg.Auth.FirebaseProjectID },
	},
	{
		key: "auth.firebase_certs_url", typ: kString, env: "SAHAYAK_AUTH_FIREBASE_CERTS_URL",
		apply:   func(cfg *Config, v any) { cfg.Auth.FirebaseCertsURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Auth.FirebaseCertsURL },
	},
	{
		key: "supabase.url", typ: kString, env: "SAHAYAK_SUPABASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Supabase.URL = v.(string) },
		extract: func(cfg Config) any { return cfg.Supabase.URL },
	},
	{
		key: "supabase.service_key", typ: kString, env: "SAHAYAK_SUPABASE_SERVICE_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Supabase.ServiceKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Supabase.ServiceKey },
	},
	{
		key: "media.bucket", typ: kString, env: "SAHAYAK_MEDIA_BUCKET",
		apply:   func(cfg *Config, v any) { cfg.Media.Bucket = v.(string) },
		extract: func(cfg Config) any { return cfg.Media.Bucket },
	},
	{
		key: "openai.base_url", typ: kString, env: "SAHAYAK_OPENAI_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.OpenAI.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.OpenAI.BaseURL },
	},
	{
		key: "openai.api_key", typ: kString, env: "SAHAYAK_OPENAI_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.OpenAI.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.OpenAI.APIKey },
	},
	{
		key: "openai.chat_model", typ: kString, env: "SAHAYAK_OPENAI_CHAT_MODEL",
		apply:   func(cfg *Config, v any) { cfg.OpenAI.ChatModel = v.(string) },
		extract: func(cfg Config) any { return cfg.OpenAI.ChatModel },
	},
	{
		key: "openai.vision_model", typ: kString, env: "SAHAYAK_OPENAI_VISION_MODEL",
		apply:   func(cfg *Config, v any) { cfg.OpenAI.VisionModel = v.(string) },
		extract: func(cfg Config) any { return cfg.OpenAI.VisionModel },
	},
	{
		key: "openai.tts_model", typ: kString, env: "SAHAYAK_OPENAI_TTS_MODEL",
		apply:   func(cfg *Config, v any) { cfg.OpenAI.TTSModel = v.(string) },
		extract: func(cfg Config) any { return cfg.OpenAI.TTSModel },
	},
	{
		key: "openai.tts_voice", typ: kString, env: "SAHAYAK_OPENAI_TTS_VOICE",
		apply:   func(cfg *Config, v any) { cfg.OpenAI.TTSVoice = v.(string) },
		extract: func(cfg Config) any { return cfg.OpenAI.TTSVoice },
	},
	{
		key: "openai.stt_model", typ: kString, env: "SAHAYAK_OPENAI_STT_MODEL",
		apply:   func(cfg *Config, v any) { cfg.OpenAI.STTModel = v.(string) },
		extract: func(cfg Config) any { return cfg.OpenAI.STTModel },
	},
	{
		key: "gemini.base_url", typ: kString, env: "SAHAYAK_GEMINI_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Gemini.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Gemini.BaseURL },
	},
	{
		key: "gemini.api_key", typ: kString, env: "SAHAYAK_GEMINI_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Gemini.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Gemini.APIKey },
	},
	{
		key: "gemini.model", typ: kString, env: "SAHAYAK_GEMINI_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Gemini.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.Gemini.Model },
	},
	{
		key: "modes.schemes_strategy", typ: kString, env: "SAHAYAK_MODES_SCHEMES_STRATEGY",
		apply:   func(cfg *Config, v any) { cfg.Modes.SchemesStrategy = v.(string) },
		extract: func(cfg Config) any { return cfg.Modes.SchemesStrategy },
	},
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kBool:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok && v != "" {
				bv, err := strconv.ParseBool(v)
				if err != nil {
					return fmt.Errorf("invalid bool for %s: %w", s.key, err)
				}
				s.apply(cfg, bv)
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		case kBool:
			if b, err := strconv.ParseBool(raw); err == nil {
				s.apply(cfg, b)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse bool from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
