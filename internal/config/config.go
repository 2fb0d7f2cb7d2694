package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	HTTPAddr             string
	Env                  string
	DatabaseURL          string
	CORSAllowedOrigins   []string
	CORSAllowCredentials bool

	JWTSecret string

	GeminiAPIKey string
	GeminiModel  string

	RedisURL       string
	SearchCacheTTL time.Duration

	SessionIdleTimeout time.Duration

	PublicBaseURL string
	GeocoderURL   string

	OTLPEndpoint string
}

var (
	ErrMissingDatabaseURL  = errors.New("DATABASE_URL is required")
	ErrMissingJWTSecret    = errors.New("JWT_SECRET is required")
	ErrMissingGeminiAPIKey = errors.New("GEMINI_API_KEY is required")
)

const (
	DefaultHTTPAddr       = ":8080"
	DefaultEnv            = "development"
	DefaultGeminiModel    = "gemini-2.5-flash"
	DefaultSearchCacheTTL = 24 * time.Hour
	DefaultSessionIdle    = 2 * time.Hour
	DefaultGeocoderURL    = "https://nominatim.openstreetmap.org"
	DefaultPublicBaseURL  = "http://localhost:8080"
)

// Load reads .env, then the optional YAML file at path, then the
// environment. Environment values win over file values.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	cfg := Config{
		HTTPAddr:             get("HTTP_ADDR", k, "http_addr", DefaultHTTPAddr),
		Env:                  get("ENV", k, "env", DefaultEnv),
		DatabaseURL:          get("DATABASE_URL", k, "database_url", ""),
		CORSAllowCredentials: get("CORS_ALLOW_CREDENTIALS", k, "cors_allow_credentials", "false") == "true",
		JWTSecret:            get("JWT_SECRET", k, "jwt_secret", ""),
		GeminiAPIKey:         get("GEMINI_API_KEY", k, "gemini_api_key", ""),
		GeminiModel:          get("GEMINI_MODEL", k, "gemini_model", DefaultGeminiModel),
		RedisURL:             get("REDIS_URL", k, "redis_url", ""),
		PublicBaseURL:        get("PUBLIC_BASE_URL", k, "public_base_url", DefaultPublicBaseURL),
		GeocoderURL:          get("GEOCODER_URL", k, "geocoder_url", DefaultGeocoderURL),
		OTLPEndpoint:         get("OTEL_EXPORTER_OTLP_ENDPOINT", k, "otlp_endpoint", ""),
	}

	origins := strings.Split(get("CORS_ALLOWED_ORIGINS", k, "cors_allowed_origins", ""), ",")
	for _, o := range origins {
		o = strings.TrimSpace(o)
		if o != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, o)
		}
	}

	var err error
	if cfg.SearchCacheTTL, err = duration("SEARCH_CACHE_TTL", k, "search_cache_ttl", DefaultSearchCacheTTL); err != nil {
		return cfg, err
	}
	if cfg.SessionIdleTimeout, err = duration("SESSION_IDLE_TIMEOUT", k, "session_idle_timeout", DefaultSessionIdle); err != nil {
		return cfg, err
	}

	return cfg, cfg.Validate()
}

// Validate checks the settings every command needs.
func (c Config) Validate() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, ErrMissingDatabaseURL)
	}
	if c.JWTSecret == "" {
		errs = append(errs, ErrMissingJWTSecret)
	}
	return errors.Join(errs...)
}

// RequireGenerator checks the settings of commands that call the generator.
func (c Config) RequireGenerator() error {
	if c.GeminiAPIKey == "" {
		return ErrMissingGeminiAPIKey
	}
	return nil
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func get(envKey string, k *koanf.Koanf, koanfKey, def string) string {
	if v := strings.TrimSpace(os.Getenv(envKey)); v != "" {
		return v
	}
	if v := strings.TrimSpace(k.String(koanfKey)); v != "" {
		return v
	}
	return def
}

func duration(envKey string, k *koanf.Koanf, koanfKey string, def time.Duration) (time.Duration, error) {
	v := get(envKey, k, koanfKey, "")
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def, fmt.Errorf("%s: %w", envKey, err)
	}
	return d, nil
}
