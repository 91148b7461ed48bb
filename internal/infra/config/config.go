package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config aggregates runtime configuration used across the service.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Session   SessionConfig   `yaml:"session"`
	Auth      AuthConfig      `yaml:"auth"`
	Forecast  ForecastConfig  `yaml:"forecast"`
	Inventory InventoryConfig `yaml:"inventory"`
	Upload    UploadConfig    `yaml:"upload"`
	Upstream  UpstreamConfig  `yaml:"upstream"`
}

// HTTPConfig controls server level behavior.
type HTTPConfig struct {
	Address        string          `yaml:"address"`
	ReadTimeout    time.Duration   `yaml:"readTimeout"`
	WriteTimeout   time.Duration   `yaml:"writeTimeout"`
	AllowedOrigins []string        `yaml:"allowedOrigins"`
	RateLimit      RateLimitConfig `yaml:"rateLimit"`
	CSRF           CSRFConfig      `yaml:"csrf"`
}

// RateLimitConfig drives the request limiting middleware.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requestsPerMinute"`
	Burst             int  `yaml:"burst"`
}

// CSRFConfig protects browser form submissions. JSON requests are exempt.
type CSRFConfig struct {
	Enabled        bool     `yaml:"enabled"`
	AuthKey        string   `yaml:"authKey"`
	TrustedOrigins []string `yaml:"trustedOrigins"`
}

// SessionConfig controls the browser-context cookie and the session backend.
type SessionConfig struct {
	CookieName   string         `yaml:"cookieName"`
	HashKey      string         `yaml:"hashKey"`
	BlockKey     string         `yaml:"blockKey"`
	SecureCookie bool           `yaml:"secureCookie"`
	MaxAge       time.Duration  `yaml:"maxAge"`
	SignInPath   string         `yaml:"signInPath"`
	HomePath     string         `yaml:"homePath"`
	Backend      string         `yaml:"backend"`
	Valkey       ValkeyConfig   `yaml:"valkey"`
	Postgres     PostgresConfig `yaml:"postgres"`
}

// ValkeyConfig contains connection information for the shared session backend.
type ValkeyConfig struct {
	Addr   string `yaml:"addr"`
	Prefix string `yaml:"prefix"`
}

// PostgresConfig contains DSN and pooling settings.
type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"maxConns"`
	MinConns int32  `yaml:"minConns"`
}

// AuthConfig points at the credential-issuing backend.
type AuthConfig struct {
	LoginURL    string `yaml:"loginUrl"`
	TokenSecret string `yaml:"tokenSecret"`
}

// ForecastConfig points at the model service and the historical dataset.
type ForecastConfig struct {
	PredictURL     string `yaml:"predictUrl"`
	PredictYearURL string `yaml:"predictYearUrl"`
	HistoryURL     string `yaml:"historyUrl"`
	DefaultStation string `yaml:"defaultStation"`
	MinYear        int    `yaml:"minYear"`
	MaxYear        int    `yaml:"maxYear"`
	AttachToken    bool   `yaml:"attachToken"`
}

// InventoryConfig points at the model inventory endpoint.
type InventoryConfig struct {
	ModelsURL   string `yaml:"modelsUrl"`
	AttachToken bool   `yaml:"attachToken"`
}

// UploadConfig points at the authenticated upload endpoint.
type UploadConfig struct {
	URL      string `yaml:"url"`
	MaxBytes int64  `yaml:"maxBytes"`
}

// UpstreamConfig is shared by every outbound HTTP client.
type UpstreamConfig struct {
	Timeout time.Duration `yaml:"timeout"`
	Breaker BreakerConfig `yaml:"breaker"`
}

// BreakerConfig configures the per-backend circuit breaker.
type BreakerConfig struct {
	Enabled             bool          `yaml:"enabled"`
	ConsecutiveFailures uint32        `yaml:"consecutiveFailures"`
	OpenTimeout         time.Duration `yaml:"openTimeout"`
}

// Load reads configuration from .env, a YAML file and environment variables.
func Load() (*Config, error) {
	cfg := defaultConfig()

	// .env is optional; a missing file is not an error.
	_ = godotenv.Load()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := hydrateFromFile(cfg, path); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat("configs/config.yaml"); err == nil {
		if err := hydrateFromFile(cfg, "configs/config.yaml"); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func hydrateFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HTTP_ADDRESS"); v != "" {
		cfg.HTTP.Address = v
	}
	if v := os.Getenv("HTTP_ALLOWED_ORIGINS"); v != "" {
		cfg.HTTP.AllowedOrigins = splitList(v)
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_ENABLED"); v != "" {
		cfg.HTTP.RateLimit.Enabled = parseBool(v)
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_RPM"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.RequestsPerMinute = parsed
		}
	}
	if v := os.Getenv("HTTP_RATE_LIMIT_BURST"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RateLimit.Burst = parsed
		}
	}
	if v := os.Getenv("HTTP_CSRF_ENABLED"); v != "" {
		cfg.HTTP.CSRF.Enabled = parseBool(v)
	}
	if v := os.Getenv("HTTP_CSRF_KEY"); v != "" {
		cfg.HTTP.CSRF.AuthKey = v
	}
	if v := os.Getenv("SESSION_COOKIE_NAME"); v != "" {
		cfg.Session.CookieName = v
	}
	if v := os.Getenv("SESSION_HASH_KEY"); v != "" {
		cfg.Session.HashKey = v
	}
	if v := os.Getenv("SESSION_BLOCK_KEY"); v != "" {
		cfg.Session.BlockKey = v
	}
	if v := os.Getenv("SESSION_SECURE_COOKIE"); v != "" {
		cfg.Session.SecureCookie = parseBool(v)
	}
	if v := os.Getenv("SESSION_MAX_AGE"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Session.MaxAge = parsed
		}
	}
	if v := os.Getenv("SESSION_BACKEND"); v != "" {
		cfg.Session.Backend = strings.ToLower(strings.TrimSpace(v))
	}
	if v := os.Getenv("SESSION_VALKEY_ADDR"); v != "" {
		cfg.Session.Valkey.Addr = v
	}
	if v := os.Getenv("SESSION_POSTGRES_DSN"); v != "" {
		cfg.Session.Postgres.DSN = v
	}
	if v := os.Getenv("SESSION_POSTGRES_MAX_CONNS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Session.Postgres.MaxConns = int32(parsed)
		}
	}
	if v := os.Getenv("AUTH_LOGIN_URL"); v != "" {
		cfg.Auth.LoginURL = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Auth.TokenSecret = v
	}
	if v := os.Getenv("PREDICT_URL"); v != "" {
		cfg.Forecast.PredictURL = v
	}
	if v := os.Getenv("MODEL_URL"); v != "" {
		cfg.Forecast.PredictYearURL = v
	}
	if v := os.Getenv("HISTORY_URL"); v != "" {
		cfg.Forecast.HistoryURL = v
	}
	if v := os.Getenv("HISTORY_STATION"); v != "" {
		cfg.Forecast.DefaultStation = v
	}
	if v := os.Getenv("FORECAST_MIN_YEAR"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Forecast.MinYear = parsed
		}
	}
	if v := os.Getenv("FORECAST_MAX_YEAR"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			cfg.Forecast.MaxYear = parsed
		}
	}
	if v := os.Getenv("FORECAST_ATTACH_TOKEN"); v != "" {
		cfg.Forecast.AttachToken = parseBool(v)
	}
	if v := os.Getenv("BACKEND_URL"); v != "" {
		cfg.Inventory.ModelsURL = v
	}
	if v := os.Getenv("INVENTORY_ATTACH_TOKEN"); v != "" {
		cfg.Inventory.AttachToken = parseBool(v)
	}
	if v := os.Getenv("UPLOAD_URL"); v != "" {
		cfg.Upload.URL = v
	}
	if v := os.Getenv("UPLOAD_MAX_BYTES"); v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Upload.MaxBytes = parsed
		}
	}
	if v := os.Getenv("UPSTREAM_TIMEOUT"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Upstream.Timeout = parsed
		}
	}
	if v := os.Getenv("UPSTREAM_BREAKER_ENABLED"); v != "" {
		cfg.Upstream.Breaker.Enabled = parseBool(v)
	}
}

func parseBool(v string) bool {
	return v == "1" || strings.EqualFold(v, "true")
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func defaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Address:        ":8080",
			ReadTimeout:    15 * time.Second,
			WriteTimeout:   15 * time.Second,
			AllowedOrigins: []string{"http://localhost:3000"},
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 120,
				Burst:             30,
			},
			CSRF: CSRFConfig{
				Enabled:        true,
				TrustedOrigins: []string{"localhost:8080", "127.0.0.1:8080"},
			},
		},
		Session: SessionConfig{
			CookieName: "temppredict_ctx",
			MaxAge:     2 * time.Hour,
			SignInPath: "/auth/signin",
			HomePath:   "/",
			Backend:    "memory",
			Valkey: ValkeyConfig{
				Prefix: "temppredict:session",
			},
			Postgres: PostgresConfig{
				MaxConns: 4,
			},
		},
		Auth: AuthConfig{
			LoginURL: "http://localhost:5000/auth/login",
		},
		Forecast: ForecastConfig{
			PredictURL:     "http://localhost:8000/predict",
			PredictYearURL: "http://localhost:8000/predict_year",
			HistoryURL:     "http://localhost:3000/datasets/global_temp.json",
			DefaultStation: "GLOBAL",
			MinYear:        1850,
			MaxYear:        2100,
		},
		Inventory: InventoryConfig{
			ModelsURL: "http://localhost:5000/models",
		},
		Upload: UploadConfig{
			URL:      "http://localhost:5000/upload",
			MaxBytes: 32 << 20,
		},
		Upstream: UpstreamConfig{
			Timeout: 10 * time.Second,
			Breaker: BreakerConfig{
				Enabled:             true,
				ConsecutiveFailures: 5,
				OpenTimeout:         30 * time.Second,
			},
		},
	}
}

// Validate ensures the configuration is safe to use.
func (c *Config) Validate() error {
	if c.HTTP.Address == "" {
		return errors.New("http.address cannot be empty")
	}
	if c.HTTP.RateLimit.Enabled {
		if c.HTTP.RateLimit.RequestsPerMinute <= 0 {
			return errors.New("http.rateLimit.requestsPerMinute must be positive")
		}
		if c.HTTP.RateLimit.Burst <= 0 {
			return errors.New("http.rateLimit.burst must be positive")
		}
	}
	if c.HTTP.CSRF.Enabled && c.HTTP.CSRF.AuthKey != "" && len(c.HTTP.CSRF.AuthKey) != 32 {
		return errors.New("http.csrf.authKey must be 32 bytes")
	}
	if strings.TrimSpace(c.Session.CookieName) == "" {
		return errors.New("session.cookieName cannot be empty")
	}
	if c.Session.MaxAge <= 0 {
		return errors.New("session.maxAge must be positive")
	}
	if !strings.HasPrefix(c.Session.SignInPath, "/") {
		return errors.New("session.signInPath must be an absolute path")
	}
	if !strings.HasPrefix(c.Session.HomePath, "/") {
		return errors.New("session.homePath must be an absolute path")
	}
	switch c.Session.Backend {
	case "memory":
	case "valkey":
		if strings.TrimSpace(c.Session.Valkey.Addr) == "" {
			return errors.New("session.valkey.addr cannot be empty when backend is valkey")
		}
	case "postgres":
		if strings.TrimSpace(c.Session.Postgres.DSN) == "" {
			return errors.New("session.postgres.dsn cannot be empty when backend is postgres")
		}
	default:
		return fmt.Errorf("session.backend %q is not supported", c.Session.Backend)
	}
	// Shared backends outlive the process, so the cookie key must too.
	if c.Session.Backend != "memory" && c.Session.HashKey == "" {
		return fmt.Errorf("session.hashKey is required when backend is %s", c.Session.Backend)
	}
	if c.Session.BlockKey != "" {
		switch len(c.Session.BlockKey) {
		case 16, 24, 32:
		default:
			return errors.New("session.blockKey must be 16, 24, or 32 bytes")
		}
	}
	if strings.TrimSpace(c.Auth.LoginURL) == "" {
		return errors.New("auth.loginUrl cannot be empty")
	}
	if strings.TrimSpace(c.Forecast.PredictURL) == "" {
		return errors.New("forecast.predictUrl cannot be empty")
	}
	if strings.TrimSpace(c.Forecast.PredictYearURL) == "" {
		return errors.New("forecast.predictYearUrl cannot be empty")
	}
	if c.Forecast.MinYear > c.Forecast.MaxYear {
		return errors.New("forecast.minYear cannot exceed forecast.maxYear")
	}
	if strings.TrimSpace(c.Inventory.ModelsURL) == "" {
		return errors.New("inventory.modelsUrl cannot be empty")
	}
	if c.Upload.MaxBytes < 0 {
		return errors.New("upload.maxBytes cannot be negative")
	}
	if c.Upstream.Timeout <= 0 {
		return errors.New("upstream.timeout must be positive")
	}
	if c.Upstream.Breaker.Enabled {
		if c.Upstream.Breaker.ConsecutiveFailures == 0 {
			return errors.New("upstream.breaker.consecutiveFailures must be positive")
		}
		if c.Upstream.Breaker.OpenTimeout <= 0 {
			return errors.New("upstream.breaker.openTimeout must be positive")
		}
	}
	return nil
}
