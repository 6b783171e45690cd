package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds all application configuration, loaded from environment variables.
type Config struct {
	// Mode selects the runtime mode: "api" or "worker".
	Mode string `env:"CORE_MODE" envDefault:"api"`

	// Server
	Host string `env:"CORE_HOST" envDefault:"0.0.0.0"`
	Port int    `env:"CORE_PORT" envDefault:"8080"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// Migrations
	MigrationsDir string `env:"MIGRATIONS_DIR" envDefault:"migrations"`

	// HR / PostgreSQL (Neon)
	NeonDatabaseURL string `env:"NEON_DATABASE_URL"`
	NeonSecretName  string `env:"NEON_SECRET_NAME" envDefault:"pinnokio_postgres_neon"`

	// Redis (shared with the "listeners" service, same env var names)
	UseLocalRedis      bool   `env:"USE_LOCAL_REDIS" envDefault:"false"`
	ListenersRedisHost string `env:"LISTENERS_REDIS_HOST" envDefault:"localhost"`
	ListenersRedisPort int    `env:"LISTENERS_REDIS_PORT" envDefault:"6379"`
	ListenersRedisPass string `env:"LISTENERS_REDIS_PASSWORD"`
	ListenersRedisTLS  bool   `env:"LISTENERS_REDIS_TLS" envDefault:"false"`
	ListenersRedisDB   int    `env:"LISTENERS_REDIS_DB" envDefault:"0"`

	// Jobber
	JobberURL     string `env:"HR_JOBBER_URL" envDefault:"http://localhost:8001"`
	JobberAPIKey  string `env:"HR_JOBBER_API_KEY"`
	JobberTimeout int    `env:"HR_JOBBER_TIMEOUT" envDefault:"30"`
	ListenersURL  string `env:"LISTENERS_URL" envDefault:"http://localhost:8000"`

	// Jobber callback authentication (pre-shared bearer key, spec.md §6).
	CallbackBearerKey string `env:"CALLBACK_BEARER_KEY"`

	// Google identity bootstrap (secret resolver, 4.A)
	GoogleServiceAccountJSON    string `env:"GOOGLE_SERVICE_ACCOUNT_JSON"`
	GoogleServiceAccountJSONB64 string `env:"GOOGLE_SERVICE_ACCOUNT_JSON_B64"`
	GoogleServiceAccountSecret  string `env:"GOOGLE_SERVICE_ACCOUNT_SECRET"`
	GoogleProjectID             string `env:"GOOGLE_PROJECT_ID"`
	AWSSecretName               string `env:"AWS_SECRET_NAME"`

	// RPC caller authentication (OIDC ID-token verification, e.g. Firebase Auth).
	OIDCIssuerURL string `env:"OIDC_ISSUER_URL"`
	OIDCClientID  string `env:"OIDC_CLIENT_ID"`

	// Personal access tokens for unattended service-account callers.
	PATSigningSecret string `env:"PAT_SIGNING_SECRET"`
	PATMaxAge        string `env:"PAT_MAX_AGE" envDefault:"720h"`

	// Slack alerting (optional — if not set, alerting is a no-op)
	SlackBotToken     string `env:"SLACK_BOT_TOKEN"`
	SlackAlertChannel string `env:"SLACK_ALERT_CHANNEL"`

	// Vector store (Chroma)
	ChromaURL string `env:"CHROMA_URL" envDefault:"http://localhost:8100"`

	// Connection cache (ERP/Drive client TTL, spec.md §3)
	ConnectionCacheTTL string `env:"CONNECTION_CACHE_TTL" envDefault:"30m"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config from env: %w", err)
	}
	return cfg, nil
}

// ListenAddr returns the address the HTTP server should listen on.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
