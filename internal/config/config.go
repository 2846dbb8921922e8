package config

import (
	"log/slog"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds the hub's runtime configuration. Provider credentials are not here:
// adapters read them from the KV store on every call.
type Config struct {
	// Server
	Port     int    `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Upload limits for page text extraction
	MaxUploadSize int64 `env:"MAX_UPLOAD_SIZE" envDefault:"10485760"` // 10MB in bytes

	// Persistent and session key-value storage
	KVProvider    string `env:"KV_PROVIDER" envDefault:"redis"` // "redis" or "memory"
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`

	// Session keys expire after this long; a hub restart starts a new session.
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"24h"`

	// Message bus between the UI and the hub
	BusProvider string `env:"BUS_PROVIDER" envDefault:"nats"` // "nats" or "websocket"
	NATSURL     string `env:"NATS_URL" envDefault:"nats://localhost:4222"`

	// Browser host requests (tabs, history, ML engine) travel over NATS.
	HostRequestTimeout time.Duration `env:"HOST_REQUEST_TIMEOUT" envDefault:"60s"`

	// Summary history
	HistoryProvider string `env:"HISTORY_PROVIDER" envDefault:"postgres"` // "postgres" or "memory"
	DBURL           string `env:"DB_URL"`

	// Provider used when no ai_provider key is stored
	DefaultProvider string `env:"DEFAULT_PROVIDER" envDefault:"openai"`

	// Endpoint overrides for OpenAI-compatible providers; empty uses the public API.
	OpenAIBaseURL      string `env:"OPENAI_BASE_URL"`
	TogetherBaseURL    string `env:"TOGETHER_BASE_URL"`
	HuggingFaceBaseURL string `env:"HUGGINGFACE_BASE_URL"`
	ToolsBaseURL       string `env:"TOOLS_BASE_URL"`
}

// Load reads configuration from environment variables with defaults.
func Load() Config {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		slog.Warn("failed to parse env; using defaults where set", "err", err)
	}
	return cfg
}
