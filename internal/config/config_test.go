package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "LOG_LEVEL", "KV_PROVIDER", "REDIS_ADDR", "BUS_PROVIDER",
		"NATS_URL", "HOST_REQUEST_TIMEOUT", "HISTORY_PROVIDER", "DEFAULT_PROVIDER", "MAX_UPLOAD_SIZE",
		"SESSION_TTL", "OPENAI_BASE_URL",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg := Load()

	tests := []struct {
		name     string
		got      interface{}
		expected interface{}
	}{
		{"Port", cfg.Port, 8080},
		{"LogLevel", cfg.LogLevel, "info"},
		{"KVProvider", cfg.KVProvider, "redis"},
		{"RedisAddr", cfg.RedisAddr, "localhost:6379"},
		{"BusProvider", cfg.BusProvider, "nats"},
		{"NATSURL", cfg.NATSURL, "nats://localhost:4222"},
		{"HostRequestTimeout", cfg.HostRequestTimeout, 60 * time.Second},
		{"HistoryProvider", cfg.HistoryProvider, "postgres"},
		{"DefaultProvider", cfg.DefaultProvider, "openai"},
		{"MaxUploadSize", cfg.MaxUploadSize, int64(10485760)},
		{"SessionTTL", cfg.SessionTTL, 24 * time.Hour},
		{"OpenAIBaseURL", cfg.OpenAIBaseURL, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("expected %s=%v, got %v", tt.name, tt.expected, tt.got)
			}
		})
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("HOST_REQUEST_TIMEOUT", "5s")

	cfg := Load()

	if cfg.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Port)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.LogLevel)
	}
	if cfg.HostRequestTimeout != 5*time.Second {
		t.Errorf("expected host timeout 5s, got %v", cfg.HostRequestTimeout)
	}
}

func TestLoadProviderOverrides(t *testing.T) {
	t.Setenv("DEFAULT_PROVIDER", "local")
	t.Setenv("KV_PROVIDER", "memory")
	t.Setenv("BUS_PROVIDER", "websocket")

	cfg := Load()

	if cfg.DefaultProvider != "local" {
		t.Errorf("expected default provider 'local', got %s", cfg.DefaultProvider)
	}
	if cfg.KVProvider != "memory" {
		t.Errorf("expected kv provider 'memory', got %s", cfg.KVProvider)
	}
	if cfg.BusProvider != "websocket" {
		t.Errorf("expected bus provider 'websocket', got %s", cfg.BusProvider)
	}
}
