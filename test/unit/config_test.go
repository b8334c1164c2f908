package unit

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Tyrowin/relaychat/internal/server"
)

// TestNewConfigDefaults verifies the default configuration values.
func TestNewConfigDefaults(t *testing.T) {
	cfg := server.NewConfig()

	if cfg.Port != ":8080" {
		t.Errorf("Expected default port :8080, got %s", cfg.Port)
	}
	if cfg.MaxMessageSize != 512 {
		t.Errorf("Expected default max message size 512, got %d", cfg.MaxMessageSize)
	}
	if cfg.RateLimit.Burst != 5 {
		t.Errorf("Expected default rate limit burst 5, got %d", cfg.RateLimit.Burst)
	}
	if cfg.RateLimit.RefillInterval != time.Second {
		t.Errorf("Expected default refill interval 1s, got %s", cfg.RateLimit.RefillInterval)
	}
	if cfg.Redis.Addr != "localhost:6379" {
		t.Errorf("Expected default redis addr localhost:6379, got %s", cfg.Redis.Addr)
	}
	if cfg.RoomName != "general_chat" {
		t.Errorf("Expected default room general_chat, got %s", cfg.RoomName)
	}
	if cfg.HistoryLimit != 50 {
		t.Errorf("Expected default history limit 50, got %d", cfg.HistoryLimit)
	}
	if cfg.BackendTimeout != 3*time.Second {
		t.Errorf("Expected default backend timeout 3s, got %s", cfg.BackendTimeout)
	}
	if len(cfg.AllowedOrigins) == 0 {
		t.Error("Expected default allowed origins to be non-empty")
	}
}

// TestNewConfigFromEnv verifies that environment variables override defaults.
func TestNewConfigFromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", ":9090")
	t.Setenv("ALLOWED_ORIGINS", "https://chat.example.com, https://admin.example.com")
	t.Setenv("MAX_MESSAGE_SIZE", "1024")
	t.Setenv("RATE_LIMIT_BURST", "10")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2")
	t.Setenv("REDIS_ADDR", "redis.internal:6380")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("ROOM_NAME", "lobby")
	t.Setenv("HISTORY_LIMIT", "100")
	t.Setenv("BACKEND_TIMEOUT", "5")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("ENVIRONMENT", "production")

	cfg := server.NewConfigFromEnv()

	if cfg.Port != ":9090" {
		t.Errorf("Expected port :9090, got %s", cfg.Port)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[0] != "https://chat.example.com" {
		t.Errorf("Unexpected allowed origins: %v", cfg.AllowedOrigins)
	}
	if cfg.MaxMessageSize != 1024 {
		t.Errorf("Expected max message size 1024, got %d", cfg.MaxMessageSize)
	}
	if cfg.RateLimit.Burst != 10 {
		t.Errorf("Expected rate limit burst 10, got %d", cfg.RateLimit.Burst)
	}
	if cfg.RateLimit.RefillInterval != 2*time.Second {
		t.Errorf("Expected refill interval 2s, got %s", cfg.RateLimit.RefillInterval)
	}
	if cfg.Redis.Addr != "redis.internal:6380" {
		t.Errorf("Expected redis addr redis.internal:6380, got %s", cfg.Redis.Addr)
	}
	if cfg.Redis.DB != 3 {
		t.Errorf("Expected redis db 3, got %d", cfg.Redis.DB)
	}
	if cfg.RoomName != "lobby" {
		t.Errorf("Expected room lobby, got %s", cfg.RoomName)
	}
	if cfg.HistoryLimit != 100 {
		t.Errorf("Expected history limit 100, got %d", cfg.HistoryLimit)
	}
	if cfg.BackendTimeout != 5*time.Second {
		t.Errorf("Expected backend timeout 5s, got %s", cfg.BackendTimeout)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("Expected log level debug, got %s", cfg.LogLevel)
	}
	if cfg.Environment != "production" {
		t.Errorf("Expected environment production, got %s", cfg.Environment)
	}
}

// TestNewConfigFromEnvInvalidValues verifies that unparsable environment
// values fall back to the defaults instead of failing.
func TestNewConfigFromEnvInvalidValues(t *testing.T) {
	t.Setenv("MAX_MESSAGE_SIZE", "not-a-number")
	t.Setenv("RATE_LIMIT_BURST", "-5")
	t.Setenv("HISTORY_LIMIT", "zero")
	t.Setenv("BACKEND_TIMEOUT", "-1")

	cfg := server.NewConfigFromEnv()

	if cfg.MaxMessageSize != 512 {
		t.Errorf("Expected fallback max message size 512, got %d", cfg.MaxMessageSize)
	}
	if cfg.RateLimit.Burst != 5 {
		t.Errorf("Expected fallback burst 5, got %d", cfg.RateLimit.Burst)
	}
	if cfg.HistoryLimit != 50 {
		t.Errorf("Expected fallback history limit 50, got %d", cfg.HistoryLimit)
	}
	if cfg.BackendTimeout != 3*time.Second {
		t.Errorf("Expected fallback backend timeout 3s, got %s", cfg.BackendTimeout)
	}
}

// TestNewConfigFromFile verifies YAML file loading layered over defaults.
func TestNewConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `port: ":7070"
allowed_origins:
  - https://chat.example.com
max_message_size: 2048
rate_limit_burst: 20
redis_addr: redis.file:6379
room_name: file_room
history_limit: 25
backend_timeout_seconds: 4
log_level: warn
environment: production
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := server.NewConfigFromFile(path)
	if err != nil {
		t.Fatalf("NewConfigFromFile returned error: %v", err)
	}

	if cfg.Port != ":7070" {
		t.Errorf("Expected port :7070, got %s", cfg.Port)
	}
	if cfg.MaxMessageSize != 2048 {
		t.Errorf("Expected max message size 2048, got %d", cfg.MaxMessageSize)
	}
	if cfg.RateLimit.Burst != 20 {
		t.Errorf("Expected burst 20, got %d", cfg.RateLimit.Burst)
	}
	if cfg.Redis.Addr != "redis.file:6379" {
		t.Errorf("Expected redis addr redis.file:6379, got %s", cfg.Redis.Addr)
	}
	if cfg.RoomName != "file_room" {
		t.Errorf("Expected room file_room, got %s", cfg.RoomName)
	}
	if cfg.HistoryLimit != 25 {
		t.Errorf("Expected history limit 25, got %d", cfg.HistoryLimit)
	}
	if cfg.BackendTimeout != 4*time.Second {
		t.Errorf("Expected backend timeout 4s, got %s", cfg.BackendTimeout)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("Expected log level warn, got %s", cfg.LogLevel)
	}

	// Values the file does not mention keep their defaults.
	if cfg.RateLimit.RefillInterval != time.Second {
		t.Errorf("Expected default refill interval, got %s", cfg.RateLimit.RefillInterval)
	}
}

// TestNewConfigFromFileEnvWins verifies environment overrides beat the file.
func TestNewConfigFromFileEnvWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("port: \":7070\"\n"), 0o600); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	t.Setenv("SERVER_PORT", ":9999")

	cfg, err := server.NewConfigFromFile(path)
	if err != nil {
		t.Fatalf("NewConfigFromFile returned error: %v", err)
	}
	if cfg.Port != ":9999" {
		t.Errorf("Expected env override :9999, got %s", cfg.Port)
	}
}

// TestNewConfigFromFileErrors verifies missing and malformed files fail.
func TestNewConfigFromFileErrors(t *testing.T) {
	if _, err := server.NewConfigFromFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing config file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("port: [broken"), 0o600); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	if _, err := server.NewConfigFromFile(path); err == nil {
		t.Error("Expected error for malformed config file")
	}
}
