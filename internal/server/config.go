// Package server provides configuration helpers that define runtime defaults,
// validation, and security parameters for the relay service.
package server

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// RateLimitConfig defines the parameters for per-connection event rate limiting.
type RateLimitConfig struct {
	Burst          int
	RefillInterval time.Duration
}

// RedisConfig holds state-backend connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Config holds the server configuration settings including security controls
// and state-backend parameters.
type Config struct {
	Port           string
	AllowedOrigins []string
	MaxMessageSize int64
	RateLimit      RateLimitConfig
	Redis          RedisConfig
	RoomName       string
	HistoryLimit   int
	BackendTimeout time.Duration
	LogLevel       string
	Environment    string
}

var (
	configMu        sync.RWMutex
	activeConfig    Config
	allowedOrigins  map[string]struct{}
	allowAllOrigins bool
)

func init() {
	SetConfig(nil)
}

func defaultConfig() Config {
	return Config{
		Port: ":8080",
		AllowedOrigins: []string{
			"http://localhost:8080",
		},
		MaxMessageSize: 512,
		RateLimit: RateLimitConfig{
			Burst:          5,
			RefillInterval: time.Second,
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		RoomName:       "general_chat",
		HistoryLimit:   50,
		BackendTimeout: 3 * time.Second,
		LogLevel:       "info",
		Environment:    "development",
	}
}

func sanitizeConfig(cfg Config) Config {
	if cfg.Port == "" {
		cfg.Port = ":8080"
	}

	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = 512
	}

	if cfg.RateLimit.Burst <= 0 {
		cfg.RateLimit.Burst = 5
	}

	if cfg.RateLimit.RefillInterval <= 0 {
		cfg.RateLimit.RefillInterval = time.Second
	}

	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}

	if cfg.RoomName == "" {
		cfg.RoomName = "general_chat"
	}

	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 50
	}

	// Backend calls must stay short enough that a dead backend cannot starve
	// a connection's event loop.
	if cfg.BackendTimeout < time.Second || cfg.BackendTimeout > 10*time.Second {
		cfg.BackendTimeout = 3 * time.Second
	}

	normalizedOrigins, allowAll := normalizeOrigins(cfg.AllowedOrigins)
	cfg.AllowedOrigins = normalizedOrigins

	configMu.Lock()
	defer configMu.Unlock()

	activeConfig = cfg
	allowAllOrigins = allowAll
	allowedOrigins = make(map[string]struct{}, len(normalizedOrigins))
	for _, origin := range normalizedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	return cfg
}

// SetConfig applies the provided configuration. Passing nil resets to defaults.
func SetConfig(cfg *Config) {
	if cfg == nil {
		defaultCfg := defaultConfig()
		sanitizeConfig(defaultCfg)
		return
	}

	sanitized := *cfg
	sanitized.AllowedOrigins = append([]string(nil), cfg.AllowedOrigins...)
	sanitizeConfig(sanitized)
}

func currentConfig() Config {
	configMu.RLock()
	defer configMu.RUnlock()

	cfg := activeConfig
	cfg.AllowedOrigins = append([]string(nil), cfg.AllowedOrigins...)
	return cfg
}

// NewConfig creates a Config instance populated with default values.
func NewConfig() *Config {
	cfg := defaultConfig()
	return &cfg
}

// NewConfigFromEnv creates a Config instance from environment variables.
// Falls back to default values if environment variables are not set.
func NewConfigFromEnv() *Config {
	cfg := defaultConfig()
	applyEnv(&cfg)
	return &cfg
}

// fileConfig is the YAML shape of a config file. Durations are expressed in
// whole seconds.
type fileConfig struct {
	Port                   string   `yaml:"port"`
	AllowedOrigins         []string `yaml:"allowed_origins"`
	MaxMessageSize         int64    `yaml:"max_message_size"`
	RateLimitBurst         int      `yaml:"rate_limit_burst"`
	RateLimitRefillSeconds int      `yaml:"rate_limit_refill_seconds"`
	RedisAddr              string   `yaml:"redis_addr"`
	RedisPassword          string   `yaml:"redis_password"`
	RedisDB                int      `yaml:"redis_db"`
	RoomName               string   `yaml:"room_name"`
	HistoryLimit           int      `yaml:"history_limit"`
	BackendTimeoutSeconds  int      `yaml:"backend_timeout_seconds"`
	LogLevel               string   `yaml:"log_level"`
	Environment            string   `yaml:"environment"`
}

// NewConfigFromFile layers a YAML config file over the defaults and then
// applies environment variable overrides on top.
func NewConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg := defaultConfig()
	if fc.Port != "" {
		cfg.Port = fc.Port
	}
	if len(fc.AllowedOrigins) > 0 {
		cfg.AllowedOrigins = fc.AllowedOrigins
	}
	if fc.MaxMessageSize > 0 {
		cfg.MaxMessageSize = fc.MaxMessageSize
	}
	if fc.RateLimitBurst > 0 {
		cfg.RateLimit.Burst = fc.RateLimitBurst
	}
	if fc.RateLimitRefillSeconds > 0 {
		cfg.RateLimit.RefillInterval = time.Duration(fc.RateLimitRefillSeconds) * time.Second
	}
	if fc.RedisAddr != "" {
		cfg.Redis.Addr = fc.RedisAddr
	}
	if fc.RedisPassword != "" {
		cfg.Redis.Password = fc.RedisPassword
	}
	if fc.RedisDB > 0 {
		cfg.Redis.DB = fc.RedisDB
	}
	if fc.RoomName != "" {
		cfg.RoomName = fc.RoomName
	}
	if fc.HistoryLimit > 0 {
		cfg.HistoryLimit = fc.HistoryLimit
	}
	if fc.BackendTimeoutSeconds > 0 {
		cfg.BackendTimeout = time.Duration(fc.BackendTimeoutSeconds) * time.Second
	}
	if fc.LogLevel != "" {
		cfg.LogLevel = fc.LogLevel
	}
	if fc.Environment != "" {
		cfg.Environment = fc.Environment
	}

	applyEnv(&cfg)
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if port := os.Getenv("SERVER_PORT"); port != "" {
		cfg.Port = port
	}

	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = parseOrigins(origins)
	}

	if maxSize := os.Getenv("MAX_MESSAGE_SIZE"); maxSize != "" {
		cfg.MaxMessageSize = parseMaxMessageSize(maxSize, cfg.MaxMessageSize)
	}

	if burst := os.Getenv("RATE_LIMIT_BURST"); burst != "" {
		cfg.RateLimit.Burst = parseIntValue(burst, cfg.RateLimit.Burst)
	}

	if interval := os.Getenv("RATE_LIMIT_REFILL_INTERVAL"); interval != "" {
		cfg.RateLimit.RefillInterval = parseSecondsValue(interval, cfg.RateLimit.RefillInterval)
	}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Redis.Addr = addr
	}

	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		cfg.Redis.Password = password
	}

	if db := os.Getenv("REDIS_DB"); db != "" {
		cfg.Redis.DB = parseIntValue(db, cfg.Redis.DB)
	}

	if room := os.Getenv("ROOM_NAME"); room != "" {
		cfg.RoomName = room
	}

	if limit := os.Getenv("HISTORY_LIMIT"); limit != "" {
		cfg.HistoryLimit = parseIntValue(limit, cfg.HistoryLimit)
	}

	if timeout := os.Getenv("BACKEND_TIMEOUT"); timeout != "" {
		cfg.BackendTimeout = parseSecondsValue(timeout, cfg.BackendTimeout)
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}

	if env := os.Getenv("ENVIRONMENT"); env != "" {
		cfg.Environment = env
	}
}

func parseOrigins(origins string) []string {
	parts := strings.Split(origins, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func parseMaxMessageSize(value string, defaultValue int64) int64 {
	if size, err := strconv.ParseInt(value, 10, 64); err == nil && size > 0 {
		return size
	}
	return defaultValue
}

func parseIntValue(value string, defaultValue int) int {
	if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
		return parsed
	}
	return defaultValue
}

func parseSecondsValue(value string, defaultValue time.Duration) time.Duration {
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return defaultValue
}
