package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dennisdiepolder/monti/agentdesk/internal/storage"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Port           string
	AllowedOrigins []string
	LogLevel       string

	WSReadTimeout  time.Duration
	WSWriteTimeout time.Duration
	PingPeriod     time.Duration
	PongWait       time.Duration
	WriteWait      time.Duration
	MaxMessageSize int64

	Storage storage.Config

	WorkspaceURL            string
	WorkspaceConnectTimeout time.Duration
	WorkspaceRequestTimeout time.Duration
	StatusRevertDelay       time.Duration

	AgentAPIURL       string
	EmailAPIURL       string
	SMSAPIURL         string
	ConnectInstanceID string
	AgentCacheTTL     time.Duration
	APIRateLimit      float64

	JWKSURL     string
	JWTIssuer   string
	JWTAudience string
	AuthEnabled bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	config := &Config{
		Port:              getEnv("PORT", "8080"),
		AllowedOrigins:    strings.Split(getEnv("ALLOWED_ORIGINS", "http://localhost:5173"), ","),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		WorkspaceURL:      getEnv("WORKSPACE_URL", "ws://localhost:8090/ws"),
		AgentAPIURL:       os.Getenv("AGENT_API_URL"),
		EmailAPIURL:       os.Getenv("EMAIL_API_URL"),
		SMSAPIURL:         os.Getenv("SMS_API_URL"),
		ConnectInstanceID: os.Getenv("CONNECT_INSTANCE_ID"),
		JWKSURL:           os.Getenv("JWKS_URL"),
		JWTIssuer:         os.Getenv("JWT_ISSUER"),
		JWTAudience:       os.Getenv("JWT_AUDIENCE"),
	}

	// Parse WebSocket timeouts
	wsReadTimeout, err := strconv.Atoi(getEnv("WS_READ_TIMEOUT", "60"))
	if err != nil {
		return nil, fmt.Errorf("invalid WS_READ_TIMEOUT: %w", err)
	}
	config.WSReadTimeout = time.Duration(wsReadTimeout) * time.Second

	wsWriteTimeout, err := strconv.Atoi(getEnv("WS_WRITE_TIMEOUT", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid WS_WRITE_TIMEOUT: %w", err)
	}
	config.WSWriteTimeout = time.Duration(wsWriteTimeout) * time.Second

	// Calculate WebSocket constants
	config.PongWait = config.WSReadTimeout
	config.PingPeriod = (config.PongWait * 9) / 10 // Must be less than pongWait
	config.WriteWait = config.WSWriteTimeout
	config.MaxMessageSize = 512

	if config.WorkspaceConnectTimeout, err = getDuration("WORKSPACE_CONNECT_TIMEOUT", "5s"); err != nil {
		return nil, err
	}
	if config.WorkspaceRequestTimeout, err = getDuration("WORKSPACE_REQUEST_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	if config.StatusRevertDelay, err = getDuration("STATUS_REVERT_DELAY", "3s"); err != nil {
		return nil, err
	}
	if config.AgentCacheTTL, err = getDuration("AGENT_CACHE_TTL", "5m"); err != nil {
		return nil, err
	}

	config.APIRateLimit, err = strconv.ParseFloat(getEnv("API_RATE_LIMIT", "10"), 64)
	if err != nil || config.APIRateLimit <= 0 {
		return nil, fmt.Errorf("invalid API_RATE_LIMIT %q", os.Getenv("API_RATE_LIMIT"))
	}

	config.AuthEnabled, err = strconv.ParseBool(getEnv("AUTH_ENABLED", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid AUTH_ENABLED: %w", err)
	}
	if config.AuthEnabled && config.JWKSURL == "" {
		return nil, fmt.Errorf("JWKS_URL is required when AUTH_ENABLED is set")
	}

	if config.Storage, err = storage.LoadConfig(); err != nil {
		return nil, err
	}

	// Trim spaces from allowed origins
	for i, origin := range config.AllowedOrigins {
		config.AllowedOrigins[i] = strings.TrimSpace(origin)
	}

	return config, nil
}

// getEnv gets an environment variable with a fallback default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key, defaultValue string) (time.Duration, error) {
	d, err := time.ParseDuration(getEnv(key, defaultValue))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
