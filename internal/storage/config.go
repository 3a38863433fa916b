package storage

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/rs/zerolog"
)

// Backend selects the MetricsStore implementation
type Backend string

const (
	BackendFile     Backend = "file"
	BackendRedis    Backend = "redis"
	BackendDynamoDB Backend = "dynamodb"
	BackendMemory   Backend = "memory"
	BackendNone     Backend = "none"
)

// DynamoMode represents the DynamoDB connection mode
type DynamoMode string

const (
	DynamoModeLocal DynamoMode = "local"
	DynamoModeAWS   DynamoMode = "aws"
)

// DefaultStorageKey is the key the desktop has always stored its metrics under
const DefaultStorageKey = "amazonConnectMetrics"

// Config holds persistence configuration
type Config struct {
	Backend    Backend
	StorageKey string

	// file
	Dir string

	// redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// dynamodb
	DynamoMode     DynamoMode
	DynamoEndpoint string // for local mode
	DynamoRegion   string
	MetricsTable   string
}

// LoadConfig loads persistence config from environment
func LoadConfig() (Config, error) {
	backend := Backend(getEnv("METRICS_STORE", string(BackendFile)))
	switch backend {
	case BackendFile, BackendRedis, BackendDynamoDB, BackendMemory, BackendNone:
	default:
		return Config{}, fmt.Errorf("unknown METRICS_STORE %q", backend)
	}

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	mode := DynamoMode(getEnv("DYNAMO_MODE", string(DynamoModeLocal)))
	if mode != DynamoModeLocal && mode != DynamoModeAWS {
		return Config{}, fmt.Errorf("unknown DYNAMO_MODE %q", mode)
	}

	return Config{
		Backend:        backend,
		StorageKey:     getEnv("METRICS_STORAGE_KEY", DefaultStorageKey),
		Dir:            getEnv("METRICS_DIR", "./data"),
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		RedisDB:        redisDB,
		DynamoMode:     mode,
		DynamoEndpoint: getEnv("DYNAMO_ENDPOINT", "http://localhost:8000"),
		DynamoRegion:   getEnv("DYNAMO_REGION", "eu-central-1"),
		MetricsTable:   getEnv("DYNAMO_METRICS_TABLE", "agentdesk-metrics"),
	}, nil
}

// New creates the store selected by cfg
func New(ctx context.Context, cfg Config, logger zerolog.Logger) (MetricsStore, error) {
	switch cfg.Backend {
	case BackendFile:
		return NewFileStore(cfg.Dir, cfg.StorageKey, logger)
	case BackendRedis:
		return NewRedisStore(ctx, cfg, logger)
	case BackendDynamoDB:
		return NewDynamoDBStore(ctx, cfg, logger)
	case BackendMemory:
		logger.Info().Msg("metrics persisted in memory only")
		return NewMemoryStore(), nil
	default:
		logger.Info().Msg("metrics persistence disabled (METRICS_STORE=none)")
		return NewNoopStore(), nil
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
