package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
)

type Config struct {
	// RPC settings
	RPCUrl string

	// HTTP server
	ServerAddr string
	APIKey     string
	DevMode    bool

	// Pool program settings
	PoolProgramID string
	HookProgramID string
	FeeReceiver   string

	// Redis settings
	RedisAddr string

	// ClickHouse settings
	ClickHouseAddr     string
	ClickHouseDatabase string
	ClickHouseUsername string
	ClickHousePassword string

	// Token metadata API
	MetadataBaseURL string
	MetadataAPIKey  string

	// AI agent settings
	OpenRouterAPIKey string
	AIModel          string

	// HTTP client settings
	HTTPTimeout  time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
}

func Load() *Config {
	return &Config{
		// RPC
		RPCUrl: getEnv("SOLANA_RPC_URL", "https://api.mainnet-beta.solana.com"),

		// Server
		ServerAddr: getEnv("SERVER_ADDR", ":8080"),
		APIKey:     getEnv("API_KEY", ""),
		DevMode:    getBoolEnv("DEV_MODE", false),

		// Pool program
		PoolProgramID: getEnv("POOL_PROGRAM_ID", "CPMMoo8L3F4NbTegBCKVNunggL7H1ZpdTHKxQB5qKP1C"),
		HookProgramID: getEnv("HOOK_PROGRAM_ID", ""),
		FeeReceiver:   getEnv("CREATE_POOL_FEE_RECEIVER", ""),

		// Redis
		RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),

		// ClickHouse
		ClickHouseAddr:     getEnv("CLICKHOUSE_ADDR", "localhost:9000"),
		ClickHouseDatabase: getEnv("CLICKHOUSE_DATABASE", "solana"),
		ClickHouseUsername: getEnv("CLICKHOUSE_USERNAME", "default"),
		ClickHousePassword: getEnv("CLICKHOUSE_PASSWORD", ""),

		// Metadata
		MetadataBaseURL: getEnv("METADATA_BASE_URL", ""),
		MetadataAPIKey:  getEnv("METADATA_API_KEY", ""),

		// AI
		OpenRouterAPIKey: getEnv("OPENROUTER_API_KEY", ""),
		AIModel:          getEnv("AI_MODEL", "openai/gpt-4.1-mini"),

		// HTTP
		HTTPTimeout:  getDurationEnv("HTTP_TIMEOUT", 30*time.Second),
		MaxRetries:   getIntEnv("MAX_RETRIES", 5),
		RetryBackoff: getDurationEnv("RETRY_BACKOFF", 2*time.Second),
	}
}

// Validate checks the settings that have no workable default. The hook
// program and fee receiver differ per deployment and a wrong value only
// surfaces as failed transactions, so both must be set explicitly.
func (c *Config) Validate() error {
	for _, field := range []struct {
		name  string
		value string
	}{
		{"POOL_PROGRAM_ID", c.PoolProgramID},
		{"HOOK_PROGRAM_ID", c.HookProgramID},
		{"CREATE_POOL_FEE_RECEIVER", c.FeeReceiver},
	} {
		if field.value == "" {
			return fmt.Errorf("%s is required", field.name)
		}
		if _, err := solana.PublicKeyFromBase58(field.value); err != nil {
			return fmt.Errorf("%s is not a valid address: %w", field.name, err)
		}
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getIntEnv(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getBoolEnv(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
