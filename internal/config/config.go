package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration values
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	Blockchain BlockchainConfig
	Indexer    IndexerConfig
	RateLimit  RateLimitConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           string
	Env            string
	AllowedOrigins []string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// URL returns the database connection URL
func (c DatabaseConfig) URL() string {
	return "postgres://" + c.User + ":" + c.Password + "@" + c.Host + ":" + strconv.Itoa(c.Port) + "/" + c.DBName + "?sslmode=" + c.SSLMode
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	URL      string
	PASSWORD string
}

// JWTConfig holds operator token settings
type JWTConfig struct {
	Secret string
	Issuer string
	Expiry time.Duration
}

// BlockchainConfig holds the chain and ThreeLance deployment settings
type BlockchainConfig struct {
	RPCURL             string
	ChainID            int64
	ContractAddress    string
	OperatorPrivateKey string
	DeployerPrivateKey string
	ArtifactPath       string
	ReceiptPoll        time.Duration
	ReceiptTimeout     time.Duration
	WatchInterval      time.Duration
	PendingTimeout     time.Duration
	NativeCurrencyUSD  float64
}

// IndexerConfig holds the subgraph endpoint settings
type IndexerConfig struct {
	URL      string
	CacheTTL time.Duration
	Timeout  time.Duration
}

// RateLimitConfig holds per-client request limits
type RateLimitConfig struct {
	RPS   float64
	Burst int
}

// Load loads configuration from environment variables
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           getEnv("SERVER_PORT", "8080"),
			Env:            getEnv("SERVER_ENV", "development"),
			AllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "threelance"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			URL:      getEnv("REDIS_URL", "redis://localhost:6379"),
			PASSWORD: getEnv("REDIS_PASSWORD", ""),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "change-this-in-production"),
			Issuer: getEnv("JWT_ISSUER", "threelance"),
			Expiry: getEnvAsDuration("JWT_EXPIRY", 24*time.Hour),
		},
		Blockchain: BlockchainConfig{
			RPCURL:             getEnv("EVM_RPC_URL", "http://127.0.0.1:8545"),
			ChainID:            int64(getEnvAsInt("EVM_CHAIN_ID", 31337)),
			ContractAddress:    getEnv("THREELANCE_CONTRACT_ADDRESS", ""),
			OperatorPrivateKey: getEnv("EVM_OPERATOR_PRIVATE_KEY", getEnv("PRIVATE_KEY", "")),
			DeployerPrivateKey: getEnv("DEPLOYER_PRIVATE_KEY", getEnv("PRIVATE_KEY", "")),
			ArtifactPath:       getEnv("THREELANCE_ARTIFACT", "artifacts/contracts/ThreeLance.sol/ThreeLance.json"),
			ReceiptPoll:        getEnvAsDuration("RECEIPT_POLL_INTERVAL", 2*time.Second),
			ReceiptTimeout:     getEnvAsDuration("RECEIPT_TIMEOUT", 2*time.Minute),
			WatchInterval:      getEnvAsDuration("RECEIPT_WATCH_INTERVAL", 30*time.Second),
			PendingTimeout:     getEnvAsDuration("PENDING_TX_TIMEOUT", time.Hour),
			NativeCurrencyUSD:  getEnvAsFloat("NATIVE_CURRENCY_PRICE_USD", 0),
		},
		Indexer: IndexerConfig{
			URL:      getEnv("INDEXER_URL", "https://api.studio.thegraph.com/query/66219/threelance/version/latest"),
			CacheTTL: getEnvAsDuration("INDEXER_CACHE_TTL", 30*time.Second),
			Timeout:  getEnvAsDuration("INDEXER_TIMEOUT", 10*time.Second),
		},
		RateLimit: RateLimitConfig{
			RPS:   getEnvAsFloat("RATE_LIMIT_RPS", 5),
			Burst: getEnvAsInt("RATE_LIMIT_BURST", 10),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvAsList splits a comma separated value, dropping empty items.
func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
