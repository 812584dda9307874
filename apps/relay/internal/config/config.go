package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DbURL       string
	KafkaBroker string
	KafkaTopic  string

	// Escrow key material. The derived address must match EscrowAddress;
	// a mismatch is fatal at startup.
	EscrowPrivateKey string
	EscrowAddress    string

	PollInterval     time.Duration
	MinConfirmations uint64

	// GasReserveWei is the minimum native balance the escrow account must
	// keep on a chain before a payout is attempted there. Same policy
	// constant for every chain, expressed in that chain's native unit.
	GasReserveWei uint64

	APIPort int

	CeloRpcURL     string
	BaseRpcURL     string
	ArbitrumRpcURL string
	OptimismRpcURL string
}

// NewConfig loads configuration from environment variables
func NewConfig() *Config {
	// Load .env file (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	return &Config{
		DbURL:            getEnvOrFatal("DB_URL"),
		KafkaBroker:      getEnvOrFatal("KAFKA_BROKER"),
		KafkaTopic:       getEnvOrFatal("KAFKA_TOPIC"),
		EscrowPrivateKey: getEnvOrFatal("ESCROW_PRIVATE_KEY"),
		EscrowAddress:    getEnvOrFatal("ESCROW_ADDRESS"),
		PollInterval:     time.Duration(getEnvInt("POLL_INTERVAL_SECONDS", 30)) * time.Second,
		MinConfirmations: getEnvUint64("MIN_CONFIRMATIONS", 1),
		GasReserveWei:    getEnvUint64("GAS_RESERVE_WEI", 1_000_000_000_000_000), // 0.001 native
		APIPort:          getEnvInt("API_PORT", 8080),
		CeloRpcURL:       getEnvOrFatal("CELO_RPC_URL"),
		BaseRpcURL:       getEnvOrFatal("BASE_RPC_URL"),
		ArbitrumRpcURL:   getEnvOrFatal("ARBITRUM_RPC_URL"),
		OptimismRpcURL:   getEnvOrFatal("OPTIMISM_RPC_URL"),
	}
}

func getEnvOrFatal(key string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	log.Fatalf("Warning: environment variable %s not set", key)

	return ""
}

func getEnvUint64(key string, defaultValue uint64) uint64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseUint(value, 10, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
