package config

import (
	"fmt"
	"os"
)

// Config holds kernel process configuration.
type Config struct {
	LogLevel      string
	LedgerBackend string // "file" | "sqlite" | "postgres"
	LedgerPath    string
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	MasterSecret  string
	ProfilesDir   string
	OTLPEnabled   bool
	OTLPEndpoint  string
}

// Load loads configuration from environment variables.
func Load() *Config {
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "INFO"
	}

	backend := os.Getenv("LEDGER_BACKEND")
	if backend == "" {
		backend = "file"
	}

	ledgerPath := os.Getenv("LEDGER_PATH")
	if ledgerPath == "" {
		ledgerPath = "kt-ledger.jsonl"
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		// Default to local generic postgres
		dbURL = "postgres://kt@localhost:5432/kt?sslmode=disable"
	}

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	otlpEndpoint := os.Getenv("OTLP_ENDPOINT")
	if otlpEndpoint == "" {
		otlpEndpoint = "localhost:4317"
	}

	return &Config{
		LogLevel:      logLevel,
		LedgerBackend: backend,
		LedgerPath:    ledgerPath,
		DatabaseURL:   dbURL,
		RedisAddr:     redisAddr,
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		MasterSecret:  os.Getenv("MASTER_SECRET"),
		ProfilesDir:   os.Getenv("PROFILES_DIR"),
		OTLPEnabled:   os.Getenv("OTLP_ENABLED") == "true",
		OTLPEndpoint:  otlpEndpoint,
	}
}

// Validate rejects configurations the process cannot start with.
func (c *Config) Validate() error {
	switch c.LedgerBackend {
	case "file", "sqlite", "postgres":
	default:
		return fmt.Errorf("config: unknown ledger backend %q", c.LedgerBackend)
	}
	if c.LedgerBackend == "file" && c.LedgerPath == "" {
		return fmt.Errorf("config: LEDGER_PATH required for file backend")
	}
	if (c.LedgerBackend == "sqlite" || c.LedgerBackend == "postgres") && c.DatabaseURL == "" {
		return fmt.Errorf("config: DATABASE_URL required for %s backend", c.LedgerBackend)
	}
	return nil
}
