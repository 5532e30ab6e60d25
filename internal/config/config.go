package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL         string
	EHealthAPIURL       string
	EHealthClientID     string
	EHealthClientSecret string
	TokenEncryptionKey  string // base64, 32 bytes once decoded
	ListenAddr          string
	PollInterval        int // seconds
	RequestsPerMinute   int    // eHealth quota, drives the page-fetch delay
	WorkerSlots         int
	ShutdownTimeout     int // seconds
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists (ignore error in production)
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	apiURL := os.Getenv("EHEALTH_API_URL")
	if apiURL == "" {
		return nil, fmt.Errorf("EHEALTH_API_URL is required")
	}

	encKey := os.Getenv("TOKEN_ENCRYPTION_KEY")
	if encKey == "" {
		return nil, fmt.Errorf("TOKEN_ENCRYPTION_KEY is required")
	}

	clientID := os.Getenv("EHEALTH_CLIENT_ID")
	clientSecret := os.Getenv("EHEALTH_CLIENT_SECRET")
	if clientID == "" || clientSecret == "" {
		fmt.Println("Warning: EHEALTH_CLIENT_ID or EHEALTH_CLIENT_SECRET not set, token acquisition will not work")
	}

	return &Config{
		DatabaseURL:         dbURL,
		EHealthAPIURL:       apiURL,
		EHealthClientID:     clientID,
		EHealthClientSecret: clientSecret,
		TokenEncryptionKey:  encKey,
		ListenAddr:          strEnv("LISTEN_ADDR", ":8080"),
		PollInterval:        intEnv("POLL_INTERVAL", 5),
		RequestsPerMinute:   intEnv("EHEALTH_REQUESTS_PER_MINUTE", 50),
		WorkerSlots:         intEnv("WORKER_SLOTS", 5),
		ShutdownTimeout:     intEnv("SHUTDOWN_TIMEOUT", 30),
	}, nil
}

func strEnv(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}

// intEnv reads an integer env var, falling back to def when unset or
// malformed.
func intEnv(name string, def int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}
