// package config provides the environment-backed configuration loader used
// by the Command Center bootstrap (cmd/command-center/main.go).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds the runtime config values used by main.go.
type Config struct {
	ListenAddr      string // LISTEN_ADDR (default :8080)
	DatabaseURL     string // DATABASE_URL (required)
	OrchestratorURL string // ORCHESTRATOR_URL (required)

	KafkaBrokers []string // KAFKA_BROKERS (comma-separated; empty disables realtime)
	KafkaTopic   string   // KAFKA_TOPIC (default process-event-changes)
	KafkaGroupID string   // KAFKA_GROUP_ID (default command-center)

	SessionSecret string // SESSION_SECRET (HMAC key for dashboard session tokens)
	FetchLimit    int    // FETCH_LIMIT (default 1000)

	S3Bucket string // S3_BUCKET (empty disables decision archiving)
	S3Prefix string // S3_PREFIX (optional)

	TLSCertPath string // TLS_CERT_PATH
	TLSKeyPath  string // TLS_KEY_PATH
}

// Load reads config values from environment variables. It returns an error
// for the two values the service cannot run without; everything else has a
// sensible default or degrades a feature.
func Load() (*Config, error) {
	cfg := &Config{
		ListenAddr:      getEnv("LISTEN_ADDR", ":8080"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		OrchestratorURL: os.Getenv("ORCHESTRATOR_URL"),
		KafkaTopic:      getEnv("KAFKA_TOPIC", "process-event-changes"),
		KafkaGroupID:    getEnv("KAFKA_GROUP_ID", "command-center"),
		SessionSecret:   os.Getenv("SESSION_SECRET"),
		FetchLimit:      getInt("FETCH_LIMIT", 1000),
		S3Bucket:        os.Getenv("S3_BUCKET"),
		S3Prefix:        os.Getenv("S3_PREFIX"),
		TLSCertPath:     os.Getenv("TLS_CERT_PATH"),
		TLSKeyPath:      os.Getenv("TLS_KEY_PATH"),
	}

	if raw := strings.TrimSpace(os.Getenv("KAFKA_BROKERS")); raw != "" {
		for _, b := range strings.Split(raw, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL required")
	}
	if cfg.OrchestratorURL == "" {
		return nil, fmt.Errorf("ORCHESTRATOR_URL required")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
