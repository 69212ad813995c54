// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/fernet/fernet-go"
	"github.com/joho/godotenv"

	"github.com/niveshio/panorama/internal/utils"
)

// Config holds application configuration
type Config struct {
	DataDir  string // Base directory for all databases (always absolute)
	Port     int
	LogLevel string
	DevMode  bool

	// Consolidation cycle tuning
	BrokerFetchTimeout time.Duration // Per-broker fetch deadline within a cycle
	CycleTimeout       time.Duration // Overall consolidation cycle deadline
	PerformerCount     int           // Entries in top/worst performer lists
	DominanceThreshold float64       // Allocation share (percent) above which a bucket is flagged

	// Scheduled refresh cadence
	RefreshIntervalOpen   time.Duration // While any tracked exchange is open
	RefreshIntervalClosed time.Duration // While all tracked exchanges are closed

	// Collaborator endpoints
	MarketDataURL     string
	MarketDataAPIKey  string
	ClassifyURL       string
	ClassifyAPIKey    string
	MarketStatusWSURL string // Empty disables the market status stream

	// Credential encryption key (base64 fernet key); required outside dev mode
	FernetKey string

	// CORS
	AllowedOrigins []string

	// Backup to S3-compatible object storage
	Backup *BackupConfig
}

// BackupConfig holds object storage backup configuration
type BackupConfig struct {
	Enabled       bool
	Endpoint      string // Custom endpoint for S3-compatible stores (R2, MinIO); empty for AWS
	Region        string
	Bucket        string
	AccessKeyID   string
	SecretKey     string
	RetentionDays int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	// Resolve the data directory to an absolute path and make sure it exists
	dataDir := getEnv("PANORAMA_DATA_DIR", "./data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:  absDataDir,
		Port:     getEnvAsInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		DevMode:  getEnvAsBool("DEV_MODE", false),

		BrokerFetchTimeout: getEnvAsDuration("BROKER_FETCH_TIMEOUT", 10*time.Second),
		CycleTimeout:       getEnvAsDuration("CYCLE_TIMEOUT", 30*time.Second),
		PerformerCount:     getEnvAsInt("PERFORMER_COUNT", 5),
		DominanceThreshold: getEnvAsFloat("DOMINANCE_THRESHOLD", 60.0),

		RefreshIntervalOpen:   getEnvAsDuration("REFRESH_INTERVAL_OPEN", 5*time.Minute),
		RefreshIntervalClosed: getEnvAsDuration("REFRESH_INTERVAL_CLOSED", time.Hour),

		MarketDataURL:     getEnv("MARKET_DATA_URL", ""),
		MarketDataAPIKey:  getEnv("MARKET_DATA_API_KEY", ""),
		ClassifyURL:       getEnv("CLASSIFY_URL", ""),
		ClassifyAPIKey:    getEnv("CLASSIFY_API_KEY", ""),
		MarketStatusWSURL: getEnv("MARKET_STATUS_WS_URL", ""),

		FernetKey: getEnv("FERNET_KEY", ""),

		AllowedOrigins: utils.ParseCSV(getEnv("ALLOWED_ORIGINS", "*")),

		Backup: loadBackupConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present and consistent
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}

	if c.BrokerFetchTimeout <= 0 {
		return fmt.Errorf("broker fetch timeout must be positive")
	}
	if c.CycleTimeout < c.BrokerFetchTimeout {
		return fmt.Errorf("cycle timeout (%s) must not be shorter than the per-broker timeout (%s)",
			c.CycleTimeout, c.BrokerFetchTimeout)
	}

	if c.DominanceThreshold <= 0 || c.DominanceThreshold > 100 {
		return fmt.Errorf("dominance threshold must be in (0, 100], got %v", c.DominanceThreshold)
	}

	// Credentials at rest must be encryptable. Dev mode may run without a
	// key (connections are then rejected at creation time instead).
	if c.FernetKey != "" {
		if _, err := fernet.DecodeKey(c.FernetKey); err != nil {
			return fmt.Errorf("FERNET_KEY is not a valid fernet key: %w", err)
		}
	} else if !c.DevMode {
		return fmt.Errorf("FERNET_KEY is required outside dev mode")
	}

	if c.Backup != nil && c.Backup.Enabled {
		if c.Backup.Bucket == "" {
			return fmt.Errorf("BACKUP_BUCKET is required when backup is enabled")
		}
		if c.Backup.AccessKeyID == "" || c.Backup.SecretKey == "" {
			return fmt.Errorf("backup credentials are required when backup is enabled")
		}
	}

	return nil
}

// loadBackupConfig loads object storage backup settings
func loadBackupConfig() *BackupConfig {
	return &BackupConfig{
		Enabled:       getEnvAsBool("BACKUP_ENABLED", false),
		Endpoint:      getEnv("BACKUP_ENDPOINT", ""),
		Region:        getEnv("BACKUP_REGION", "auto"),
		Bucket:        getEnv("BACKUP_BUCKET", ""),
		AccessKeyID:   getEnv("BACKUP_ACCESS_KEY_ID", ""),
		SecretKey:     getEnv("BACKUP_SECRET_ACCESS_KEY", ""),
		RetentionDays: getEnvAsInt("BACKUP_RETENTION_DAYS", 14),
	}
}

// Helper functions
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

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
