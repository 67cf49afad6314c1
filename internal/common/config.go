package common

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joseph-ayodele/pallet-tracker/constants"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	OCR      OCRConfig
	Lookup   LookupConfig
	LogLevel string
}

// DatabaseConfig holds store-related configuration
type DatabaseConfig struct {
	Driver           string
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// ServerConfig holds daemon-related configuration
type ServerConfig struct {
	GRPCAddr   string
	InboxDir   string
	Workers    int
	QueueSize  int
	RunTimeout time.Duration
}

// OCRConfig holds rasterization and recognition configuration
type OCRConfig struct {
	Pdftoppm         string
	Tesseract        string
	TesseractLang    string
	TessdataDir      string
	BaseDPI          int
	Scale            float64
	PSM              int
	OEM              int
	ArtifactCacheDir string
}

// LookupConfig throttles store queries issued by a lookup. QPS <= 0 disables throttling.
type LookupConfig struct {
	QPS   float64
	Burst int
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:           strings.ToLower(getEnv("STORE_DRIVER", constants.DriverSQLite)),
			DSN:              getEnv("DB_URL", "pallets.db"),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 10),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 1),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		Server: ServerConfig{
			GRPCAddr:   getEnv("GRPC_ADDR", ":8080"),
			InboxDir:   getEnv("INBOX_DIR", ""),
			Workers:    getEnvAsInt("INGEST_WORKERS", 2),
			QueueSize:  getEnvAsInt("INGEST_QUEUE_SIZE", 64),
			RunTimeout: getEnvAsDuration("INGEST_RUN_TIMEOUT", 30*time.Minute),
		},
		OCR: OCRConfig{
			Pdftoppm:         getEnv("PDFTOPPM", "pdftoppm"),
			Tesseract:        getEnv("TESSERACT", "tesseract"),
			TesseractLang:    getEnv("TESSERACT_LANG", "eng"),
			TessdataDir:      getEnv("TESSDATA_PREFIX", ""),
			BaseDPI:          getEnvAsInt("OCR_BASE_DPI", 72),
			Scale:            getEnvAsFloat64("OCR_SCALE", 2.0),
			PSM:              getEnvAsInt("OCR_PSM", 0),
			OEM:              getEnvAsInt("OCR_OEM", 0),
			ArtifactCacheDir: getEnv("ARTIFACT_CACHE_DIR", ""),
		},
		Lookup: LookupConfig{
			QPS:   getEnvAsFloat64("LOOKUP_QPS", 0),
			Burst: getEnvAsInt("LOOKUP_BURST", 1),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// Helper functions for environment variable parsing
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

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
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

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case constants.DriverPostgres, constants.DriverSQLite, constants.DriverBadger:
	default:
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("STORE_DRIVER %q is not supported", c.Database.Driver), ErrInvalidInput)
	}
	if c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL is required", ErrInvalidInput)
	}
	if c.OCR.Scale <= 0 {
		return NewAppError("CONFIG_ERROR", "OCR_SCALE must be positive", ErrInvalidInput)
	}
	if c.OCR.BaseDPI <= 0 {
		return NewAppError("CONFIG_ERROR", "OCR_BASE_DPI must be positive", ErrInvalidInput)
	}
	if c.Server.GRPCAddr == "" {
		return NewAppError("CONFIG_ERROR", "GRPC_ADDR is required", ErrInvalidInput)
	}
	return nil
}

// ParseLogLevel maps debug|info|warn|error to a slog level, defaulting to info.
func ParseLogLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
