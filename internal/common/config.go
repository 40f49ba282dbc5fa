package common

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Database   DatabaseConfig
	Server     ServerConfig
	OCR        OCRConfig
	Extraction ExtractionConfig
	Watch      WatchConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN              string
	InMemory         bool
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr string
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Engine      string // gosseract | cli
	Tesseract   string
	Pdftoppm    string
	Pdftotext   string
	Pdfinfo     string
	Lang        string
	TessdataDir string
	DPI         int
	PreviewDPI  int
	PSM         int
}

// ExtractionConfig holds limits and heuristics of the extraction pipeline
type ExtractionConfig struct {
	MaxFileSizeMB        int
	MaxImageSizeMB       int
	PageBatchSize        int
	ScannedCharThreshold int
	MaxOCRDocumentPages  int
	MaxOCRPages          int
	ImageMaxDimension    int
	BinarizeThreshold    int
	MinTextLength        int
}

// WatchConfig holds directory-watch configuration for the daemon
type WatchConfig struct {
	Dirs     []string
	Debounce time.Duration
	Workers  int
	Timeout  time.Duration
}

// LoadConfig loads configuration from an optional .env file and environment variables
func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug(".env file not found, using process environment")
	}
	return &Config{
		Database: DatabaseConfig{
			DSN:              getEnv("DB_URL", ""),
			InMemory:         getEnvAsBool("DB_INMEM", false),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 2),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		Server: ServerConfig{
			GRPCAddr: getEnv("GRPC_ADDR", ":8080"),
		},
		OCR: OCRConfig{
			Engine:      getEnv("OCR_ENGINE", "gosseract"),
			Tesseract:   getEnv("TESSERACT_BIN", "tesseract"),
			Pdftoppm:    getEnv("PDFTOPPM_BIN", "pdftoppm"),
			Pdftotext:   getEnv("PDFTOTEXT_BIN", "pdftotext"),
			Pdfinfo:     getEnv("PDFINFO_BIN", "pdfinfo"),
			Lang:        getEnv("OCR_LANG", "eng"),
			TessdataDir: getEnv("TESSDATA_PREFIX", ""),
			DPI:         getEnvAsInt("OCR_DPI", 300),
			PreviewDPI:  getEnvAsInt("PREVIEW_DPI", 100),
			PSM:         getEnvAsInt("OCR_PSM", 0),
		},
		Extraction: ExtractionConfig{
			MaxFileSizeMB:        getEnvAsInt("MAX_FILE_SIZE_MB", 50),
			MaxImageSizeMB:       getEnvAsInt("MAX_IMAGE_SIZE_MB", 20),
			PageBatchSize:        getEnvAsInt("PAGE_BATCH_SIZE", 8),
			ScannedCharThreshold: getEnvAsInt("SCANNED_CHAR_THRESHOLD", 20),
			MaxOCRDocumentPages:  getEnvAsInt("MAX_OCR_DOCUMENT_PAGES", 50),
			MaxOCRPages:          getEnvAsInt("MAX_OCR_PAGES", 10),
			ImageMaxDimension:    getEnvAsInt("IMAGE_MAX_DIMENSION", 2500),
			BinarizeThreshold:    getEnvAsInt("BINARIZE_THRESHOLD", 128),
			MinTextLength:        getEnvAsInt("MIN_TEXT_LENGTH", 10),
		},
		Watch: WatchConfig{
			Dirs:     getEnvAsList("WATCH_DIRS"),
			Debounce: getEnvAsDuration("WATCH_DEBOUNCE", 2*time.Second),
			Workers:  getEnvAsInt("WORKERS", 4),
			Timeout:  getEnvAsDuration("PROCESS_TIMEOUT", 3*time.Minute),
		},
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

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
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

// getEnvAsList splits on the OS path list separator and commas.
func getEnvAsList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	fields := strings.FieldsFunc(value, func(r rune) bool {
		return r == ',' || r == filepath.ListSeparator
	})
	out := fields[:0]
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// Validate validates the loaded configuration. Database settings are checked by InitDatabase.
func (c *Config) Validate() error {
	if c.Server.GRPCAddr == "" {
		return NewAppError("CONFIG_ERROR", "GRPC_ADDR is required", ErrInvalidInput)
	}
	switch c.OCR.Engine {
	case "gosseract", "cli":
	default:
		return NewAppError("CONFIG_ERROR", "OCR_ENGINE must be gosseract or cli, got "+strconv.Quote(c.OCR.Engine), ErrInvalidInput)
	}
	if c.Extraction.MaxImageSizeMB > c.Extraction.MaxFileSizeMB {
		return NewAppError("CONFIG_ERROR", "MAX_IMAGE_SIZE_MB must not exceed MAX_FILE_SIZE_MB", ErrInvalidInput)
	}
	if c.Extraction.MaxOCRPages > c.Extraction.MaxOCRDocumentPages {
		return NewAppError("CONFIG_ERROR", "MAX_OCR_PAGES must not exceed MAX_OCR_DOCUMENT_PAGES", ErrInvalidInput)
	}
	if c.Extraction.BinarizeThreshold < 1 || c.Extraction.BinarizeThreshold > 254 {
		return NewAppError("CONFIG_ERROR", "BINARIZE_THRESHOLD must be within 1..254", ErrInvalidInput)
	}
	return nil
}
