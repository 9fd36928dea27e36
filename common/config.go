package common

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

// Directories the service reads uploads from and writes export files to.
// Configure overwrites them.
var (
	UploadsDir = "uploads"
	ExportsDir = "exports"
)

// Config holds the service settings read from the environment.
type Config struct {
	Port           string
	DatabasePath   string
	UploadsDir     string
	ExportsDir     string
	LogLevel       string
	LogFormat      string
	JWTSecret      string
	DialectProfile string // path of the default dialect profile, optional
}

// LoadConfig reads a .env file when present, then the environment.
func LoadConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using environment variables")
	}

	return Config{
		Port:           getenv("PORT", "8080"),
		DatabasePath:   getenv("DATABASE_PATH", "csv-exchange.db"),
		UploadsDir:     getenv("UPLOADS_DIR", "uploads"),
		ExportsDir:     getenv("EXPORTS_DIR", "exports"),
		LogLevel:       getenv("LOG_LEVEL", "info"),
		LogFormat:      getenv("LOG_FORMAT", "text"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		DialectProfile: os.Getenv("DIALECT_PROFILE"),
	}
}

// Configure applies the directory settings of cfg.
func Configure(cfg Config) {
	if cfg.UploadsDir != "" {
		UploadsDir = cfg.UploadsDir
	}
	if cfg.ExportsDir != "" {
		ExportsDir = cfg.ExportsDir
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
