// Package config handles daemon configuration
package config

import (
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr        string
	RunRoot         string
	RegionsFile     string
	PoliciesFile    string
	TemplateDir     string
	TesseractBin    string
	OCRLanguage     string
	CaptureInterval int // milliseconds between frame analyses
	PHashMaxDist    int // frames within this pHash distance are skipped
	Aggregation     string
	ClickEnabled    bool
	RecordingOn     bool
}

// Load reads configuration from the environment, with a .env file as an
// optional source for unset variables
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env file", "error", err)
	}
	return &Config{
		HTTPAddr:        getEnv("HTTP_ADDR", ":8000"),
		RunRoot:         getEnv("RUN_ROOT", "debug_runs"),
		RegionsFile:     getEnv("REGIONS_FILE", "config/regions.yaml"),
		PoliciesFile:    getEnv("POLICIES_FILE", "config/policies.yaml"),
		TemplateDir:     getEnv("TEMPLATE_DIR", "config/templates"),
		TesseractBin:    getEnv("TESSERACT_BIN", "tesseract"),
		OCRLanguage:     getEnv("OCR_LANGUAGE", "eng"),
		CaptureInterval: getEnvInt("CAPTURE_INTERVAL_MS", 500),
		PHashMaxDist:    getEnvInt("PHASH_MAX_DISTANCE", 0),
		Aggregation:     getEnv("HYBRID_AGGREGATION", "min"),
		ClickEnabled:    getEnvBool("CLICK_ENABLED", false),
		RecordingOn:     getEnvBool("RECORDING_ENABLED", false),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "true" || v == "1"
	}
	return def
}
