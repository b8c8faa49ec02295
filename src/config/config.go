package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	Port               string
	DatabasePath       string
	LogLevel           string
	NavSourceURL       string
	FairValueDataPath  string
	MaxUploadSizeBytes int64
	NavCacheTTL        time.Duration
	ReportCacheTTL     time.Duration
}

var Cfg *AppConfig

func LoadConfig() {
	errEnv := godotenv.Load()
	if errEnv != nil {
		log.Println("Info: No .env file found or error loading .env file. Relying on OS environment variables and defaults. Error (if any):", errEnv)
	} else {
		log.Println(".env file loaded successfully.")
	}

	log.Println("Loading application configuration...")

	maxUploadSizeBytesStr := getEnv("MAX_UPLOAD_SIZE_BYTES", "10485760")
	maxUploadSizeBytes, err := strconv.ParseInt(maxUploadSizeBytesStr, 10, 64)
	if err != nil {
		log.Printf("WARNING: Invalid MAX_UPLOAD_SIZE_BYTES format '%s'. Using default 10MB. Error: %v", maxUploadSizeBytesStr, err)
		maxUploadSizeBytes = 10 * 1024 * 1024
	}

	navCacheTTLStr := getEnv("NAV_CACHE_TTL", "6h")
	navCacheTTL, err := time.ParseDuration(navCacheTTLStr)
	if err != nil {
		log.Printf("WARNING: Invalid NAV_CACHE_TTL format '%s'. Using default 6h. Error: %v", navCacheTTLStr, err)
		navCacheTTL = 6 * time.Hour
	}

	reportCacheTTLStr := getEnv("REPORT_CACHE_TTL", "15m")
	reportCacheTTL, err := time.ParseDuration(reportCacheTTLStr)
	if err != nil {
		log.Printf("WARNING: Invalid REPORT_CACHE_TTL format '%s'. Using default 15m. Error: %v", reportCacheTTLStr, err)
		reportCacheTTL = 15 * time.Minute
	}

	Cfg = &AppConfig{
		Port:               getEnv("PORT", "8080"),
		DatabasePath:       getEnv("DATABASE_PATH", "./fundfolio.db"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		NavSourceURL:       getEnv("NAV_SOURCE_URL", "https://www.amfiindia.com/spages/NAVOpen.txt"),
		FairValueDataPath:  getEnv("FAIR_VALUE_DATA_PATH", "data/fairValue20180131.json"),
		MaxUploadSizeBytes: maxUploadSizeBytes,
		NavCacheTTL:        navCacheTTL,
		ReportCacheTTL:     reportCacheTTL,
	}
	log.Println("Application configuration loaded.")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}
