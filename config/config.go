package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Source names accepted by DEALS_SOURCE.
const (
	SourceHTTP     = "http"
	SourceCSV      = "csv"
	SourcePostgres = "postgres"
	SourceSQLite   = "sqlite"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	DealsSource string

	DealsSheetURL string
	TiersSheetURL string
	DealsCSVPath  string
	TiersCSVPath  string

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	SQLitePath string
	DealsTable string
	TiersTable string

	HTTPTimeoutSec int
	MaxRetries     int
	CacheSize      int
	SourceTTLSec   int

	ListenAddr     string
	LogLevel       string
	SummaryCSVPath string

	// AdminPassword gates the financial view in the presentation layer.
	AdminPassword string
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		DealsSource: getEnv("DEALS_SOURCE", SourceHTTP),

		DealsSheetURL: getEnv("DEALS_SHEET_URL", ""),
		TiersSheetURL: getEnv("TIERS_SHEET_URL", ""),
		DealsCSVPath:  getEnv("DEALS_CSV_PATH", "./data/deals.csv"),
		TiersCSVPath:  getEnv("TIERS_CSV_PATH", "./data/mao_tiers.csv"),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "dashboard"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "dashboard"),
		PostgresDB:       getEnv("POSTGRES_DB", "deals_db"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		SQLitePath: getEnv("SQLITE_PATH", "./data/deals.db"),
		DealsTable: getEnv("DEALS_TABLE", "deals"),
		TiersTable: getEnv("TIERS_TABLE", "mao_tiers"),

		HTTPTimeoutSec: getEnvInt("HTTP_TIMEOUT_SEC", 30),
		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		CacheSize:      getEnvInt("CACHE_SIZE", 8),
		SourceTTLSec:   getEnvInt("SOURCE_TTL_SEC", 300),

		ListenAddr:     getEnv("LISTEN_ADDR", ":8080"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		SummaryCSVPath: getEnv("SUMMARY_CSV_PATH", "./output/county_gp_summary.csv"),

		AdminPassword: getEnv("SALES_MANAGER_PASSWORD", ""),
	}
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}
