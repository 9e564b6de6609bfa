package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	S3        S3Config
	Scheduler SchedulerConfig
	Tax       TaxConfig
}

type ServerConfig struct {
	Port        string
	GinMode     string
	Environment string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Host            string
	Port            string
	Password        string
	DB              int
	SummaryCacheTTL time.Duration
}

type JWTConfig struct {
	Secret string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type S3Config struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	DownloadURLTTL  time.Duration // signed download link lifetime
	UploadURLTTL    time.Duration
}

type SchedulerConfig struct {
	Enabled       bool
	Spec          string // cron expression, evaluated in UTC
	Concurrency   int
}

type TaxConfig struct {
	DefaultCountry  string
	DefaultCurrency string
}

func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("SERVER_PORT", "8080"),
			GinMode:     getEnv("GIN_MODE", "debug"),
			Environment: getEnv("ENVIRONMENT", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "admin"),
			Password: getEnv("DB_PASSWORD", "1234"),
			DBName:   getEnv("DB_NAME", "taxfiling"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:            getEnv("REDIS_HOST", "localhost"),
			Port:            getEnv("REDIS_PORT", "6379"),
			Password:        getEnv("REDIS_PASSWORD", ""),
			DB:              parseInt(getEnv("REDIS_DB", "0"), 0),
			SummaryCacheTTL: parseDuration(getEnv("SUMMARY_CACHE_TTL", "5m"), 5*time.Minute),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "your-secret-key"),
		},
		CORS: CORSConfig{
			AllowedOrigins: parseSlice(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		},
		S3: S3Config{
			Region:          getEnv("AWS_REGION", "eu-central-1"),
			Bucket:          getEnv("AWS_S3_BUCKET", "taxfiling-reports"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			DownloadURLTTL:  parseDuration(getEnv("REPORT_DOWNLOAD_URL_TTL", "10m"), 10*time.Minute),
			UploadURLTTL:    parseDuration(getEnv("REPORT_UPLOAD_URL_TTL", "15m"), 15*time.Minute),
		},
		Scheduler: SchedulerConfig{
			Enabled:       parseBool(getEnv("SCHEDULER_ENABLED", "true")),
			Spec:          getEnv("SCHEDULER_SPEC", "0 2 1 * *"),
			Concurrency:   parseInt(getEnv("SCHEDULER_CONCURRENCY", "4"), 4),
		},
		Tax: TaxConfig{
			DefaultCountry:  strings.ToUpper(getEnv("TAX_DEFAULT_COUNTRY", "DE")),
			DefaultCurrency: strings.ToUpper(getEnv("TAX_DEFAULT_CURRENCY", "EUR")),
		},
	}

	if config.Scheduler.Concurrency < 1 {
		return nil, fmt.Errorf("SCHEDULER_CONCURRENCY must be at least 1, got %d", config.Scheduler.Concurrency)
	}

	return config, nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	duration, err := time.ParseDuration(s)
	if err != nil {
		log.Printf("Invalid duration %s, using default %s", s, fallback)
		return fallback
	}
	return duration
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Printf("Invalid integer %s, using default %d", s, fallback)
		return fallback
	}
	return n
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(s)
	return err == nil && b
}

func parseSlice(s string) []string {
	if s == "" {
		return []string{}
	}
	var result []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
