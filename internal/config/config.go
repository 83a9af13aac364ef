package config

import (
	"os"
	"strconv"
)

// MinIOConfig holds object storage settings for the archive bucket.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// URLExpirySec controls how long presigned download URLs stay valid.
	URLExpirySec int
}

// RegistryConfig holds settings for the server-side archive metadata registry.
type RegistryConfig struct {
	BaseURL    string
	TimeoutSec int
	Enabled    bool
}

// ActivityConfig holds settings for the fire-and-forget activity sink.
type ActivityConfig struct {
	Endpoint string
	Enabled  bool
}

// CacheConfig holds settings for the local durable cache.
type CacheConfig struct {
	Dir string
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	Port      string
	LogLevel  string
	LogFormat string
	MinIO     MinIOConfig
	Registry  RegistryConfig
	Activity  ActivityConfig
	Cache     CacheConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		Port:      getEnv("PORT", "8080"), // default only for non-sensitive value
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
		MinIO: MinIOConfig{
			Endpoint:     getEnv("MINIO_ENDPOINT", ""),
			AccessKey:    getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey:    getEnv("MINIO_SECRET_KEY", ""),
			Bucket:       getEnv("MINIO_BUCKET", "spreadsheet-archives"),
			UseSSL:       getEnvBool("MINIO_USE_SSL", false),
			URLExpirySec: getEnvInt("MINIO_URL_EXPIRY_SEC", 3600),
		},
		Registry: RegistryConfig{
			BaseURL:    getEnv("REGISTRY_BASE_URL", ""),
			TimeoutSec: getEnvInt("REGISTRY_TIMEOUT_SEC", 10),
			Enabled:    getEnvBool("REGISTRY_ENABLED", true),
		},
		Activity: ActivityConfig{
			Endpoint: getEnv("ACTIVITY_ENDPOINT", ""),
			Enabled:  getEnvBool("ACTIVITY_ENABLED", false),
		},
		Cache: CacheConfig{
			Dir: getEnv("CACHE_DIR", ".sheetvault"),
		},
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}
