package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the report service
type Config struct {
	// Server configuration
	Port           string
	AllowedOrigins []string

	// Classifier configuration
	LLMProvider          string
	GeminiAPIKey         string
	GeminiModel          string
	OpenAIAPIKey         string
	OpenAIModel          string
	ClassifierTimeout    time.Duration
	ClassifierTrashCheck bool

	// Media configuration
	MediaDir           string
	MediaBaseURL       string
	MediaDecodeTimeout time.Duration
	MaxUploadBytes     int64
	FFmpegPath         string
	FFprobePath        string

	// Storage configuration
	StorageBackend   string
	StorageKeyPrefix string
	Redis            RedisConfig
	DB               DBConfig

	// Geocoding configuration
	GeocodeBaseURL string
	GeocodeRegion  string
	GeocodeTimeout time.Duration

	// RabbitMQ configuration
	RabbitMQ RabbitMQConfig

	// Demo auto-refresh
	SimulatorEnabled  bool
	SimulatorInterval time.Duration

	// Rewards
	RewardPoints int

	// Logging
	LogLevel string
}

// RedisConfig points at the key-value mirror when STORAGE_BACKEND=redis
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Addr returns host:port
func (r RedisConfig) Addr() string {
	return r.Host + ":" + r.Port
}

// DBConfig points at MySQL when STORAGE_BACKEND=mysql
type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

// DSN returns the go-sql-driver/mysql data source name
func (d DBConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&multiStatements=true", d.User, d.Password, d.Host, d.Port, d.Name)
}

// RabbitMQConfig holds the event publisher settings. Publishing is disabled when Host is empty.
type RabbitMQConfig struct {
	Host             string
	Port             string
	User             string
	Password         string
	Exchange         string
	ReportRoutingKey string
	StatusRoutingKey string
}

// GetAMQPURL returns the AMQP URL
func (r RabbitMQConfig) GetAMQPURL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s/", r.User, r.Password, r.Host, r.Port)
}

// Enabled reports whether a broker host is configured
func (r RabbitMQConfig) Enabled() bool {
	return r.Host != ""
}

// Load loads configuration from environment variables.
// A .env file in the working directory is read first when present.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warnf("Failed to read .env file: %v", err)
	}

	config := &Config{
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: getStringSliceEnv("ALLOWED_ORIGINS", "*"),

		LLMProvider:          strings.ToLower(getEnv("LLM_PROVIDER", "gemini")),
		GeminiAPIKey:         getEnv("GEMINI_API_KEY", ""),
		GeminiModel:          getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		OpenAIAPIKey:         getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:          getEnv("OPENAI_MODEL", "gpt-4o"),
		ClassifierTimeout:    getDurationEnv("CLASSIFIER_TIMEOUT", 30*time.Second),
		ClassifierTrashCheck: getBoolEnv("CLASSIFIER_TRASH_CHECK", true),

		MediaDir:           getEnv("MEDIA_DIR", "./data/media"),
		MediaBaseURL:       getEnv("MEDIA_BASE_URL", "/media"),
		MediaDecodeTimeout: getDurationEnv("MEDIA_DECODE_TIMEOUT", 10*time.Second),
		MaxUploadBytes:     int64(getIntEnv("MAX_UPLOAD_MB", 64)) << 20,
		FFmpegPath:         getEnv("FFMPEG_PATH", "ffmpeg"),
		FFprobePath:        getEnv("FFPROBE_PATH", "ffprobe"),

		StorageBackend:   strings.ToLower(getEnv("STORAGE_BACKEND", "memory")),
		StorageKeyPrefix: getEnv("STORAGE_KEY_PREFIX", "daNangGreen"),
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "127.0.0.1"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASS", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "3306"),
			User:     getEnv("DB_USER", "server"),
			Password: getEnv("DB_PASSWORD", "secret_app"),
			Name:     getEnv("DB_NAME", "danang_green"),
		},

		GeocodeBaseURL: getEnv("GEOCODE_BASE_URL", "https://nominatim.openstreetmap.org"),
		GeocodeRegion:  getEnv("GEOCODE_REGION", "Đà Nẵng, Việt Nam"),
		GeocodeTimeout: getDurationEnv("GEOCODE_TIMEOUT", 10*time.Second),

		RabbitMQ: RabbitMQConfig{
			Host:             getEnv("RABBITMQ_HOST", ""),
			Port:             getEnv("RABBITMQ_PORT", "5672"),
			User:             getEnv("RABBITMQ_USER", "guest"),
			Password:         getEnv("RABBITMQ_PASSWORD", "guest"),
			Exchange:         getEnv("RABBITMQ_EXCHANGE", "danang-green"),
			ReportRoutingKey: getEnv("RABBITMQ_REPORT_ROUTING_KEY", "report.created"),
			StatusRoutingKey: getEnv("RABBITMQ_STATUS_ROUTING_KEY", "report.status"),
		},

		SimulatorEnabled:  getBoolEnv("SIMULATOR_ENABLED", false),
		SimulatorInterval: getDurationEnv("SIMULATOR_INTERVAL", 30*time.Second),

		RewardPoints: getIntEnv("REWARD_POINTS", 10),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	return config
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDurationEnv gets a duration environment variable or returns a default value
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		log.Warnf("Invalid %s=%q, using default %v", key, value, defaultValue)
	}
	return defaultValue
}

// getIntEnv gets an integer environment variable or returns a default value
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
		log.Warnf("Invalid %s=%q, using default %d", key, value, defaultValue)
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getStringSliceEnv gets a comma-separated environment variable as a slice
func getStringSliceEnv(key, defaultValue string) []string {
	value := getEnv(key, defaultValue)
	if value == "" {
		return []string{}
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
