package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Storage  StorageConfig
	Media    MediaConfig
	Credits  CreditsConfig
	Resend   ResendConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port            string
	Host            string
	Environment     string
	AllowedOrigins  []string
	ShutdownTimeout int
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host        string
	Port        string
	User        string
	Password    string
	Name        string
	SSLMode     string
	MaxConns    int
	MinConns    int
	AutoMigrate bool
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	AccessSecret string
	AccessExpiry time.Duration
}

// StorageConfig holds object storage configuration
type StorageConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	UseSSL          bool
	PublicURL       string
}

// MediaConfig holds audio/video processing configuration
type MediaConfig struct {
	FFmpegPath         string
	FFprobePath        string
	TempDir            string
	FetchTimeout       time.Duration
	VideoFetchTimeout  time.Duration
	MixTimeout         time.Duration
	MaxConcurrentMixes int
	MP3BitrateKbps     int
}

// CreditsConfig holds dubbing admission quotas
type CreditsConfig struct {
	FreeDailyLimit int
	AdDailyLimit   int
}

// ResendConfig holds the transactional email provider configuration
type ResendConfig struct {
	APIKey    string
	FromEmail string
	BaseURL   string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables or defaults")
	}

	config := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			Host:            getEnv("HOST", "0.0.0.0"),
			Environment:     getEnv("ENVIRONMENT", "development"),
			AllowedOrigins:  []string{getEnv("ALLOWED_ORIGINS", "http://localhost:3000")},
			ShutdownTimeout: getEnvAsInt("SHUTDOWN_TIMEOUT", 10),
		},
		Database: DatabaseConfig{
			Host:        getEnv("DB_HOST", "localhost"),
			Port:        getEnv("DB_PORT", "5432"),
			User:        getEnv("DB_USER", "postgres"),
			Password:    getEnv("DB_PASSWORD", "postgres"),
			Name:        getEnv("DB_NAME", "youdub"),
			SSLMode:     getEnv("DB_SSLMODE", "disable"),
			MaxConns:    getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:    getEnvAsInt("DB_MIN_CONNS", 5),
			AutoMigrate: getEnvAsBool("DB_AUTO_MIGRATE", false),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			AccessSecret: getEnv("JWT_ACCESS_SECRET", "your-access-secret-change-in-production"),
			AccessExpiry: getEnvAsDuration("JWT_ACCESS_EXPIRY", "15m"),
		},
		Storage: StorageConfig{
			Endpoint:        getEnv("STORAGE_ENDPOINT", "localhost:9000"),
			AccessKeyID:     getEnv("STORAGE_ACCESS_KEY", "minioadmin"),
			SecretAccessKey: getEnv("STORAGE_SECRET_KEY", "minioadmin"),
			BucketName:      getEnv("STORAGE_BUCKET", "youdub"),
			UseSSL:          getEnvAsBool("STORAGE_USE_SSL", false),
			PublicURL:       getEnv("STORAGE_PUBLIC_URL", ""),
		},
		Media: MediaConfig{
			FFmpegPath:         getEnv("FFMPEG_PATH", "ffmpeg"),
			FFprobePath:        getEnv("FFPROBE_PATH", "ffprobe"),
			TempDir:            getEnv("MEDIA_TEMP_DIR", os.TempDir()),
			FetchTimeout:       getEnvAsDuration("MEDIA_FETCH_TIMEOUT", "60s"),
			VideoFetchTimeout:  getEnvAsDuration("MEDIA_VIDEO_FETCH_TIMEOUT", "120s"),
			MixTimeout:         getEnvAsDuration("MEDIA_MIX_TIMEOUT", "5m"),
			MaxConcurrentMixes: getEnvAsInt("MEDIA_MAX_CONCURRENT_MIXES", 2),
			MP3BitrateKbps:     getEnvAsInt("MEDIA_MP3_BITRATE_KBPS", 192),
		},
		Credits: CreditsConfig{
			FreeDailyLimit: getEnvAsInt("CREDITS_FREE_DAILY_LIMIT", 3),
			AdDailyLimit:   getEnvAsInt("CREDITS_AD_DAILY_LIMIT", 5),
		},
		Resend: ResendConfig{
			APIKey:    getEnv("RESEND_API_KEY", ""),
			FromEmail: getEnv("RESEND_FROM_EMAIL", "YouDub <no-reply@youdub.app>"),
			BaseURL:   getEnv("RESEND_BASE_URL", "https://api.resend.com"),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Media.MP3BitrateKbps <= 0 {
		return fmt.Errorf("MEDIA_MP3_BITRATE_KBPS must be positive")
	}
	if c.Media.MaxConcurrentMixes < 1 {
		return fmt.Errorf("MEDIA_MAX_CONCURRENT_MIXES must be at least 1")
	}
	if c.Server.Environment == "production" && c.JWT.AccessSecret == "your-access-secret-change-in-production" {
		return fmt.Errorf("JWT_ACCESS_SECRET must be set in production")
	}
	return nil
}

// GetDatabaseDSN returns the database connection string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// GetRedisAddr returns the Redis address
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}
	return duration
}
