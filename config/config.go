package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/viper"
)

type Config struct {
	Environment       string `mapstructure:"EDU_ENVIRONMENT"`
	ServerName        string `mapstructure:"EDU_SERVER_NAME"`
	ServerAddress     string `mapstructure:"EDU_SERVER_BIND_ADDR"`
	ServerReadTimeout int16  `mapstructure:"EDU_SERVER_READ_TIMEOUT"`
	LogFormat         string `mapstructure:"EDU_LOG_FORMAT"` // text or json
	LogLevel          string `mapstructure:"EDU_LOG_LEVEL"`  // debug, info, warn, error
	RateLimitMax      int    `mapstructure:"EDU_RATE_LIMIT_MAX"`
	RateLimitWindow   int    `mapstructure:"EDU_RATE_LIMIT_WINDOW"`

	DbHost           string `mapstructure:"EDU_DB_HOST"`
	DbPort           int16  `mapstructure:"EDU_DB_PORT"`
	DbSSLMode        string `mapstructure:"EDU_DB_SSL"`
	DbUser           string `mapstructure:"EDU_DB_USER"`
	DbPassword       string `mapstructure:"EDU_DB_PASSWORD"`
	DbDatabaseName   string `mapstructure:"EDU_DB_DATABASE"`
	DbMaxConnections int    `mapstructure:"EDU_DB_MAX_CONNECTIONS"`

	// Redis (Notion content cache)
	RedisHost string `mapstructure:"EDU_REDIS_HOST"`
	RedisPort int16  `mapstructure:"EDU_REDIS_PORT"`
	RedisDb   int    `mapstructure:"EDU_REDIS_DB"`
	RedisUser string `mapstructure:"EDU_REDIS_USER"`
	RedisPass string `mapstructure:"EDU_REDIS_PASS"`

	OtlpEndpoint   string `mapstructure:"EDU_OTLP_ENDPOINT"`
	JaegerEndpoint string `mapstructure:"EDU_JAEGER_ENDPOINT"`

	// Authentication core
	SecretKey             string `mapstructure:"EDU_SECRET_KEY"`
	BotAPIToken           string `mapstructure:"EDU_BOT_API_TOKEN"`
	OTPExpireSeconds      int    `mapstructure:"EDU_OTP_EXPIRE_SECONDS"`
	DeepLinkMaxAgeSeconds int    `mapstructure:"EDU_DEEP_LINK_MAX_AGE_SECONDS"`
	TelegramBotUsername   string `mapstructure:"EDU_TELEGRAM_BOT_USERNAME"`

	// Telegram Bot Relay
	TelegramBotToken string `mapstructure:"EDU_TELEGRAM_BOT_TOKEN"`
	TelegramDebug    bool   `mapstructure:"EDU_TELEGRAM_DEBUG"`
	BackendURL       string `mapstructure:"EDU_BACKEND_URL"`

	// Kinescope video hosting
	KinescopeAPIKey  string `mapstructure:"EDU_KINESCOPE_API_KEY"`
	KinescopeBaseURL string `mapstructure:"EDU_KINESCOPE_BASE_URL"`

	// Notion lesson content
	NotionAPIKey  string `mapstructure:"EDU_NOTION_API_KEY"`
	NotionVersion string `mapstructure:"EDU_NOTION_VERSION"`

	// Cloud Storage Configuration (lesson materials)
	CloudProvider                string `mapstructure:"EDU_CLOUD_PROVIDER"`
	AzureStorageConnectionString string `mapstructure:"EDU_AZURE_STORAGE_CONNECTION_STRING"`
	AzureStorageAccountName      string `mapstructure:"EDU_AZURE_STORAGE_ACCOUNT_NAME"`
	AzureStorageAccountKey       string `mapstructure:"EDU_AZURE_STORAGE_ACCOUNT_KEY"`
	AzureStorageContainerName    string `mapstructure:"EDU_AZURE_STORAGE_CONTAINER_NAME"`
	AzureStorageBaseURL          string `mapstructure:"EDU_AZURE_STORAGE_BASE_URL"`
	AzureStorageUseHTTPS         bool   `mapstructure:"EDU_AZURE_STORAGE_USE_HTTPS"`
}

// DefaultConfig generates a config with sane defaults.
// See: The example .env file in the package docs for default values.
func DefaultConfig() Config {
	return Config{
		Environment:       "local",
		ServerAddress:     "0.0.0.0:3001",
		ServerReadTimeout: 60,
		LogFormat:         "text",
		LogLevel:          "info",
		RateLimitMax:      100,
		RateLimitWindow:   30,

		DbHost:           "localhost",
		DbPort:           5432,
		DbSSLMode:        "disable",
		DbUser:           "postgres",
		DbPassword:       "postgres",
		DbDatabaseName:   "course-platform",
		DbMaxConnections: 100,

		RedisHost: "localhost",
		RedisPort: 6379,
		RedisDb:   0,
		RedisUser: "redis",
		RedisPass: "redis",

		OtlpEndpoint:   "localhost:4317",
		JaegerEndpoint: "http://localhost:14268/api/traces",

		SecretKey:             "",
		BotAPIToken:           "",
		OTPExpireSeconds:      30,
		DeepLinkMaxAgeSeconds: 300,
		TelegramBotUsername:   "eduplatform_bot",

		TelegramBotToken: "",
		TelegramDebug:    false,
		BackendURL:       "http://localhost:3001",

		KinescopeAPIKey:  "",
		KinescopeBaseURL: "https://api.kinescope.io/v1",

		NotionAPIKey:  "",
		NotionVersion: "2022-06-28",

		CloudProvider:                "azure",
		AzureStorageConnectionString: "",
		AzureStorageAccountName:      "",
		AzureStorageAccountKey:       "",
		AzureStorageContainerName:    "materials",
		AzureStorageBaseURL:          "",
		AzureStorageUseHTTPS:         true,
	}
}

// LoadConfig will attempt to load a configuration from the default file location and fallback to environment variables.
func LoadConfig() (Config, error) {
	envFile := os.Getenv("EDU_ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}

	var cfg Config
	var err error

	if _, err = os.Stat(envFile); errors.Is(err, os.ErrNotExist) {
		cfg, err = ConfigFromEnvironment()
	} else {
		// Load configuration
		cfg, err = ConfigFromFile(envFile)
	}

	return cfg, err
}

// ConfigFromEnvironment will look for the specified configuration from environment variables
// See package docs for a list of available environment variables.
func ConfigFromEnvironment() (config Config, err error) {
	// Set defaults
	config = DefaultConfig()
	viper.SetDefault("EDU_ENVIRONMENT", config.Environment)
	viper.SetDefault("EDU_SERVER_BIND_ADDR", config.ServerAddress)
	viper.SetDefault("EDU_SERVER_READ_TIMEOUT", config.ServerReadTimeout)
	viper.SetDefault("EDU_LOG_LEVEL", config.LogLevel)
	viper.SetDefault("EDU_LOG_FORMAT", config.LogFormat)
	viper.SetDefault("EDU_RATE_LIMIT_MAX", config.RateLimitMax)
	viper.SetDefault("EDU_RATE_LIMIT_WINDOW", config.RateLimitWindow)
	viper.SetDefault("EDU_DB_HOST", config.DbHost)
	viper.SetDefault("EDU_DB_PORT", config.DbPort)
	viper.SetDefault("EDU_DB_SSL", config.DbSSLMode)
	viper.SetDefault("EDU_DB_USER", config.DbUser)
	viper.SetDefault("EDU_DB_PASSWORD", config.DbPassword)
	viper.SetDefault("EDU_DB_DATABASE", config.DbDatabaseName)
	viper.SetDefault("EDU_DB_MAX_CONNECTIONS", config.DbMaxConnections)
	viper.SetDefault("EDU_REDIS_HOST", config.RedisHost)
	viper.SetDefault("EDU_REDIS_PORT", config.RedisPort)
	viper.SetDefault("EDU_REDIS_USER", config.RedisUser)
	viper.SetDefault("EDU_REDIS_PASS", config.RedisPass)
	viper.SetDefault("EDU_REDIS_DB", config.RedisDb)
	viper.SetDefault("EDU_OTLP_ENDPOINT", config.OtlpEndpoint)
	viper.SetDefault("EDU_JAEGER_ENDPOINT", config.JaegerEndpoint)
	viper.SetDefault("EDU_SECRET_KEY", config.SecretKey)
	viper.SetDefault("EDU_BOT_API_TOKEN", config.BotAPIToken)
	viper.SetDefault("EDU_OTP_EXPIRE_SECONDS", config.OTPExpireSeconds)
	viper.SetDefault("EDU_DEEP_LINK_MAX_AGE_SECONDS", config.DeepLinkMaxAgeSeconds)
	viper.SetDefault("EDU_TELEGRAM_BOT_USERNAME", config.TelegramBotUsername)
	viper.SetDefault("EDU_TELEGRAM_BOT_TOKEN", config.TelegramBotToken)
	viper.SetDefault("EDU_TELEGRAM_DEBUG", config.TelegramDebug)
	viper.SetDefault("EDU_BACKEND_URL", config.BackendURL)
	viper.SetDefault("EDU_KINESCOPE_API_KEY", config.KinescopeAPIKey)
	viper.SetDefault("EDU_KINESCOPE_BASE_URL", config.KinescopeBaseURL)
	viper.SetDefault("EDU_NOTION_API_KEY", config.NotionAPIKey)
	viper.SetDefault("EDU_NOTION_VERSION", config.NotionVersion)
	viper.SetDefault("EDU_CLOUD_PROVIDER", config.CloudProvider)
	viper.SetDefault("EDU_AZURE_STORAGE_CONNECTION_STRING", config.AzureStorageConnectionString)
	viper.SetDefault("EDU_AZURE_STORAGE_ACCOUNT_NAME", config.AzureStorageAccountName)
	viper.SetDefault("EDU_AZURE_STORAGE_ACCOUNT_KEY", config.AzureStorageAccountKey)
	viper.SetDefault("EDU_AZURE_STORAGE_CONTAINER_NAME", config.AzureStorageContainerName)
	viper.SetDefault("EDU_AZURE_STORAGE_BASE_URL", config.AzureStorageBaseURL)
	viper.SetDefault("EDU_AZURE_STORAGE_USE_HTTPS", config.AzureStorageUseHTTPS)

	// Override config values with environment variables
	viper.AutomaticEnv()
	err = viper.Unmarshal(&config)
	return
}

// ConfigFromFile will look for the specified configuration file in the current directory and initialize
// a Config from it. Values provided by environment variables will override ones found in
// the file. See package docs for a list of available environment variables.
func ConfigFromFile(f string) (config Config, err error) {
	if config, err = ConfigFromEnvironment(); err != nil {
		return
	}

	viper.AddConfigPath(".")
	viper.SetConfigFile(f)
	viper.SetConfigType("env")

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	err = viper.Unmarshal(&config)

	return
}

// Fiber initializes and returns a Fiber config based on server config values.
// See https://docs.gofiber.io/api/fiber#config
func (c Config) Fiber() fiber.Config {
	return fiber.Config{
		ReadTimeout: time.Second * time.Duration(c.ServerReadTimeout),
		BodyLimit:   10 * 1024 * 1024, // 10MB
	}
}

// DbConnectionString generates a connection string for the database based on config values.
func (c Config) DbConnectionString() string {
	return fmt.Sprintf("postgresql://%s:%s@%s:%d/%s?sslmode=%s", c.DbUser, url.QueryEscape(c.DbPassword), c.DbHost, c.DbPort, c.DbDatabaseName, c.DbSSLMode)
}

// RedisAddr returns the host:port address of the Redis instance.
func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// OTPExpiry returns the OTP validity window as a duration.
func (c Config) OTPExpiry() time.Duration {
	return time.Duration(c.OTPExpireSeconds) * time.Second
}

// DeepLinkMaxAge returns how long a deep-link token stays verifiable.
func (c Config) DeepLinkMaxAge() time.Duration {
	return time.Duration(c.DeepLinkMaxAgeSeconds) * time.Second
}

// GetSlogLevel converts the string log level to slog.Level.
func (c Config) GetSlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo // default fallback
	}
}

// GetKinescopeConfig converts config values to Kinescope client configuration.
func (c Config) GetKinescopeConfig() KinescopeConfig {
	return KinescopeConfig{
		APIKey:  c.KinescopeAPIKey,
		BaseURL: c.KinescopeBaseURL,
	}
}

// KinescopeConfig holds Kinescope API client configuration
type KinescopeConfig struct {
	APIKey  string
	BaseURL string
}

// GetNotionConfig converts config values to Notion client configuration.
func (c Config) GetNotionConfig() NotionConfig {
	return NotionConfig{
		APIKey:  c.NotionAPIKey,
		Version: c.NotionVersion,
	}
}

// NotionConfig holds Notion API client configuration
type NotionConfig struct {
	APIKey  string
	Version string
}

// GetCloudConfig converts config values to cloud storage configuration struct.
func (c Config) GetCloudConfig() CloudConfig {
	return CloudConfig{
		Provider: c.CloudProvider,
		Azure: AzureCloudConfig{
			StorageAccountName: c.AzureStorageAccountName,
			StorageAccountKey:  c.AzureStorageAccountKey,
			ConnectionString:   c.AzureStorageConnectionString,
			ContainerName:      c.AzureStorageContainerName,
			BaseURL:            c.AzureStorageBaseURL,
			UseHTTPS:           c.AzureStorageUseHTTPS,
		},
	}
}

// CloudConfig holds cloud storage configuration
type CloudConfig struct {
	Provider string
	Azure    AzureCloudConfig
}

// AzureCloudConfig holds Azure Blob Storage specific configuration
type AzureCloudConfig struct {
	StorageAccountName string
	StorageAccountKey  string
	ConnectionString   string
	ContainerName      string
	BaseURL            string
	UseHTTPS           bool
}
