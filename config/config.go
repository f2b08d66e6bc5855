package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config stores the application configuration.
// Every optional service is disabled when its keys are empty, so a bare
// environment yields a fully offline library.
type Config struct {
	LibraryDir string // Directory holding the local library document
	BlobDir    string // Directory for raw audio blobs when MinIO is not configured
	FFmpegPath string

	ServerPort string
	LogLevel   string
	LogFile    string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Redis配置
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
	MinioRegion    string

	EmbeddingAPIURL     string
	EmbeddingAPIKey     string
	EmbeddingModel      string
	EmbeddingTimeout    time.Duration
	EmbeddingServiceURL string // Another SampleFinder server exposing /api/embeddings
	EmbeddingCacheTTL   time.Duration

	JWTSecret string

	StripeSecretKey      string
	StripeWebhookSecret  string
	StripeProPriceID     string
	StripeProPlusPriceID string
}

// Capabilities records which optional collaborators are available.
// It is computed once at startup and handed to the components that need it.
type Capabilities struct {
	RemoteEmbeddings bool `json:"remoteEmbeddings"`
	RemoteStore      bool `json:"remoteStore"`
	ObjectStorage    bool `json:"objectStorage"`
	Cache            bool `json:"cache"`
	Billing          bool `json:"billing"`
	Auth             bool `json:"auth"`
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return b
		}
	}
	return fallback
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() *Config {
	// godotenv.Load() will not override existing env vars.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found or error loading .env, relying on existing environment variables and defaults.")
	}
	return FromEnv()
}

// FromEnv builds a Config from the current process environment only.
func FromEnv() *Config {
	dataBase := getEnv("SAMPLEFINDER_HOME", filepath.Join(".", "data"))

	return &Config{
		LibraryDir: getEnv("LIBRARY_DIR", filepath.Join(dataBase, "library")),
		BlobDir:    getEnv("BLOB_DIR", filepath.Join(dataBase, "blobs")),
		FFmpegPath: getEnv("FFMPEG_PATH", "ffmpeg"),

		ServerPort: getEnv("SERVER_PORT", "8080"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		LogFile:    os.Getenv("LOG_FILE"),

		DBHost:     getEnv("DB_HOST", ""),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "root"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     getEnv("DB_NAME", "samplefinder"),

		RedisHost:     getEnv("REDIS_HOST", ""),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		MinioEndpoint:  getEnv("MINIO_ENDPOINT", ""),
		MinioAccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:    getEnv("MINIO_BUCKET", "samplefinder"),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),
		MinioRegion:    getEnv("MINIO_REGION", "us-east-1"),

		EmbeddingAPIURL:     getEnv("EMBEDDING_API_URL", "https://api.openai.com/v1"),
		EmbeddingAPIKey:     os.Getenv("EMBEDDING_API_KEY"),
		EmbeddingModel:      getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
		EmbeddingTimeout:    time.Duration(getEnvInt("EMBEDDING_TIMEOUT_SECONDS", 10)) * time.Second,
		EmbeddingServiceURL: os.Getenv("EMBEDDING_SERVICE_URL"),
		EmbeddingCacheTTL:   time.Duration(getEnvInt("EMBEDDING_CACHE_TTL_HOURS", 720)) * time.Hour,

		JWTSecret: os.Getenv("JWT_SECRET"),

		StripeSecretKey:      os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret:  os.Getenv("STRIPE_WEBHOOK_SECRET"),
		StripeProPriceID:     os.Getenv("STRIPE_PRO_PRICE_ID"),
		StripeProPlusPriceID: os.Getenv("STRIPE_PRO_PLUS_PRICE_ID"),
	}
}

// Capabilities derives the availability of optional services from the config.
func (c *Config) Capabilities() Capabilities {
	return Capabilities{
		RemoteEmbeddings: c.EmbeddingAPIKey != "" && c.EmbeddingAPIURL != "",
		RemoteStore:      c.DBHost != "",
		ObjectStorage:    c.MinioEndpoint != "" && c.MinioAccessKey != "" && c.MinioSecretKey != "",
		Cache:            c.RedisHost != "",
		Billing:          c.StripeSecretKey != "",
		Auth:             c.JWTSecret != "",
	}
}

// LibraryPath returns the path of the persisted library document.
func (c *Config) LibraryPath() string {
	return filepath.Join(c.LibraryDir, "library.json")
}

// RedisAddr returns host:port for the Redis client.
func (c *Config) RedisAddr() string {
	return c.RedisHost + ":" + c.RedisPort
}
