package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Default directory entries that only affect local development. Variables that
// are already present in the environment always win over .env files.
var envFiles = []string{".env.local", ".env"}

type Config struct {
	// Server
	ServerPort     string
	ServerHost     string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxRequestBody int64

	// Database
	DBDriver         string
	SQLitePath       string
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Kafka
	KafkaBrokers     []string
	KafkaEventsTopic string

	OpenList OpenList

	// Gateway specific
	APIToken             string
	CursorSecret         string
	PlaylistDefaultLimit int
	PlaylistMaxLimit     int
	RateLimitRPS         int
	RateLimitBurst       int

	// Sync
	SyncOnStartup bool
	SyncInterval  time.Duration
	SeedFile      string

	// Streaming
	StreamResolveLive bool
	StreamCacheTTL    time.Duration
}

// OpenList groups the settings for the external file-listing service. It is
// passed by value into the client and the reconciler.
type OpenList struct {
	BaseURL       string
	DirPath       string
	Password      string
	Token         string
	Username      string
	UserPassword  string
	PublicBaseURL string
	Recursive     bool
	PerPage       int
	Timeout       time.Duration
	TokenTTL      time.Duration
}

// BuildFileURL returns the direct URL of a file inside the listing.
func (o OpenList) BuildFileURL(path string) string {
	base := o.PublicBaseURL
	if base == "" {
		base = o.BaseURL
	}
	base = strings.TrimRight(base, "/")
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}

// HasCredentials reports whether a username/password pair is configured.
func (o OpenList) HasCredentials() bool {
	return o.Username != "" && o.UserPassword != ""
}

func Load() *Config {
	_ = godotenv.Load(existingEnvFiles()...)

	return &Config{
		ServerPort:     getEnv("SERVER_PORT", "8080"),
		ServerHost:     getEnv("SERVER_HOST", "0.0.0.0"),
		ReadTimeout:    getDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout:   getDuration("WRITE_TIMEOUT", 30*time.Second),
		MaxRequestBody: int64(getIntEnv("MAX_REQUEST_BODY_BYTES", 1024*1024)),

		DBDriver:         strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
		SQLitePath:       getEnv("SQLITE_PATH", "./swiperflix.db"),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "swiperflix"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", ""),
		PostgresDB:       getEnv("POSTGRES_DB", "swiperflix"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),

		KafkaBrokers:     getStringSliceEnv("KAFKA_BROKERS", nil),
		KafkaEventsTopic: getEnv("KAFKA_EVENTS_TOPIC", "swiperflix.events"),

		OpenList: OpenList{
			BaseURL:       getEnv("OPENLIST_BASE_URL", "http://localhost:5244/"),
			DirPath:       getEnv("OPENLIST_DIR_PATH", "/"),
			Password:      getEnv("OPENLIST_PASSWORD", ""),
			Token:         getEnv("OPENLIST_TOKEN", ""),
			Username:      getEnv("OPENLIST_USERNAME", ""),
			UserPassword:  getEnv("OPENLIST_USER_PASSWORD", ""),
			PublicBaseURL: getEnv("OPENLIST_PUBLIC_BASE_URL", ""),
			Recursive:     getBoolEnv("OPENLIST_RECURSIVE", false),
			PerPage:       getIntEnv("OPENLIST_PER_PAGE", 200),
			Timeout:       getDuration("OPENLIST_TIMEOUT", 15*time.Second),
			TokenTTL:      getDuration("OPENLIST_TOKEN_TTL", 24*time.Hour),
		},

		APIToken:             getEnv("API_TOKEN", ""),
		CursorSecret:         getEnv("CURSOR_SECRET", "swiperflix-cursor"),
		PlaylistDefaultLimit: getIntEnv("PLAYLIST_DEFAULT_LIMIT", 20),
		PlaylistMaxLimit:     getIntEnv("PLAYLIST_MAX_LIMIT", 50),
		RateLimitRPS:         getIntEnv("RATE_LIMIT_RPS", 50),
		RateLimitBurst:       getIntEnv("RATE_LIMIT_BURST", 100),

		SyncOnStartup: getBoolEnv("SYNC_ON_STARTUP", true),
		SyncInterval:  getDuration("SYNC_INTERVAL", 0),
		SeedFile:      getEnv("SEED_FILE", ""),

		StreamResolveLive: getBoolEnv("STREAM_RESOLVE_LIVE", false),
		StreamCacheTTL:    getDuration("STREAM_CACHE_TTL", 10*time.Minute),
	}
}

func existingEnvFiles() []string {
	var files []string
	for _, name := range envFiles {
		if _, err := os.Stat(name); err == nil {
			files = append(files, name)
		}
	}
	return files
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getStringSliceEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
