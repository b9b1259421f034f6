package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	MongoDB   MongoDBConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Admin     AdminConfig
	YouTube   YouTubeConfig
	Site      SiteConfig
	RateLimit RateLimitConfig
	MinIO     MinIOConfig
	Store     StoreConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CORSOrigins  []string
}

// MongoDBConfig carries the connection settings of the document store client.
// URI and Database are required at call time, not at startup.
type MongoDBConfig struct {
	URI                    string
	Database               string
	TLS                    bool
	ServerSelectionTimeout time.Duration
	ConnectTimeout         time.Duration
	SocketTimeout          time.Duration
	MaxConnIdleTime        time.Duration
	MaxPoolSize            uint64
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret         string
	AccessTokenTTL time.Duration
}

// AdminConfig configures the shared-password admin gate.
type AdminConfig struct {
	Password    string
	IdleTimeout time.Duration
}

type YouTubeConfig struct {
	APIKey    string
	ChannelID string
	BaseURL   string
	Timeout   time.Duration
	CacheTTL  time.Duration
}

type SiteConfig struct {
	URL string
}

// RateLimitConfig holds the public budget (RPS, Burst) and the tighter
// budget for contact form submissions.
type RateLimitConfig struct {
	Enabled              bool
	UseRedis             bool
	RPS                  float64
	Burst                int
	WindowSeconds        int
	ContactRPS           float64
	ContactBurst         int
	ContactWindowSeconds int
}

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	PublicURL string
}

// StoreConfig selects how repositories reach the action dispatcher.
type StoreConfig struct {
	// Backend is "mongo" (default) or "memory".
	Backend string
	// APIURL, when set, makes repositories call a remote dispatcher over HTTP.
	APIURL string
}

type LogConfig struct {
	Level  string
	Format string
}

// LoadConfig loads configuration from environment variables and .env file
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("SERVER_PORT", "4000")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_ENVIRONMENT", "development")
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("MONGODB_SERVER_SELECTION_TIMEOUT", 5)
	v.SetDefault("MONGODB_TIMEOUT", 10)
	v.SetDefault("MONGODB_SOCKET_TIMEOUT", 45)
	v.SetDefault("MONGODB_MAX_IDLE", 30)
	v.SetDefault("MONGODB_MAX_POOL_SIZE", 1)
	v.SetDefault("JWT_ACCESS_TOKEN_TTL", 15)
	v.SetDefault("ADMIN_IDLE_TIMEOUT", 5)
	v.SetDefault("YOUTUBE_BASE_URL", "https://www.googleapis.com/youtube/v3")
	v.SetDefault("YOUTUBE_TIMEOUT", 10)
	v.SetDefault("YOUTUBE_CACHE_TTL", 600)
	v.SetDefault("SITE_URL", "https://sachtalks.in")
	v.SetDefault("RATE_LIMIT_RPS", 10)
	v.SetDefault("RATE_LIMIT_BURST", 20)
	v.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 1)
	v.SetDefault("RATE_LIMIT_CONTACT_RPS", 0.05)
	v.SetDefault("RATE_LIMIT_CONTACT_BURST", 3)
	v.SetDefault("RATE_LIMIT_CONTACT_WINDOW_SECONDS", 60)
	v.SetDefault("MINIO_BUCKET", "sachtalks")
	v.SetDefault("STORE_BACKEND", "mongo")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")

	// names used by the original deployment
	_ = v.BindEnv("MONGODB_DATABASE", "MONGODB_DATABASE", "DB_NAME")
	_ = v.BindEnv("SITE_URL", "SITE_URL", "VITE_SITE_URL")
	_ = v.BindEnv("ADMIN_PASSWORD", "ADMIN_PASSWORD", "VITE_ADMIN_PASSWORD")
	_ = v.BindEnv("MONGODB_API_URL", "MONGODB_API_URL", "VITE_MONGODB_API_URL")

	cfg := &Config{
		Server: ServerConfig{
			Port:         v.GetString("SERVER_PORT"),
			Host:         v.GetString("SERVER_HOST"),
			Environment:  v.GetString("SERVER_ENVIRONMENT"),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			CORSOrigins:  splitList(v.GetString("CORS_ORIGINS")),
		},
		MongoDB: MongoDBConfig{
			URI:                    v.GetString("MONGODB_URI"),
			Database:               v.GetString("MONGODB_DATABASE"),
			TLS:                    v.GetBool("MONGODB_TLS"),
			ServerSelectionTimeout: time.Duration(v.GetInt("MONGODB_SERVER_SELECTION_TIMEOUT")) * time.Second,
			ConnectTimeout:         time.Duration(v.GetInt("MONGODB_TIMEOUT")) * time.Second,
			SocketTimeout:          time.Duration(v.GetInt("MONGODB_SOCKET_TIMEOUT")) * time.Second,
			MaxConnIdleTime:        time.Duration(v.GetInt("MONGODB_MAX_IDLE")) * time.Second,
			MaxPoolSize:            v.GetUint64("MONGODB_MAX_POOL_SIZE"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			Secret:         os.Getenv("JWT_SECRET"),
			AccessTokenTTL: time.Duration(v.GetInt("JWT_ACCESS_TOKEN_TTL")) * time.Minute,
		},
		Admin: AdminConfig{
			Password:    v.GetString("ADMIN_PASSWORD"),
			IdleTimeout: time.Duration(v.GetInt("ADMIN_IDLE_TIMEOUT")) * time.Minute,
		},
		YouTube: YouTubeConfig{
			APIKey:    v.GetString("YOUTUBE_API_KEY"),
			ChannelID: v.GetString("YOUTUBE_CHANNEL_ID"),
			BaseURL:   v.GetString("YOUTUBE_BASE_URL"),
			Timeout:   time.Duration(v.GetInt("YOUTUBE_TIMEOUT")) * time.Second,
			CacheTTL:  time.Duration(v.GetInt("YOUTUBE_CACHE_TTL")) * time.Second,
		},
		Site: SiteConfig{
			URL: strings.TrimRight(v.GetString("SITE_URL"), "/"),
		},
		RateLimit: RateLimitConfig{
			Enabled:       v.GetBool("RATE_LIMIT_ENABLED"),
			UseRedis:      v.GetBool("RATE_LIMIT_USE_REDIS"),
			RPS:           v.GetFloat64("RATE_LIMIT_RPS"),
			Burst:         v.GetInt("RATE_LIMIT_BURST"),
			WindowSeconds: v.GetInt("RATE_LIMIT_WINDOW_SECONDS"),

			ContactRPS:           v.GetFloat64("RATE_LIMIT_CONTACT_RPS"),
			ContactBurst:         v.GetInt("RATE_LIMIT_CONTACT_BURST"),
			ContactWindowSeconds: v.GetInt("RATE_LIMIT_CONTACT_WINDOW_SECONDS"),
		},
		MinIO: MinIOConfig{
			Endpoint:  v.GetString("MINIO_ENDPOINT"),
			AccessKey: v.GetString("MINIO_ACCESS_KEY"),
			SecretKey: os.Getenv("MINIO_SECRET_KEY"),
			UseSSL:    v.GetBool("MINIO_USE_SSL"),
			Bucket:    v.GetString("MINIO_BUCKET"),
			PublicURL: strings.TrimRight(v.GetString("MINIO_PUBLIC_URL"), "/"),
		},
		Store: StoreConfig{
			Backend: strings.ToLower(v.GetString("STORE_BACKEND")),
			APIURL:  strings.TrimRight(v.GetString("MONGODB_API_URL"), "/"),
		},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
	}

	return cfg, nil
}

func splitList(s string) []string {
	out := []string{}
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
