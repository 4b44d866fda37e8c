package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage backend names accepted in STORAGE_BACKEND.
const (
	BackendMemory    = "memory"
	BackendCassandra = "cassandra"
	BackendPostgres  = "postgres"
)

type Config struct {
	Server      ServerConfig
	Storage     StorageConfig
	Cassandra   CassandraConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	RateLimit   RateLimitConfig
	UserService UserServiceConfig
	Product     ProductConfig
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	AllowedOrigins []string
}

type StorageConfig struct {
	Backend string
}

type CassandraConfig struct {
	Hosts             []string
	Port              int
	Keyspace          string
	Username          string
	Password          string
	Consistency       string
	ConnectTimeout    time.Duration
	Timeout           time.Duration
	ConditionalInsert bool
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	Schema   string
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
	CacheTTL time.Duration
}

type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

type UserServiceConfig struct {
	URL     string
	Timeout time.Duration
}

type ProductConfig struct {
	DefaultImageURL string
}

// Load reads configuration from the environment, after loading a .env file
// from the working directory when one exists.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Could not read .env file: %v", err)
	}

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "5000")
	v.SetDefault("SERVER_ENV", "development")
	v.SetDefault("LOG_LEVEL", "")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:5174")
	v.SetDefault("STORAGE_BACKEND", BackendMemory)
	v.SetDefault("CASSANDRA_HOSTS", "127.0.0.1")
	v.SetDefault("CASSANDRA_PORT", 9042)
	v.SetDefault("CASSANDRA_KEYSPACE", "productos_db")
	v.SetDefault("CASSANDRA_CONSISTENCY", "ONE")
	v.SetDefault("CASSANDRA_CONNECT_TIMEOUT", "10s")
	v.SetDefault("CASSANDRA_TIMEOUT", "5s")
	v.SetDefault("CASSANDRA_CONDITIONAL_INSERT", false)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_SCHEMA", "public")
	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CACHE_TTL", "5m")
	v.SetDefault("RATE_LIMIT_REQUESTS", 100)
	v.SetDefault("RATE_LIMIT_WINDOW", "1m")
	v.SetDefault("USER_SERVICE_TIMEOUT", "5s")
	v.SetDefault("PRODUCT_DEFAULT_IMAGE_URL", "")
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Server: ServerConfig{
			Port:           v.GetString("SERVER_PORT"),
			Env:            v.GetString("SERVER_ENV"),
			LogLevel:       v.GetString("LOG_LEVEL"),
			AllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
		Storage: StorageConfig{
			Backend: strings.ToLower(strings.TrimSpace(v.GetString("STORAGE_BACKEND"))),
		},
		Cassandra: CassandraConfig{
			Hosts:             splitList(v.GetString("CASSANDRA_HOSTS")),
			Port:              v.GetInt("CASSANDRA_PORT"),
			Keyspace:          v.GetString("CASSANDRA_KEYSPACE"),
			Username:          v.GetString("CASSANDRA_USERNAME"),
			Password:          v.GetString("CASSANDRA_PASSWORD"),
			Consistency:       v.GetString("CASSANDRA_CONSISTENCY"),
			ConnectTimeout:    v.GetDuration("CASSANDRA_CONNECT_TIMEOUT"),
			Timeout:           v.GetDuration("CASSANDRA_TIMEOUT"),
			ConditionalInsert: v.GetBool("CASSANDRA_CONDITIONAL_INSERT"),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			Database: v.GetString("DB_DATABASE"),
			Schema:   v.GetString("DB_SCHEMA"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("REDIS_ENABLED"),
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
			CacheTTL: v.GetDuration("CACHE_TTL"),
		},
		RateLimit: RateLimitConfig{
			Requests: v.GetInt("RATE_LIMIT_REQUESTS"),
			Window:   v.GetDuration("RATE_LIMIT_WINDOW"),
		},
		UserService: UserServiceConfig{
			URL:     strings.TrimRight(v.GetString("USER_SERVICE_URL"), "/"),
			Timeout: v.GetDuration("USER_SERVICE_TIMEOUT"),
		},
		Product: ProductConfig{
			DefaultImageURL: v.GetString("PRODUCT_DEFAULT_IMAGE_URL"),
		},
	}
}

// IsDevelopment reports whether the server runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
