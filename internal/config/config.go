package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"chatpoll/internal/store"
)

type Config struct {
	AppName string
	Env     string
	Host    string
	Port    int

	Datastore   string
	SQLitePath  string
	DatabaseURL string
	MongoURL    string
	DBName      string

	DatastoreConnectTimeout time.Duration

	RedisAddr     string
	RedisPassword string

	JWTSecret          string
	AccessTokenMinutes int

	CORSOrigins []string
	LogLevel    string
	Debug       bool
}

// Load reads configuration from the environment. A .env file in the working
// directory, when present, fills in variables that are not already set.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{
		AppName: getEnv("APP_NAME", "chatpoll API"),
		Env:     getEnv("APP_ENV", "development"),
		Host:    getEnv("HTTP_HOST", "0.0.0.0"),
		Port:    getEnvAsInt("HTTP_PORT", 8000),

		Datastore:   strings.ToLower(getEnv("DATASTORE", store.DriverSQLite)),
		SQLitePath:  getEnv("SQLITE_PATH", "chatpoll.db"),
		DatabaseURL: getEnv("DATABASE_URL", postgresURLFromParts()),
		MongoURL:    getEnv("MONGO_URL", "mongodb://localhost:27017"),
		DBName:      getEnv("DB_NAME", "chatpoll"),

		DatastoreConnectTimeout: time.Duration(getEnvAsInt("DATASTORE_CONNECT_TIMEOUT_SECONDS", 30)) * time.Second,

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		JWTSecret:          os.Getenv("JWT_SECRET"),
		AccessTokenMinutes: getEnvAsInt("ACCESS_TOKEN_EXPIRE_MINUTES", 60*24*7),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		Debug:    getEnvAsBool("DEBUG", false),
	}

	cors := getEnv("CORS_ORIGINS", "")
	if cors != "" {
		parts := strings.Split(cors, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		cfg.CORSOrigins = parts
	} else {
		cfg.CORSOrigins = []string{"*"}
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	switch cfg.Datastore {
	case store.DriverSQLite, store.DriverPostgres, store.DriverMongo:
	default:
		return nil, fmt.Errorf("DATASTORE must be one of sqlite, postgres, mongo; got %q", cfg.Datastore)
	}
	if cfg.AccessTokenMinutes <= 0 {
		return nil, fmt.Errorf("ACCESS_TOKEN_EXPIRE_MINUTES must be positive")
	}

	return cfg, nil
}

func (c *Config) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// AccessTokenTTL is the lifetime of issued bearer tokens.
func (c *Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenMinutes) * time.Minute
}

// StoreOptions translates the datastore settings for store.Open.
func (c *Config) StoreOptions() store.Options {
	return store.Options{
		Driver:         c.Datastore,
		SQLitePath:     c.SQLitePath,
		PostgresURL:    c.DatabaseURL,
		MongoURL:       c.MongoURL,
		MongoDB:        c.DBName,
		ConnectTimeout: c.DatastoreConnectTimeout,
	}
}

func postgresURLFromParts() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(getEnv("POSTGRES_USER", "postgres"), getEnv("POSTGRES_PASSWORD", "postgres")),
		Host:     fmt.Sprintf("%s:%s", getEnv("POSTGRES_HOST", "localhost"), getEnv("POSTGRES_PORT", "5432")),
		Path:     getEnv("POSTGRES_DB", "chatpoll"),
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvAsInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvAsBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}
