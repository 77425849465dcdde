package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"

	// DevJWTSecret is only ever used outside production, and only when
	// JWT_SECRET is unset.
	DevJWTSecret = "dev-only-insecure-jwt-secret-do-not-deploy"

	minJWTSecretLength = 32
)

var (
	ErrMissingJWTSecret = errors.New("JWT_SECRET must be set in production")
	ErrDevJWTSecret     = errors.New("JWT_SECRET must not be the development default in production")
	ErrShortJWTSecret   = fmt.Errorf("JWT_SECRET must be at least %d bytes", minJWTSecretLength)
)

type Config struct {
	Env      string
	APIPort  string
	OpsAddr  string
	LogLevel string

	JWTKey         []byte
	JWTExp         time.Duration
	UsingDevJWTKey bool
	BcryptCost     int

	StoreDriver string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	DBSslMode   string
	DBConnStr   string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	LoginMaxFailures   int
	LoginFailureWindow time.Duration
	AuditQueueName     string
	// AuditWorkerInline runs the audit worker inside the API process.
	// Disable it when cmd/worker is deployed separately.
	AuditWorkerInline bool

	AdminUsername string
	AdminPassword string
}

func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// Load reads configuration from the environment, after merging an
// optional .env file. It fails when the signing key is unusable.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{
		Env:                strings.ToLower(getEnv("APP_ENV", EnvDevelopment)),
		APIPort:            getEnv("API_PORT", "8080"),
		OpsAddr:            getEnv("OPS_ADDR", ":9100"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		JWTExp:             time.Duration(getEnvAsInt("JWT_EXPIRATION_HOURS", 24)) * time.Hour,
		BcryptCost:         getEnvAsInt("BCRYPT_COST", bcrypt.DefaultCost),
		StoreDriver:        strings.ToLower(getEnv("STORE_DRIVER", StoreDriverPostgres)),
		DBHost:             getEnv("DB_HOST", "localhost"),
		DBPort:             getEnv("DB_PORT", "5432"),
		DBUser:             getEnv("DB_USER", "user"),
		DBPassword:         getEnv("DB_PASSWORD", "password"),
		DBName:             getEnv("DB_NAME", "authgate"),
		DBSslMode:          getEnv("DB_SSLMODE", "disable"),
		RedisAddr:          getEnv("REDIS_ADDR", ""),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisDB:            getEnvAsInt("REDIS_DB", 0),
		LoginMaxFailures:   getEnvAsInt("LOGIN_MAX_FAILURES", 5),
		LoginFailureWindow: time.Duration(getEnvAsInt("LOGIN_FAILURE_WINDOW_SECONDS", 900)) * time.Second,
		AuditQueueName:     getEnv("AUDIT_QUEUE_NAME", "auth_events_queue"),
		AuditWorkerInline:  getEnvAsBool("AUDIT_WORKER_INLINE", true),
		AdminUsername:      getEnv("ADMIN_USERNAME", ""),
		AdminPassword:      getEnv("ADMIN_PASSWORD", ""),
	}

	cfg.DBConnStr = "host=" + cfg.DBHost +
		" port=" + cfg.DBPort +
		" user=" + cfg.DBUser +
		" password=" + cfg.DBPassword +
		" dbname=" + cfg.DBName +
		" sslmode=" + cfg.DBSslMode

	if cfg.StoreDriver != StoreDriverPostgres && cfg.StoreDriver != StoreDriverMemory {
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
	if cfg.JWTExp <= 0 {
		return nil, errors.New("JWT_EXPIRATION_HOURS must be positive")
	}
	if err := cfg.loadJWTKey(strings.TrimSpace(os.Getenv("JWT_SECRET"))); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadJWTKey(secret string) error {
	switch {
	case secret == "" && c.IsProduction():
		return ErrMissingJWTSecret
	case secret == "":
		secret = DevJWTSecret
		c.UsingDevJWTKey = true
	case secret == DevJWTSecret && c.IsProduction():
		return ErrDevJWTSecret
	}

	if len(secret) < minJWTSecretLength {
		return ErrShortJWTSecret
	}
	c.JWTKey = []byte(secret)
	return nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return value
	}
	return fallback
}
