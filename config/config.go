package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	// MinSecretLength is the shortest JWT secret accepted at startup.
	MinSecretLength = 32
)

var (
	ErrMissingSecret     = errors.New("JWT_SECRET is required")
	ErrSecretTooShort    = fmt.Errorf("JWT_SECRET must be at least %d characters", MinSecretLength)
	ErrMissingMongoURI   = errors.New("MONGODB_URI is required")
	ErrMissingWorkerPath = errors.New("WORKER_PATH is required")
)

// Config is built once at startup and treated as read-only afterwards.
type Config struct {
	Environment string
	Port        string
	BaseURL     string

	MongoURI     string
	DatabaseName string

	JWTSecret string

	WorkerPath          string
	WorkerInterpreter   string
	WorkerTimeout       time.Duration
	WorkerMaxConcurrent int
	WorkerMaxQueue      int

	AllowedOrigins []string

	AuthRateLimit  int
	AuthRateWindow time.Duration
	APIRateLimit   int
	APIRateWindow  time.Duration

	ArchiveBucket   string
	CredentialsFile string

	AdminName     string
	AdminEmail    string
	AdminPassword string
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == EnvDevelopment
}

// Load reads an optional .env file and then the process environment.
// Missing required settings are reported together.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}
	return FromEnv()
}

func FromEnv() (*Config, error) {
	cfg := &Config{
		Environment:         strings.ToLower(getEnv("APP_ENV", EnvProduction)),
		Port:                getEnv("PORT", "8080"),
		BaseURL:             strings.TrimRight(getEnv("APP_BASE_URL", "http://localhost:3000"), "/"),
		MongoURI:            strings.TrimSpace(os.Getenv("MONGODB_URI")),
		DatabaseName:        getEnv("DATABASE_NAME", "movie_recommender"),
		JWTSecret:           os.Getenv("JWT_SECRET"),
		WorkerPath:          strings.TrimSpace(os.Getenv("WORKER_PATH")),
		WorkerInterpreter:   strings.TrimSpace(os.Getenv("WORKER_INTERPRETER")),
		WorkerTimeout:       getDuration("WORKER_TIMEOUT", 30*time.Second),
		WorkerMaxConcurrent: getInt("WORKER_MAX_CONCURRENT", 8),
		WorkerMaxQueue:      getInt("WORKER_MAX_QUEUE", 16),
		AllowedOrigins:      splitList(os.Getenv("ALLOWED_ORIGINS")),
		AuthRateLimit:       getInt("AUTH_RATE_LIMIT", 5),
		AuthRateWindow:      getDuration("AUTH_RATE_WINDOW", 15*time.Minute),
		APIRateLimit:        getInt("API_RATE_LIMIT", 100),
		APIRateWindow:       getDuration("API_RATE_WINDOW", 15*time.Minute),
		ArchiveBucket:       strings.TrimSpace(os.Getenv("ARCHIVE_BUCKET")),
		CredentialsFile:     strings.TrimSpace(os.Getenv("CREDENTIALS_FILE_LOCATION")),
		AdminName:           getEnv("ADMIN_NAME", "Administrator"),
		AdminEmail:          strings.ToLower(strings.TrimSpace(os.Getenv("ADMIN_EMAIL"))),
		AdminPassword:       os.Getenv("ADMIN_PASSWORD"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	switch {
	case c.JWTSecret == "":
		errs = append(errs, ErrMissingSecret)
	case len(c.JWTSecret) < MinSecretLength:
		errs = append(errs, ErrSecretTooShort)
	}
	if c.MongoURI == "" {
		errs = append(errs, ErrMissingMongoURI)
	}
	if c.WorkerPath == "" {
		errs = append(errs, ErrMissingWorkerPath)
	}
	if c.Environment != EnvDevelopment && c.Environment != EnvProduction {
		errs = append(errs, fmt.Errorf("APP_ENV must be %q or %q, got %q", EnvDevelopment, EnvProduction, c.Environment))
	}
	if c.WorkerTimeout <= 0 {
		errs = append(errs, errors.New("WORKER_TIMEOUT must be positive"))
	}
	if c.WorkerMaxConcurrent < 1 {
		errs = append(errs, errors.New("WORKER_MAX_CONCURRENT must be at least 1"))
	}
	if c.WorkerMaxQueue < 0 {
		errs = append(errs, errors.New("WORKER_MAX_QUEUE must not be negative"))
	}
	return errors.Join(errs...)
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("invalid %s=%q, using %d", key, v, def)
		return def
	}
	return n
}

func getDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("invalid %s=%q, using %s", key, v, def)
		return def
	}
	return d
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}
