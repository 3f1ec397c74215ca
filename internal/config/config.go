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

	"learnhub/m/internal/auth"
)

const (
	EnvProduction  = "production"
	EnvDevelopment = "development"

	// DevSecret signs tokens outside production when JWT_SECRET is unset.
	DevSecret = "dev_secret"
)

// Config holds application configuration values.
type Config struct {
	Env         string
	Secret      string
	TokenTTL    time.Duration
	DatabaseDSN string
	HTTPPort    string

	LogLevel  string
	LogFormat string

	CORSAllowedOrigins []string

	SMTP   SMTPConfig
	Upload UploadConfig
	S3     S3Config

	ChromePath string

	SeedAdmin SeedAdminConfig
}

type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Secure   bool
	From     string
}

// DefaultFrom is the sender used when a message does not name one.
func (c SMTPConfig) DefaultFrom() string {
	if c.From != "" {
		return c.From
	}
	user := c.User
	if user == "" {
		user = "noreply@example.com"
	}
	return fmt.Sprintf("No-Reply <%s>", user)
}

type UploadConfig struct {
	Backend      string // disk or s3
	Dir          string
	AllowedMIMEs []string
	MaxBytes     int64
}

type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

type SeedAdminConfig struct {
	Email    string
	Password string
	Name     string
}

// Load reads configuration from the environment (and a .env file when present)
// with reasonable defaults. It fails when a production deployment has no JWT secret.
func Load() (Config, error) {
	_ = godotenv.Load()

	env := getEnv("APP_ENV", EnvDevelopment)

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		if env == EnvProduction {
			return Config{}, errors.New("JWT_SECRET must be set when APP_ENV=production")
		}
		log.Printf("JWT_SECRET not set, using development secret")
		secret = DevSecret
	}

	port := getEnv("HTTP_PORT", "8080")
	// Validate that port is numeric.
	if _, err := strconv.Atoi(port); err != nil {
		log.Printf("invalid HTTP_PORT value %q, defaulting to 8080", port)
		port = "8080"
	}

	smtpPort, err := getEnvInt("SMTP_PORT", 587)
	if err != nil {
		return Config{}, err
	}
	maxBytes, err := getEnvInt("UPLOAD_MAX_BYTES", 5*1024*1024)
	if err != nil {
		return Config{}, err
	}
	ttl, err := getEnvDuration("JWT_TTL", auth.DefaultTokenTTL)
	if err != nil {
		return Config{}, err
	}
	if ttl <= 0 {
		return Config{}, fmt.Errorf("JWT_TTL must be positive, got %s", ttl)
	}

	cfg := Config{
		Env:         env,
		Secret:      secret,
		TokenTTL:    ttl,
		DatabaseDSN: getEnv("DATABASE_DSN", "file:learnhub.db?_pragma=foreign_keys(1)"),
		HTTPPort:    port,
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "text"),

		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),

		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", "smtp.gmail.com"),
			Port:     smtpPort,
			User:     os.Getenv("SMTP_USER"),
			Password: os.Getenv("SMTP_PASS"),
			Secure:   getEnv("SMTP_SECURE", "false") == "true",
			From:     os.Getenv("SMTP_FROM"),
		},
		Upload: UploadConfig{
			Backend:      strings.ToLower(getEnv("UPLOAD_BACKEND", "disk")),
			Dir:          getEnv("UPLOAD_DIR", "uploads"),
			AllowedMIMEs: splitList(getEnv("UPLOAD_MIME_WHITELIST", "image/jpeg,image/png,application/pdf")),
			MaxBytes:     int64(maxBytes),
		},
		S3: S3Config{
			Bucket:    os.Getenv("S3_BUCKET"),
			Region:    getEnv("S3_REGION", "us-east-1"),
			Endpoint:  os.Getenv("S3_ENDPOINT"),
			AccessKey: os.Getenv("S3_ACCESS_KEY"),
			SecretKey: os.Getenv("S3_SECRET_KEY"),
		},
		ChromePath: os.Getenv("CHROME_PATH"),
		SeedAdmin: SeedAdminConfig{
			Email:    os.Getenv("SEED_ADMIN_EMAIL"),
			Password: os.Getenv("SEED_ADMIN_PASSWORD"),
			Name:     getEnv("SEED_ADMIN_NAME", "Admin"),
		},
	}

	if cfg.Upload.Backend != "disk" && cfg.Upload.Backend != "s3" {
		return Config{}, fmt.Errorf("UPLOAD_BACKEND must be disk or s3, got %q", cfg.Upload.Backend)
	}
	if cfg.Upload.Backend == "s3" && cfg.S3.Bucket == "" {
		return Config{}, errors.New("S3_BUCKET is required when UPLOAD_BACKEND=s3")
	}

	return cfg, nil
}

// TokenTTLOverridden reports whether JWT_TTL changed the standard one day
// session lifetime.
func (c Config) TokenTTLOverridden() bool {
	return c.TokenTTL != auth.DefaultTokenTTL
}

// String returns a representation of the config with secrets masked.
func (c Config) String() string {
	return fmt.Sprintf("Config{Env: %s, HTTPPort: %s, DB: %s, Secret: ***, SMTP: %s:%d, Upload: %s}",
		c.Env, c.HTTPPort, maskDSN(c.DatabaseDSN), c.SMTP.Host, c.SMTP.Port, c.Upload.Backend)
}

func maskDSN(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	scheme := strings.Index(dsn, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return dsn
	}
	return dsn[:scheme+3] + "***" + dsn[at:]
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid integer for %s: %w", key, err)
	}
	return v, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %w", key, err)
	}
	return d, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}
