package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr             string
	DatabaseURL          string
	CORSAllowedOrigins   []string
	CORSAllowCredentials bool

	JWTSecret string

	LogLevel string

	// AppBaseURL is used to build invite accept links in outgoing email.
	AppBaseURL string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	SMTPUseTLS   bool
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		HTTPAddr:             getenv("HTTP_ADDR", ":8080"),
		DatabaseURL:          mustGetenv("DATABASE_URL"),
		CORSAllowCredentials: getenv("CORS_ALLOW_CREDENTIALS", "false") == "true",
		LogLevel:             getenv("LOG_LEVEL", "info"),
		AppBaseURL:           getenv("APP_BASE_URL", "http://localhost:3000"),
	}

	origins := strings.Split(getenv("CORS_ALLOWED_ORIGINS", ""), ",")
	for _, o := range origins {
		o = strings.TrimSpace(o)
		if o != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, o)
		}
	}

	cfg.JWTSecret = mustGetenv("JWT_SECRET")

	// SMTP is optional; empty host disables outgoing mail.
	cfg.SMTPHost = getenv("SMTP_HOST", "")
	if p, err := strconv.Atoi(getenv("SMTP_PORT", "587")); err == nil {
		cfg.SMTPPort = p
	} else {
		cfg.SMTPPort = 587
	}
	cfg.SMTPUsername = getenv("SMTP_USERNAME", "")
	cfg.SMTPPassword = getenv("SMTP_PASSWORD", "")
	cfg.SMTPFrom = getenv("SMTP_FROM", "")
	cfg.SMTPUseTLS = getenv("SMTP_TLS", "false") == "true"

	return cfg, nil
}

func getenv(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func mustGetenv(key string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		panic("missing env: " + key)
	}
	return v
}
