// Package config centralises environment and runtime configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	EmailProviderSMTP   = "smtp"
	EmailProviderResend = "resend"
)

// Config holds everything the server reads from the environment.
type Config struct {
	Port        string
	DatabaseURL string
	AutoMigrate bool

	LogLevel  string
	LogFormat string

	// Identity provider.
	WebhookSecret  string
	ClerkSecretKey string
	ClerkAPIURL    string
	SessionJWTKey  string // PEM encoded RSA public key
	SessionSecret  string // HMAC secret, development only
	SignInURL      string
	AdminEmail     string

	// Outgoing email.
	EmailProvider string
	EmailFrom     string
	ResendAPIKey  string
	ResendAPIURL  string
	SMTPHost      string
	SMTPPort      int
	SMTPUser      string
	SMTPPass      string

	RedisURL       string
	AllowedOrigins []string

	SlotStart    string
	SlotEnd      string
	SlotInterval time.Duration

	RateLimitRPS   float64
	RateLimitBurst int
	// TrustProxy takes the client address from X-Forwarded-For / X-Real-IP.
	TrustProxy bool
}

// Load builds the Config from the environment, validating required values.
func Load() (*Config, error) {
	var missing []string
	required := func(key string) string {
		v := strings.TrimSpace(os.Getenv(key))
		if v == "" {
			missing = append(missing, key)
		}
		return v
	}

	cfg := &Config{
		Port:        getEnvOrDefault("SERVER_PORT", "8080"),
		DatabaseURL: required("DATABASE_URL"),
		AutoMigrate: parseBoolEnv(os.Getenv("AUTO_MIGRATE")),
		TrustProxy:  parseBoolEnv(os.Getenv("TRUST_PROXY")),

		LogLevel:  getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "text"),

		WebhookSecret:  required("CLERK_WEBHOOK_SECRET"),
		ClerkSecretKey: os.Getenv("CLERK_SECRET_KEY"),
		ClerkAPIURL:    strings.TrimRight(getEnvOrDefault("CLERK_API_URL", "https://api.clerk.com"), "/"),
		SessionJWTKey:  os.Getenv("CLERK_JWT_KEY"),
		SessionSecret:  os.Getenv("SESSION_SECRET"),
		SignInURL:      getEnvOrDefault("SIGN_IN_URL", "/sign-in"),
		AdminEmail:     required("ADMIN_EMAIL"),

		EmailProvider: strings.ToLower(getEnvOrDefault("EMAIL_PROVIDER", EmailProviderResend)),
		EmailFrom:     getEnvOrDefault("EMAIL_FROM", "DentOra <no-reply@resend.dev>"),
		ResendAPIKey:  os.Getenv("RESEND_API_KEY"),
		ResendAPIURL:  strings.TrimRight(getEnvOrDefault("RESEND_API_URL", "https://api.resend.com"), "/"),
		SMTPHost:      os.Getenv("SMTP_HOST"),
		SMTPUser:      os.Getenv("SMTP_USER"),
		SMTPPass:      os.Getenv("SMTP_PASS"),

		RedisURL:       os.Getenv("REDIS_URL"),
		AllowedOrigins: splitList(getEnvOrDefault("ALLOWED_ORIGINS", "*")),

		SlotStart: getEnvOrDefault("SLOT_START", "09:00"),
		SlotEnd:   getEnvOrDefault("SLOT_END", "17:00"),
	}

	if cfg.SessionJWTKey == "" && cfg.SessionSecret == "" {
		missing = append(missing, "CLERK_JWT_KEY or SESSION_SECRET")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	var err error
	if cfg.SMTPPort, err = intEnv("SMTP_PORT", 587); err != nil {
		return nil, err
	}
	if cfg.SlotInterval, err = durationEnv("SLOT_INTERVAL", 30*time.Minute); err != nil {
		return nil, err
	}
	if cfg.RateLimitBurst, err = intEnv("RATE_LIMIT_BURST", 10); err != nil {
		return nil, err
	}
	if cfg.RateLimitRPS, err = floatEnv("RATE_LIMIT_RPS", 5); err != nil {
		return nil, err
	}

	switch cfg.EmailProvider {
	case EmailProviderResend, EmailProviderSMTP:
	default:
		return nil, fmt.Errorf("EMAIL_PROVIDER must be %q or %q, got %q", EmailProviderResend, EmailProviderSMTP, cfg.EmailProvider)
	}

	return cfg, nil
}

func getEnvOrDefault(key, def string) string {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return def
	}
	return val
}

func parseBoolEnv(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	default:
		return false
	}
}

func intEnv(key string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func floatEnv(key string, def float64) (float64, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
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
