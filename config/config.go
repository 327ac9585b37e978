package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port     string
	LogLevel string

	DBUser     string
	DBPassword string
	DBHost     string
	DBPort     string
	DBName     string
	DBSSLMode  string

	JWTSecret     string
	ModeratorRole string

	ImageBackendURL    string
	ImageBackendSecret string
	// ImageURL is the public host images are redirected to, including the
	// trailing slash.
	ImageURL string

	DiscourseURL         string
	DiscoursePublicURL   string
	DiscourseAPIKey      string
	DiscourseAPIUsername string
	// DiscourseCategory is a category id or a category name.
	DiscourseCategory string
}

// Load reads .env when present, then the process environment.
func Load() (*Config, bool) {
	foundDotenv := godotenv.Load() == nil

	cfg := &Config{
		Port:     env("PORT", "8080"),
		LogLevel: env("LOG_LEVEL", "info"),

		DBUser:     env("user", ""),
		DBPassword: env("password", ""),
		DBHost:     env("host", "localhost"),
		DBPort:     env("port", "5432"),
		DBName:     env("dbname", "guidebook"),
		DBSSLMode:  env("DB_SSLMODE", "require"),

		JWTSecret:     env("JWT_SECRET", ""),
		ModeratorRole: env("MODERATOR_ROLE", "moderator"),

		ImageBackendURL:    strings.TrimRight(env("IMAGE_BACKEND_URL", ""), "/"),
		ImageBackendSecret: env("IMAGE_BACKEND_SECRET", ""),
		ImageURL:           env("IMAGE_URL", ""),

		DiscourseURL:         strings.TrimRight(env("DISCOURSE_URL", ""), "/"),
		DiscoursePublicURL:   strings.TrimRight(env("DISCOURSE_PUBLIC_URL", ""), "/"),
		DiscourseAPIKey:      env("DISCOURSE_API_KEY", ""),
		DiscourseAPIUsername: env("DISCOURSE_API_USERNAME", "system"),
		DiscourseCategory:    env("DISCOURSE_CATEGORY", ""),
	}
	if cfg.DiscoursePublicURL == "" {
		cfg.DiscoursePublicURL = cfg.DiscourseURL
	}
	return cfg, foundDotenv
}

func env(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
