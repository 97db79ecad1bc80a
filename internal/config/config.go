package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env  string
	Port int

	// Upstream REST API bases.
	APIBaseURL      string
	AuthAPIBaseURL  string
	BountiesBaseURL string

	// Admin gate. Empty disables the password prompt entirely (hard denial).
	AdminPassword string

	GoogleClientID string

	SessionSecret string
	SessionTTL    time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	CORSOrigins  []string
	OTLPEndpoint string
}

func Load() Config {
	// best effort; a missing .env is fine
	_ = godotenv.Load()

	env := getEnv("APP_ENV", "dev")
	port := getEnvInt("PORT", 8080)

	apiBase, authBase := resolveAPIBases()

	return Config{
		Env:             env,
		Port:            port,
		APIBaseURL:      apiBase,
		AuthAPIBaseURL:  authBase,
		BountiesBaseURL: apiBase + "/bounties",
		AdminPassword:   strings.TrimSpace(os.Getenv("ADMIN_PASSWORD")),
		GoogleClientID:  getEnv("GOOGLE_CLIENT_ID", ""),
		SessionSecret:   getEnv("SESSION_SECRET", "dev-session-secret"),
		SessionTTL:      getEnvDuration("SESSION_TTL", 24*time.Hour),
		RedisAddr:       getEnv("REDIS_ADDR", ""),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisDB:         getEnvInt("REDIS_DB", 0),
		CORSOrigins:     splitList(getEnv("CORS_ORIGINS", "")),
		OTLPEndpoint:    getEnv("OTLP_ENDPOINT", ""),
	}
}

// resolveAPIBases mirrors how the frontend derived its endpoints: the auth
// base falls back to <api>/auth, and when only the auth base is set the api
// base is recovered by stripping a trailing /auth.
func resolveAPIBases() (apiBase string, authBase string) {
	apiBase = trimTrailingSlash(strings.TrimSpace(os.Getenv("API_BASE_URL")))
	authBase = trimTrailingSlash(strings.TrimSpace(os.Getenv("AUTH_API_BASE_URL")))

	if apiBase == "" && authBase != "" {
		apiBase = strings.TrimSuffix(authBase, "/auth")
	}

	if apiBase == "" {
		apiBase = "http://localhost:3000/api"
	}

	if authBase == "" {
		authBase = apiBase + "/auth"
	}

	return apiBase, authBase
}

func trimTrailingSlash(value string) string {
	return strings.TrimRight(value, "/")
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))

	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}

	return out
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err != nil {
			fmt.Println(err)
			return fallback
		}

		return num
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)

		if err != nil {
			fmt.Println(err)
			return fallback
		}

		return d
	}
	return fallback
}
