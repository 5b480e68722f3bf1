package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port        string
	Env         string
	LogLevel    string
	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool
	UseRedisSessions bool

	AdminJWTSecret string

	CORSAllowedOrigins []string

	// Per-IP limit on POST /chat/message. Zero disables limiting.
	ChatRateLimit float64
	ChatRateBurst int

	SessionTTL time.Duration

	// Fuzzy-match acceptance thresholds, per entity type. Scores run 0-100;
	// a candidate below its threshold is treated as not found.
	PatientMatchThreshold   int
	DoctorMatchThreshold    int
	TreatmentMatchThreshold int
	InventoryMatchThreshold int

	// Minimum cosine similarity before the statistical classifier trusts
	// its best corpus match.
	ClassifierFloor float64

	// Near-ties within this many points of the best match trigger a
	// disambiguation prompt instead of an auto-pick.
	AmbiguityMargin int
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		Env:         getEnv("ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		DatabaseURL: getEnv("DATABASE_URL", ""),

		RedisAddr:        getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		RedisTLS:         getEnvAsBool("REDIS_TLS", false),
		UseRedisSessions: getEnvAsBool("USE_REDIS_SESSIONS", false),

		AdminJWTSecret: getEnv("ADMIN_JWT_SECRET", ""),

		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),

		ChatRateLimit: getEnvAsFloat("CHAT_RATE_LIMIT", 5),
		ChatRateBurst: getEnvAsInt("CHAT_RATE_BURST", 10),

		SessionTTL: getEnvAsDuration("SESSION_TTL", 30*time.Minute),

		PatientMatchThreshold:   getEnvAsInt("PATIENT_MATCH_THRESHOLD", 60),
		DoctorMatchThreshold:    getEnvAsInt("DOCTOR_MATCH_THRESHOLD", 70),
		TreatmentMatchThreshold: getEnvAsInt("TREATMENT_MATCH_THRESHOLD", 65),
		InventoryMatchThreshold: getEnvAsInt("INVENTORY_MATCH_THRESHOLD", 50),

		ClassifierFloor: getEnvAsFloat("CLASSIFIER_FLOOR", 0.38),
		AmbiguityMargin: getEnvAsInt("AMBIGUITY_MARGIN", 5),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
