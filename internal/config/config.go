package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Port     string
	Env      string
	MongoURI string

	RedisAddr     string
	RedisPassword string

	KafkaBrokers []string
	KafkaTopic   string

	ClerkSecretKey string
	AllowedOrigins []string

	// AdminKeyHash is a bcrypt hash of the admin API key guarding the
	// maintenance endpoints (draft cleanup, chart refresh).
	AdminKeyHash string

	CloudName   string
	CloudKey    string
	CloudSecret string

	// DraftMaxAgeDays is the reaper threshold for abandoned empty drafts.
	DraftMaxAgeDays int
	// ChartWindowDays is the play-count window for chart scoring.
	ChartWindowDays int
	ChartSize       int
	ChartCacheTTL   int // seconds
}

func Load() *Config {
	origins := []string{"http://localhost:3000"}
	if raw := os.Getenv("ALLOWED_ORIGINS"); raw != "" {
		origins = strings.Split(raw, ",")
	}

	var brokers []string
	if raw := os.Getenv("KAFKA_BROKERS"); raw != "" {
		brokers = strings.Split(raw, ",")
	}

	return &Config{
		Port:     getEnv("PORT", "8989"),
		Env:      getEnv("APP_ENV", "development"),
		MongoURI: os.Getenv("MONGO_URI"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		KafkaBrokers: brokers,
		KafkaTopic:   getEnv("KAFKA_TOPIC", "playlist-events"),

		ClerkSecretKey: os.Getenv("CLERK_SECRET_KEY"),
		AllowedOrigins: origins,

		AdminKeyHash: os.Getenv("ADMIN_KEY_HASH"),

		CloudName:   os.Getenv("CLOUD_NAME"),
		CloudKey:    os.Getenv("CLOUD_KEY"),
		CloudSecret: os.Getenv("CLOUD_SECRET"),

		DraftMaxAgeDays: getEnvInt("DRAFT_MAX_AGE_DAYS", 7),
		ChartWindowDays: getEnvInt("CHART_WINDOW_DAYS", 7),
		ChartSize:       getEnvInt("CHART_SIZE", 50),
		ChartCacheTTL:   getEnvInt("CHART_CACHE_TTL", 900),
	}
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
