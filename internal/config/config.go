// Package config loads StormAlert's runtime configuration from
// environment variables, with optional local .env support for
// development.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every environment-derived setting the engine, gateway,
// and watchdog processes need at startup.
type Config struct {
	// Process
	Environment      string
	StrictProduction bool
	GatewayAddr      string
	MetricsAddr      string

	// Store
	MongoURI    string
	SpoolPath   string

	// Gateway / push fabric
	RedisAddr      string
	RedisPassword  string
	JWTSecret      string
	AllowedOrigins string

	// Notification channels
	SMTPHost       string
	SMTPPort       int
	SMTPUser       string
	SMTPPassword   string
	SMTPFrom       string
	TelegramToken  string
	WhatsAppSID    string
	WhatsAppToken  string
	WhatsAppFrom   string

	// Engine tuning
	IngressCapacity        int
	CacheRefreshInterval   time.Duration
	RetentionInterval      time.Duration
	RetentionMaxAge        time.Duration
	PersistenceFlushSize   int
	PersistenceFlushPeriod time.Duration
	PersistenceBufferCap   int
	NotificationQueueCap   int

	// Token watchdog
	TokenCheckInterval time.Duration
	TokenExpiryLead    time.Duration
}

// Load reads configuration from the environment, first attempting to
// populate it from a local .env file (ignored if absent).
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("[config] no .env file loaded: %v", err)
	}

	cfg := &Config{
		Environment:      getEnv("ENVIRONMENT", "development"),
		StrictProduction: getEnvAsBool("STRICT_PRODUCTION", false),
		GatewayAddr:      getEnv("GATEWAY_ADDR", ":8080"),
		MetricsAddr:      getEnv("METRICS_ADDR", ":9090"),

		MongoURI:  getEnv("MONGO_URI", "mongodb://localhost:27017/stormalert"),
		SpoolPath: getEnv("SPOOL_PATH", "data/spool.db"),

		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		JWTSecret:      getEnv("JWT_SECRET", ""),
		AllowedOrigins: getEnv("ALLOWED_ORIGINS", "http://localhost:3000"),

		SMTPHost:      getEnv("SMTP_HOST", ""),
		SMTPPort:      getEnvAsInt("SMTP_PORT", 587),
		SMTPUser:      getEnv("SMTP_USER", ""),
		SMTPPassword:  getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:      getEnv("SMTP_FROM", "alerts@stormalert.local"),
		TelegramToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		WhatsAppSID:   getEnv("WHATSAPP_TWILIO_SID", ""),
		WhatsAppToken: getEnv("WHATSAPP_TWILIO_TOKEN", ""),
		WhatsAppFrom:  getEnv("WHATSAPP_FROM_NUMBER", ""),

		IngressCapacity:        getEnvAsInt("INGRESS_CAPACITY", 1024),
		CacheRefreshInterval:   getEnvAsDuration("CACHE_REFRESH_INTERVAL", 60*time.Second),
		RetentionInterval:      getEnvAsDuration("RETENTION_INTERVAL", 24*time.Hour),
		RetentionMaxAge:        getEnvAsDuration("RETENTION_MAX_AGE", 720*time.Hour),
		PersistenceFlushSize:   getEnvAsInt("PERSISTENCE_FLUSH_SIZE", 1000),
		PersistenceFlushPeriod: getEnvAsDuration("PERSISTENCE_FLUSH_PERIOD", time.Second),
		PersistenceBufferCap:   getEnvAsInt("PERSISTENCE_BUFFER_CAP", 10000),
		NotificationQueueCap:   getEnvAsInt("NOTIFICATION_QUEUE_CAP", 4096),

		TokenCheckInterval: getEnvAsDuration("TOKEN_CHECK_INTERVAL", time.Minute),
		TokenExpiryLead:    getEnvAsDuration("TOKEN_EXPIRY_LEAD", 5*time.Minute),
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("[config] %v", err)
	}

	return cfg
}

// Validate enforces the required fields for a real deployment. Outside
// STRICT_PRODUCTION, missing credentials only degrade individual
// notification channels, per the engine's error-handling taxonomy.
func (c *Config) Validate() error {
	if !c.StrictProduction {
		return nil
	}
	if c.MongoURI == "" {
		return fmt.Errorf("MONGO_URI is required when STRICT_PRODUCTION=true")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required when STRICT_PRODUCTION=true")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[config] invalid int for %s: %q, using default %d", key, v, fallback)
		return fallback
	}
	return n
}

func getEnvAsBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("[config] invalid bool for %s: %q, using default %v", key, v, fallback)
		return fallback
	}
	return b
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("[config] invalid duration for %s: %q, using default %s", key, v, fallback)
		return fallback
	}
	return d
}
