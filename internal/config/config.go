// Package config loads application configuration from the environment.
// An optional .env file in the working directory is read first; values
// already present in the process environment win.
package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage backends.
const (
	StoreMySQL  = "mysql"
	StoreMemory = "memory"
)

// Config holds all runtime configuration values.  Each field corresponds
// to an environment variable of the same name in upper snake case.
type Config struct {
	Env          string // APP_ENV: development, production
	Port         string // APP_PORT
	Store        string // STORE: mysql or memory
	DBUser       string
	DBPass       string
	DBHost       string
	DBPort       string
	DBName       string
	DBMigrate    bool   // DB_MIGRATE: apply the embedded schema at startup
	JWTSecret    string // secret used to sign access tokens
	AccessTTLMin int    // access token time-to-live in minutes
	BcryptCost   int

	RabbitURL string // RABBITMQ_URL; empty disables event publishing

	StaffEmail    string // STAFF_EMAIL/STAFF_PASSWORD create a staff account at startup
	StaffPassword string

	Timezone            *time.Location // CLUB_TIMEZONE, used for "today" and the completion sweep
	SelectionTTL        time.Duration  // idle lifetime of a selection session
	LimitedThreshold    float64        // AVAILABILITY_LIMITED_THRESHOLD
	CompletionSweepSpec string         // cron spec of the completion sweep; empty disables it
}

// env resolves settings from the process environment with defaults.
var env = newEnv()

func newEnv() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("STORE", StoreMySQL)
	v.SetDefault("DB_MIGRATE", false)
	v.SetDefault("ACCESS_TOKEN_TTL_MIN", 60)
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("CLUB_TIMEZONE", "Asia/Tokyo")
	v.SetDefault("SELECTION_TTL", "30m")
	v.SetDefault("AVAILABILITY_LIMITED_THRESHOLD", 0.25)
	v.SetDefault("COMPLETION_SWEEP_SPEC", "@every 5m")

	v.SetDefault("CACHE_ENABLED", true)
	v.SetDefault("CACHE_METHODS", "GET")
	v.SetDefault("CACHE_TTL", "30s")
	v.SetDefault("CACHE_KEY_STRATEGY", "route_query")
	v.SetDefault("CACHE_PREFIX", "cache")
	v.SetDefault("CACHE_MAX_BODY_BYTES", 1048576)

	v.SetDefault("RATE_LIMIT_ENABLED", true)
	v.SetDefault("RATE_LIMIT_CAPACITY", 60)
	v.SetDefault("RATE_LIMIT_REFILL_TOKENS", 1)
	v.SetDefault("RATE_LIMIT_REFILL_INTERVAL", "1s")
	v.SetDefault("RATE_LIMIT_TTL", "10m")
	v.SetDefault("RATE_LIMIT_KEY_STRATEGY", "ip_user_route")
	v.SetDefault("RATE_LIMIT_PREFIX", "rl")
	v.SetDefault("RATE_LIMIT_DEBUG", false)

	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("SELECTION_PREFIX", "selection")
	return v
}

// Load reads configuration values and returns a Config.  Required
// variables are enforced by must() and missing values cause the program
// to exit with a fatal log message.
func Load() Config {
	if err := godotenv.Load(); err == nil {
		log.Println("config: loaded .env")
	}
	cfg := Config{
		Env:                 env.GetString("APP_ENV"),
		Port:                env.GetString("APP_PORT"),
		Store:               strings.ToLower(env.GetString("STORE")),
		DBMigrate:           env.GetBool("DB_MIGRATE"),
		JWTSecret:           must("JWT_SECRET"),
		AccessTTLMin:        mustInt("ACCESS_TOKEN_TTL_MIN"),
		BcryptCost:          mustInt("BCRYPT_COST"),
		RabbitURL:           firstNonEmpty(env.GetString("RABBITMQ_URL"), env.GetString("AMQP_URL")),
		StaffEmail:          env.GetString("STAFF_EMAIL"),
		StaffPassword:       env.GetString("STAFF_PASSWORD"),
		Timezone:            mustLocation("CLUB_TIMEZONE"),
		SelectionTTL:        mustDuration("SELECTION_TTL"),
		LimitedThreshold:    env.GetFloat64("AVAILABILITY_LIMITED_THRESHOLD"),
		CompletionSweepSpec: env.GetString("COMPLETION_SWEEP_SPEC"),
	}
	switch cfg.Store {
	case StoreMySQL:
		cfg.DBUser = must("DB_USER")
		cfg.DBPass = env.GetString("DB_PASS")
		cfg.DBHost = must("DB_HOST")
		cfg.DBPort = must("DB_PORT")
		cfg.DBName = must("DB_NAME")
	case StoreMemory:
	default:
		log.Fatalf("invalid STORE %q: want %s or %s", cfg.Store, StoreMySQL, StoreMemory)
	}
	if cfg.LimitedThreshold <= 0 || cfg.LimitedThreshold >= 1 {
		log.Fatalf("invalid AVAILABILITY_LIMITED_THRESHOLD %v: want 0 < t < 1", cfg.LimitedThreshold)
	}
	return cfg
}

// must retrieves the value of a required variable.  If the variable is
// unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v := strings.TrimSpace(env.GetString(key))
	if v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the value into an integer.
func mustInt(key string) int {
	s := must(key)
	n, err := castInt(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

func mustDuration(key string) time.Duration {
	s := must(key)
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		log.Fatalf("invalid duration for %s: %q", key, s)
	}
	return d
}

func mustLocation(key string) *time.Location {
	s := must(key)
	loc, err := time.LoadLocation(s)
	if err != nil {
		log.Fatalf("invalid time zone for %s: %q", key, s)
	}
	return loc
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
