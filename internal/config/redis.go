package config

import (
	"context"
	"crypto/tls"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig locates the Redis server used for selection sessions, rate
// limiting and response caching.
type RedisConfig struct {
	Addr            string
	Password        string
	DB              int
	TLS             bool
	SelectionPrefix string
}

// LoadRedisConfig reads REDIS_HOST/REDIS_PORT (or REDIS_ADDR),
// REDIS_PASSWORD, REDIS_DB and REDIS_TLS.  Host and port take precedence
// over REDIS_ADDR.
func LoadRedisConfig() RedisConfig {
	addr := env.GetString("REDIS_ADDR")
	if host, port := env.GetString("REDIS_HOST"), env.GetString("REDIS_PORT"); host != "" && port != "" {
		addr = host + ":" + port
	}
	if addr == "" {
		addr = "localhost:6379"
	}
	tlsEnv := env.GetString("REDIS_TLS")
	return RedisConfig{
		Addr:            addr,
		Password:        env.GetString("REDIS_PASSWORD"),
		DB:              env.GetInt("REDIS_DB"),
		TLS:             strings.EqualFold(tlsEnv, "true") || tlsEnv == "1",
		SelectionPrefix: env.GetString("SELECTION_PREFIX"),
	}
}

// NewRedisClient connects to Redis and pings it.  It returns nil when the
// server cannot be reached; callers degrade to in-process fallbacks.
func NewRedisClient(cfg RedisConfig) *redis.Client {
	var tlsConf *tls.Config
	if cfg.TLS {
		tlsConf = &tls.Config{InsecureSkipVerify: true}
	}
	client := redis.NewClient(&redis.Options{
		Addr:      cfg.Addr,
		Password:  cfg.Password,
		DB:        cfg.DB,
		TLSConfig: tlsConf,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil
	}
	return client
}
