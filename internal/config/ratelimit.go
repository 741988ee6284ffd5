package config

import "time"

// RateLimitConfig drives the token bucket middleware.
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	KeyStrategy    string
	Prefix         string
	Debug          bool
}

// LoadRateLimitConfig builds a RateLimitConfig from RATE_LIMIT_* variables.
// RATE_LIMIT_BURST overrides the capacity and RATE_LIMIT_REFILL_EVERY
// sets a one-token refill period.
func LoadRateLimitConfig() RateLimitConfig {
	def := RateLimitConfig{
		Enabled:        env.GetBool("RATE_LIMIT_ENABLED"),
		Capacity:       env.GetInt("RATE_LIMIT_CAPACITY"),
		RefillTokens:   env.GetInt("RATE_LIMIT_REFILL_TOKENS"),
		RefillInterval: parseDur(env.GetString("RATE_LIMIT_REFILL_INTERVAL"), time.Second),
		TTL:            parseDur(env.GetString("RATE_LIMIT_TTL"), 10*time.Minute),
		KeyStrategy:    env.GetString("RATE_LIMIT_KEY_STRATEGY"),
		Prefix:         env.GetString("RATE_LIMIT_PREFIX"),
		Debug:          env.GetBool("RATE_LIMIT_DEBUG"),
	}
	if b := env.GetInt("RATE_LIMIT_BURST"); b > 0 {
		def.Capacity = b
	}
	if every := parseDur(env.GetString("RATE_LIMIT_REFILL_EVERY"), 0); every > 0 {
		def.RefillTokens = 1
		def.RefillInterval = every
	}
	if def.Capacity < 1 {
		def.Capacity = 1
	}
	if def.RefillTokens < 1 {
		def.RefillTokens = 1
	}
	if def.RefillInterval <= 0 {
		def.RefillInterval = time.Second
	}
	if minTTL := 5 * def.RefillInterval; def.TTL < minTTL {
		def.TTL = minTTL
	}
	return def
}
