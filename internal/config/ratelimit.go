package config

import "time"

// RateLimitConfig drives the redis token bucket.  Writes (reserve, hold and
// the admin transitions) draw from a separate, smaller bucket than reads.
type RateLimitConfig struct {
    Enabled        bool
    Capacity       int
    WriteCapacity  int
    RefillTokens   int
    RefillInterval time.Duration
    TTL            time.Duration
    KeyStrategy    string // "ip", "user" or "ip_user_route"
    Prefix         string
}

// LoadRateLimitConfig reads RATE_LIMIT_* and clamps the values into a usable range.
func LoadRateLimitConfig() RateLimitConfig {
    c := RateLimitConfig{
        Enabled:        envBool("RATE_LIMIT_ENABLED", true),
        Capacity:       envInt("RATE_LIMIT_CAPACITY", 60),
        WriteCapacity:  envInt("RATE_LIMIT_WRITE_CAPACITY", 10),
        RefillTokens:   envInt("RATE_LIMIT_REFILL_TOKENS", 1),
        RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", time.Second),
        TTL:            envDur("RATE_LIMIT_TTL", 10*time.Minute),
        KeyStrategy:    envStr("RATE_LIMIT_KEY_STRATEGY", "ip_user_route"),
        Prefix:         envStr("RATE_LIMIT_PREFIX", "library:rl"),
    }
    if c.Capacity < 1 {
        c.Capacity = 1
    }
    if c.WriteCapacity < 1 || c.WriteCapacity > c.Capacity {
        c.WriteCapacity = c.Capacity
    }
    if c.RefillTokens < 1 {
        c.RefillTokens = 1
    }
    if c.RefillInterval <= 0 {
        c.RefillInterval = time.Second
    }
    // keep idle buckets around long enough to refill completely
    if minTTL := 5 * c.RefillInterval; c.TTL < minTTL {
        c.TTL = minTTL
    }
    return c
}
