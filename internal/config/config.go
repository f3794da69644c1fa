package config // package config loads application configuration from environment variables

import (
    "log"     // log is used to report configuration errors and halt execution
    "os"      // os provides access to environment variables
    "strconv" // strconv converts strings to other types
    "time"

    "github.com/joho/godotenv"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable; the nested structs group the optional Redis,
// rate limit and cache settings.
type Config struct {
    Env  string // application environment (e.g. "dev", "prod")
    Port string // HTTP port to listen on

    DBDriver   string // "mysql" or "sqlite3"
    DBUser     string // database username (mysql)
    DBPass     string // database password (optional)
    DBHost     string // database host address (mysql)
    DBPort     string // database port number (mysql)
    DBName     string // database name (mysql)
    SQLitePath string // database file (sqlite3)

    JWTSecret      string // secret used to sign JWTs
    AccessTTLMin   int    // access token time‑to‑live in minutes
    RefreshTTLDays int    // refresh token time‑to‑live in days
    BcryptCost     int    // bcrypt cost for password hashing

    AdminEmail    string // bootstrap admin account, created on start when missing
    AdminPassword string

    RabbitURL string // AMQP url; empty disables notification fan-out
    LogDir    string // directory the notification consumer appends to

    ReminderEnabled bool          // run the due-soon cron job
    ReminderSpec    string        // cron expression for the job
    LockTTL         time.Duration // expiry of per-book redis locks

    Redis     RedisConfig
    RateLimit RateLimitConfig
    Cache     CacheConfig
}

// Load reads a .env file when one exists, then the environment.  Required
// variables are enforced by must() and missing values cause the program to
// exit with a fatal log message.  The MySQL connection variables are only
// required when DB_DRIVER is mysql.
func Load() Config {
    if err := godotenv.Load(); err != nil {
        log.Println("config: no .env file, using process environment")
    }

    cfg := Config{
        Env:      must("APP_ENV"),
        Port:     must("APP_PORT"),
        DBDriver: envStr("DB_DRIVER", "mysql"),
        DBPass:   os.Getenv("DB_PASS"), // empty allowed

        JWTSecret:      must("JWT_SECRET"),
        AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),
        RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"),
        BcryptCost:     mustInt("BCRYPT_COST"),

        AdminEmail:    os.Getenv("ADMIN_EMAIL"),
        AdminPassword: os.Getenv("ADMIN_PASSWORD"),

        RabbitURL: os.Getenv("RABBITMQ_URL"),
        LogDir:    envStr("NOTIFICATION_LOG_DIR", "logs"),

        ReminderEnabled: envBool("REMINDER_ENABLED", true),
        ReminderSpec:    envStr("REMINDER_SPEC", "0 8 * * *"),
        LockTTL:         envDur("LOCK_TTL", 10*time.Second),

        Redis:     LoadRedisConfig(),
        RateLimit: LoadRateLimitConfig(),
        Cache:     LoadCacheConfig(),
    }

    switch cfg.DBDriver {
    case "mysql":
        cfg.DBUser = must("DB_USER")
        cfg.DBHost = must("DB_HOST")
        cfg.DBPort = must("DB_PORT")
        cfg.DBName = must("DB_NAME")
    case "sqlite3":
        cfg.SQLitePath = envStr("SQLITE_PATH", "library.db")
    default:
        log.Fatalf("unsupported DB_DRIVER: %q", cfg.DBDriver)
    }
    return cfg
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        log.Fatalf("missing required env var: %s", key)
    }
    return v
}

// mustInt is like must() but converts the retrieved string into an integer.
func mustInt(key string) int {
    s := must(key)
    n, err := strconv.Atoi(s)
    if err != nil {
        log.Fatalf("invalid int for %s: %q", key, s)
    }
    return n
}

func envStr(k, d string) string {
    if v := os.Getenv(k); v != "" {
        return v
    }
    return d
}

func envBool(k string, d bool) bool {
    switch os.Getenv(k) {
    case "1", "true", "TRUE", "True", "yes", "YES", "on", "ON":
        return true
    case "0", "false", "FALSE", "False", "no", "NO", "off", "OFF":
        return false
    }
    return d
}

func envInt(k string, d int) int {
    v := os.Getenv(k)
    if v == "" {
        return d
    }
    if n, err := strconv.Atoi(v); err == nil {
        return n
    }
    return d
}

func envDur(k string, d time.Duration) time.Duration {
    v := os.Getenv(k)
    if v == "" {
        return d
    }
    if dur, err := time.ParseDuration(v); err == nil {
        return dur
    }
    return d
}
