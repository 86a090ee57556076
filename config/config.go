package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

const (
	DefaultPort                   = "8080"
	DefaultAccessTokenExpiryMin   = 15
	DefaultRefreshTokenExpiryMin  = 10080 // 7 days
	DefaultBcryptCost             = 12
	DefaultMaxActiveRefreshTokens = 5
	DefaultLoginMaxAttempts       = 5
	DefaultLoginWindowMinutes     = 15
	DefaultLockoutMinutes         = 120
	DefaultGeneralLimitPerWindow  = 300
	DefaultAuthLimitPerWindow     = 10
	DefaultLimitWindowMinutes     = 15
	DefaultSlowDownFreeQuota      = 5
	DefaultSlowDownStepMillis     = 500
	DefaultSlowDownMaxMillis      = 5000
	DefaultRedisAddr              = "localhost:6379"
)

type Config struct {
	Env                string
	Port               string
	DBURL              string
	RedisAddr          string
	AccessTokenSecret  string
	RefreshTokenSecret string
	AccessExpiryMin    int
	RefreshExpiryMin   int

	BcryptCost             int
	MaxActiveRefreshTokens int

	// Account lockout policy. One canonical policy for every backend:
	// LoginMaxAttempts consecutive failures lock the account for
	// LockoutMinutes.
	LoginMaxAttempts   int
	LoginWindowMinutes int
	LockoutMinutes     int

	// Request-level limiter quotas (fixed window).
	GeneralLimitPerWindow int
	AuthLimitPerWindow    int
	LimitWindowMinutes    int
	SlowDownFreeQuota     int
	SlowDownStepMillis    int
	SlowDownMaxMillis     int

	CheckBreachedPasswords bool
	CookieDomain           string
}

// Load reads config/.env.dev or config/.env.prod depending on ENV, then lets
// real environment variables override file values.
func Load() *Config {
	env := getEnv("ENV", "development")

	envFile := "config/.env.dev"
	if env == "production" {
		envFile = "config/.env.prod"
	}
	if err := godotenv.Load(envFile); err != nil {
		log.Printf("No %s file found, relying on environment variables", envFile)
	}

	return &Config{
		Env:                env,
		Port:               getEnv("PORT", DefaultPort),
		DBURL:              mustGetEnv("DB_URL"),
		RedisAddr:          getEnv("REDIS_ADDR", DefaultRedisAddr),
		AccessTokenSecret:  mustGetEnv("ACCESS_TOKEN_SECRET"),
		RefreshTokenSecret: mustGetEnv("REFRESH_TOKEN_SECRET"),
		AccessExpiryMin:    getEnvAsInt("ACCESS_TOKEN_EXPIRY", DefaultAccessTokenExpiryMin),
		RefreshExpiryMin:   getEnvAsInt("REFRESH_TOKEN_EXPIRY", DefaultRefreshTokenExpiryMin),

		BcryptCost:             getEnvAsInt("BCRYPT_COST", DefaultBcryptCost),
		MaxActiveRefreshTokens: getEnvAsInt("MAX_ACTIVE_REFRESH_TOKENS", DefaultMaxActiveRefreshTokens),

		LoginMaxAttempts:   getEnvAsInt("LOGIN_MAX_ATTEMPTS", DefaultLoginMaxAttempts),
		LoginWindowMinutes: getEnvAsInt("LOGIN_WINDOW_MINUTES", DefaultLoginWindowMinutes),
		LockoutMinutes:     getEnvAsInt("LOCKOUT_MINUTES", DefaultLockoutMinutes),

		GeneralLimitPerWindow: getEnvAsInt("GENERAL_LIMIT_PER_WINDOW", DefaultGeneralLimitPerWindow),
		AuthLimitPerWindow:    getEnvAsInt("AUTH_LIMIT_PER_WINDOW", DefaultAuthLimitPerWindow),
		LimitWindowMinutes:    getEnvAsInt("LIMIT_WINDOW_MINUTES", DefaultLimitWindowMinutes),
		SlowDownFreeQuota:     getEnvAsInt("SLOWDOWN_FREE_QUOTA", DefaultSlowDownFreeQuota),
		SlowDownStepMillis:    getEnvAsInt("SLOWDOWN_STEP_MILLIS", DefaultSlowDownStepMillis),
		SlowDownMaxMillis:     getEnvAsInt("SLOWDOWN_MAX_MILLIS", DefaultSlowDownMaxMillis),

		CheckBreachedPasswords: getEnvAsBool("CHECK_BREACHED_PASSWORDS", true),
		CookieDomain:           getEnv("COOKIE_DOMAIN", ""),
	}
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key string, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func mustGetEnv(key string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	log.Fatalf("Missing required config: %s", key)
	return ""
}

func getEnvAsInt(key string, defaultVal int) int {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil {
		log.Printf("Invalid value for %s, using default %d", key, defaultVal)
		return defaultVal
	}
	return val
}

func getEnvAsBool(key string, defaultVal bool) bool {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.ParseBool(valStr)
	if err != nil {
		log.Printf("Invalid value for %s, using default %t", key, defaultVal)
		return defaultVal
	}
	return val
}
