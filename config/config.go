package config

import (
	"encoding/json"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/linesmerrill/sentinel-campus-api/models"
)

// Store backends
const (
	StoreMemory = "memory"
	StoreMongo  = "mongo"
)

// Config holds the project config values
type Config struct {
	Port    string
	BaseURL string
	Env     string

	StoreBackend       string
	DatabaseURL        string
	DatabaseName       string
	QueryTimeout       time.Duration
	StoreRetryAttempts int
	StoreRetryBackoff  time.Duration
	RequestTimeout     time.Duration

	RedisAddress      string
	RedisPassword     string
	SubmitLimitPerDay int

	JWTSecret     string
	TokenTTL      time.Duration
	AdminEmail    string
	AdminPassword string
	AdminName     string
	AdminRole     models.AdminRole

	SnowflakeNode           int64
	ClearResolvedAtOnReopen bool
	SeedSampleIssues        bool
	WeeklyReportCron        string
	WeeklyReportMaxAge      time.Duration
}

// New sets up all config related services. Values come from the environment,
// optionally loaded from a .env file in the working directory.
func New() *Config {
	envErr := godotenv.Load()

	env := getEnv("ENV", "local")

	//setup zap logger and replace default logger
	logger, err := setLogger(env)
	if err != nil {
		logger = zap.NewExample()
	}
	defer logger.Sync()
	_ = zap.ReplaceGlobals(logger)

	if envErr != nil {
		zap.S().Debugw("no .env file loaded", "error", envErr)
	}

	conf := &Config{
		Port:    getEnv("PORT", "8080"),
		BaseURL: os.Getenv("BASE_URL"),
		Env:     env,

		StoreBackend:       strings.ToLower(getEnv("STORE_BACKEND", StoreMemory)),
		DatabaseURL:        os.Getenv("DB_URI"),
		DatabaseName:       getEnv("DB_NAME", "sentinel"),
		QueryTimeout:       getDuration("QUERY_TIMEOUT", 5*time.Second),
		StoreRetryAttempts: getInt("STORE_RETRY_ATTEMPTS", 3),
		StoreRetryBackoff:  getDuration("STORE_RETRY_BACKOFF", 100*time.Millisecond),
		RequestTimeout:     getDuration("REQUEST_TIMEOUT", 30*time.Second),

		RedisAddress:      os.Getenv("REDIS_ADDRESS"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		SubmitLimitPerDay: getInt("SUBMIT_LIMIT_PER_DAY", 20),

		JWTSecret:     os.Getenv("JWT_SECRET"),
		TokenTTL:      getDuration("TOKEN_TTL", 24*time.Hour),
		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		AdminName:     getEnv("ADMIN_NAME", "Campus Administrator"),
		AdminRole:     models.AdminRole(getEnv("ADMIN_ROLE", string(models.RoleManagement))),

		SnowflakeNode:           int64(getInt("SNOWFLAKE_NODE", 1)),
		ClearResolvedAtOnReopen: getBool("CLEAR_RESOLVED_AT_ON_REOPEN", false),
		SeedSampleIssues:        getBool("SEED_SAMPLE_ISSUES", false),
		WeeklyReportCron:        getEnv("WEEKLY_REPORT_CRON", "0 6 * * 1"),
		WeeklyReportMaxAge:      getDuration("WEEKLY_REPORT_MAX_AGE", 5*time.Minute),
	}

	if conf.JWTSecret == "" {
		// tokens will not survive a restart
		conf.JWTSecret = uuid.NewString()
		zap.S().Warn("JWT_SECRET not set, using a random signing secret")
	}
	if conf.StoreBackend != StoreMemory && conf.StoreBackend != StoreMongo {
		zap.S().Warnw("unknown store backend, falling back to memory", "backend", conf.StoreBackend)
		conf.StoreBackend = StoreMemory
	}

	return conf
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		zap.S().Warnw("invalid duration, using default", "key", key, "value", v, "default", fallback)
		return fallback
	}
	return d
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		zap.S().Warnw("invalid integer, using default", "key", key, "value", v, "default", fallback)
		return fallback
	}
	return n
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		zap.S().Warnw("invalid boolean, using default", "key", key, "value", v, "default", fallback)
		return fallback
	}
	return b
}

// ErrorStatus is a useful function that will log, write http headers and body for a
// give message, status code and err
func ErrorStatus(message string, httpStatusCode int, w http.ResponseWriter, err error) {
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	zap.S().With("error", detail, "status", httpStatusCode).Error(message)

	b, _ := json.Marshal(models.ErrorMessageResponse{
		Response: models.MessageError{
			Message: message,
			Error:   detail,
		},
	})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatusCode)
	w.Write(b)
}
