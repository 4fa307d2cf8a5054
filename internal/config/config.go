package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port               string
	RateLimitPerMinute int

	// Database
	SQLiteDBPath string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets export
	GoogleSpreadsheetID   string
	GoogleSheetName       string
	GoogleOAuthClientFile string
	GoogleOAuthTokenFile  string
	GoogleOAuthClientJSON string
	GoogleOAuthTokenJSON  string

	// Authentication
	JWTSecret string
	JWTIssuer string

	// Domain
	DefaultWeeklyGoal    float64
	LeaderboardCacheTTL  time.Duration
	ChallengeCatalogPath string

	// Worker
	ExportBatchSize int
	ExportInterval  time.Duration

	// Backend selection
	DataBackend string
	DataDir     string

	LogLevel string
}

func Load() *Config {
	cfg := &Config{
		Port:               getEnv("PORT", "8081"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/ecotrack.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "ecotrack"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "activity_export"),

		GoogleSpreadsheetID:   getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:       getEnv("GOOGLE_SHEET_NAME", ""),
		GoogleOAuthClientFile: getEnv("GOOGLE_OAUTH_CLIENT_FILE", ""),
		GoogleOAuthTokenFile:  getEnv("GOOGLE_OAUTH_TOKEN_FILE", ""),
		GoogleOAuthClientJSON: getEnv("GOOGLE_OAUTH_CLIENT_JSON", ""),
		GoogleOAuthTokenJSON:  getEnv("GOOGLE_OAUTH_TOKEN_JSON", ""),

		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTIssuer: getEnv("JWT_ISSUER", ""),

		DefaultWeeklyGoal:    getEnvFloat("DEFAULT_WEEKLY_GOAL", 50),
		LeaderboardCacheTTL:  getEnvDuration("LEADERBOARD_CACHE_TTL", 30*time.Second),
		ChallengeCatalogPath: getEnv("CHALLENGE_CATALOG_PATH", ""),

		ExportBatchSize: getEnvInt("EXPORT_BATCH_SIZE", 10),
		ExportInterval:  getEnvDuration("EXPORT_INTERVAL", 30*time.Second),

		DataBackend: getEnv("DATA_BACKEND", "memory"),
		DataDir:     getEnv("DATA_DIR", "./data"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
	return cfg
}

// SheetsExportEnabled reports whether the worker should export to Google Sheets.
func (c *Config) SheetsExportEnabled() bool {
	return c.GoogleSpreadsheetID != ""
}

// problems collects validation failures so Validate can report all of them.
type problems []string

func (p *problems) addf(format string, args ...any) {
	*p = append(*p, fmt.Sprintf(format, args...))
}

func (p *problems) check(ok bool, format string, args ...any) {
	if !ok {
		p.addf(format, args...)
	}
}

var dataBackends = []string{"memory", "file", "sqlite"}

// Validate reports every invalid setting in one error. It creates the
// SQLite directory when it is missing.
func (c *Config) Validate() error {
	var p problems
	c.validateServer(&p)
	c.validateStorage(&p)
	c.validateAMQP(&p)
	c.validateSheets(&p)
	c.validateDomain(&p)
	c.validateWorker(&p)
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		p.addf("%v", err)
	}

	if len(p) == 0 {
		return nil
	}
	return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(p, "\n- "))
}

func (c *Config) validateServer(p *problems) {
	port, err := strconv.Atoi(c.Port)
	switch {
	case err != nil:
		p.addf("invalid port '%s': must be a number", c.Port)
	case port < 1 || port > 65535:
		p.addf("invalid port %d: must be between 1 and 65535", port)
	}
	p.check(c.RateLimitPerMinute >= 1, "invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute)
}

func (c *Config) validateStorage(p *problems) {
	switch c.DataBackend {
	case "sqlite":
		if c.SQLiteDBPath == "" {
			p.addf("SQLite database path cannot be empty when using sqlite backend")
			return
		}
		if dir := filepath.Dir(c.SQLiteDBPath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				p.addf("cannot create SQLite database directory '%s': %v", dir, err)
			}
		}
	case "file":
		p.check(c.DataDir != "", "data directory cannot be empty when using file backend")
	case "memory":
	default:
		p.addf("invalid data backend '%s': must be one of %v", c.DataBackend, dataBackends)
	}
}

func (c *Config) validateAMQP(p *problems) {
	if c.AMQPURL == "" {
		return
	}
	u, err := url.Parse(c.AMQPURL)
	if err != nil {
		p.addf("invalid AMQP URL '%s': %v", c.AMQPURL, err)
	} else {
		p.check(u.Scheme == "amqp" || u.Scheme == "amqps", "invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", u.Scheme)
	}
	p.check(c.AMQPExchange != "", "AMQP exchange name cannot be empty when AMQP URL is provided")
	p.check(c.AMQPQueue != "", "AMQP queue name cannot be empty when AMQP URL is provided")
}

// validateSheets accepts the OAuth client and token either as files or as
// inline JSON.
func (c *Config) validateSheets(p *problems) {
	if !c.SheetsExportEnabled() {
		return
	}
	p.check(c.GoogleSheetName != "", "Google Sheet name is required when GOOGLE_SPREADSHEET_ID is set")
	p.check(c.GoogleOAuthClientFile != "" || c.GoogleOAuthClientJSON != "",
		"either GOOGLE_OAUTH_CLIENT_FILE or GOOGLE_OAUTH_CLIENT_JSON must be provided for sheets export")
	p.check(c.GoogleOAuthTokenFile != "" || c.GoogleOAuthTokenJSON != "",
		"either GOOGLE_OAUTH_TOKEN_FILE or GOOGLE_OAUTH_TOKEN_JSON must be provided for sheets export")
	for label, path := range map[string]string{"client": c.GoogleOAuthClientFile, "token": c.GoogleOAuthTokenFile} {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			p.addf("Google OAuth %s file does not exist: %s", label, path)
		}
	}
}

func (c *Config) validateDomain(p *problems) {
	p.check(c.DefaultWeeklyGoal > 0, "invalid default weekly goal %v: must be greater than zero", c.DefaultWeeklyGoal)
	p.check(c.LeaderboardCacheTTL >= 0, "invalid leaderboard cache TTL %v: must not be negative", c.LeaderboardCacheTTL)
	if c.ChallengeCatalogPath != "" {
		if _, err := os.Stat(c.ChallengeCatalogPath); err != nil {
			p.addf("challenge catalog not readable: %s", c.ChallengeCatalogPath)
		}
	}
}

func (c *Config) validateWorker(p *problems) {
	switch {
	case c.ExportBatchSize < 1:
		p.addf("invalid export batch size %d: must be at least 1", c.ExportBatchSize)
	case c.ExportBatchSize > 1000:
		p.addf("invalid export batch size %d: must be at most 1000", c.ExportBatchSize)
	}
	switch {
	case c.ExportInterval < time.Second:
		p.addf("invalid export interval %v: must be at least 1 second", c.ExportInterval)
	case c.ExportInterval > 24*time.Hour:
		p.addf("invalid export interval %v: must be at most 24 hours", c.ExportInterval)
	}
}

// ParseLogLevel maps debug|info|warn|error to a slog level.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("invalid log level '%s': must be one of debug, info, warn, error", s)
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

// getEnvParsed falls back when the variable is unset or does not parse.
func getEnvParsed[T any](key string, fallback T, parse func(string) (T, error)) T {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := parse(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	return getEnvParsed(key, fallback, strconv.Atoi)
}

func getEnvFloat(key string, fallback float64) float64 {
	return getEnvParsed(key, fallback, func(s string) (float64, error) { return strconv.ParseFloat(s, 64) })
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	return getEnvParsed(key, fallback, time.ParseDuration)
}
