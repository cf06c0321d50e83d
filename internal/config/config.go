package config

import (
	"database/sql"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mescon/Hassarr/internal/crypto"
)

// Version is set at build time via -ldflags
var Version = "dev"

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Port is the HTTP server listen port (default: 5056)
	Port string

	// BasePath is the URL base path for reverse proxy setups (default: "/")
	BasePath string

	// BasePathSource indicates where the base path came from: "environment", "database", "flag" or "default"
	BasePathSource string

	// LogLevel controls logging verbosity: "debug", "info", "warn", "error" (default: "info")
	LogLevel string

	// Overseerr connection. Empty values may be filled from the settings table.
	OverseerrURL    string
	OverseerrAPIKey string

	// Legacy direct-add targets. Optional.
	RadarrURL              string
	RadarrAPIKey           string
	RadarrQualityProfileID int
	SonarrURL              string
	SonarrAPIKey           string
	SonarrQualityProfileID int

	// RequestTimeout bounds every outbound HTTP call (default: 30s)
	RequestTimeout time.Duration

	// RateLimitRPS / RateLimitBurst throttle outbound calls to Overseerr and the *arrs
	RateLimitRPS   float64
	RateLimitBurst int

	// RefreshSchedule is the cron expression for the sensor refresh (default: "@every 30s")
	RefreshSchedule string

	// AddCooldown is how long a successful add suppresses identical repeats (default: 30s)
	AddCooldown time.Duration

	// RetentionDays is how long events are kept (default: 30). 0 disables pruning.
	RetentionDays int

	// NotifyURLs are shoutrrr service URLs for outbound notifications
	NotifyURLs []string

	// CORSOrigin enables CORS for a single origin when set
	CORSOrigin string

	// DataDir is the directory for persistent data (database, logs)
	DataDir string

	// DatabasePath is the SQLite database file path (default: <DataDir>/hassarr.db)
	DatabasePath string

	// LogDir is the directory for log files (default: <DataDir>/logs)
	LogDir string

	// MetricsEnabled exposes /metrics (default: true)
	MetricsEnabled bool

	// envSet records which connection settings came from the environment
	envSet map[string]bool
}

// Global singleton
var cfg *Config

// Load reads configuration from environment variables with sensible defaults.
// Should be called once at application startup.
func Load() *Config {
	basePath := getEnvOrDefault("HASSARR_BASE_PATH", "")
	basePathSource := "default"
	if basePath != "" {
		basePathSource = "environment"
	} else {
		basePath = "/"
	}

	dataDir := getEnvOrDefault("HASSARR_DATA_DIR", "")
	if dataDir == "" {
		dataDir = defaultDataDir()
	}
	if absDataDir, err := filepath.Abs(dataDir); err == nil {
		dataDir = absDataDir
	}
	os.MkdirAll(dataDir, 0755)

	dbPath := getEnvOrDefault("HASSARR_DATABASE_PATH", "")
	if dbPath == "" {
		dbPath = filepath.Join(dataDir, "hassarr.db")
	}

	logDir := filepath.Join(dataDir, "logs")
	os.MkdirAll(logDir, 0755)

	cfg = &Config{
		Port:                   getEnvOrDefault("HASSARR_PORT", "5056"),
		BasePath:               normalizeBasePath(basePath),
		BasePathSource:         basePathSource,
		LogLevel:               strings.ToLower(getEnvOrDefault("HASSARR_LOG_LEVEL", "info")),
		OverseerrURL:           getEnvOrDefault("HASSARR_OVERSEERR_URL", ""),
		OverseerrAPIKey:        getEnvOrDefault("HASSARR_OVERSEERR_API_KEY", ""),
		RadarrURL:              getEnvOrDefault("HASSARR_RADARR_URL", ""),
		RadarrAPIKey:           getEnvOrDefault("HASSARR_RADARR_API_KEY", ""),
		RadarrQualityProfileID: getEnvIntOrDefault("HASSARR_RADARR_QUALITY_PROFILE_ID", 0),
		SonarrURL:              getEnvOrDefault("HASSARR_SONARR_URL", ""),
		SonarrAPIKey:           getEnvOrDefault("HASSARR_SONARR_API_KEY", ""),
		SonarrQualityProfileID: getEnvIntOrDefault("HASSARR_SONARR_QUALITY_PROFILE_ID", 0),
		RequestTimeout:         getEnvDurationOrDefault("HASSARR_REQUEST_TIMEOUT", 30*time.Second),
		RateLimitRPS:           getEnvFloatOrDefault("HASSARR_RATE_LIMIT_RPS", 5.0),
		RateLimitBurst:         getEnvIntOrDefault("HASSARR_RATE_LIMIT_BURST", 10),
		RefreshSchedule:        getEnvOrDefault("HASSARR_REFRESH_SCHEDULE", "@every 30s"),
		AddCooldown:            getEnvDurationOrDefault("HASSARR_ADD_COOLDOWN", 30*time.Second),
		RetentionDays:          getEnvIntOrDefault("HASSARR_RETENTION_DAYS", 30),
		NotifyURLs:             splitList(getEnvOrDefault("HASSARR_NOTIFY_URLS", "")),
		CORSOrigin:             getEnvOrDefault("HASSARR_CORS_ORIGIN", ""),
		MetricsEnabled:         getEnvBoolOrDefault("HASSARR_METRICS", true),
		DataDir:                dataDir,
		DatabasePath:           dbPath,
		LogDir:                 logDir,
		envSet:                 map[string]bool{},
	}
	for _, key := range settingKeys {
		if os.Getenv(key.env) != "" {
			cfg.envSet[key.setting] = true
		}
	}

	cfg.LogLevel = validLogLevel(cfg.LogLevel)
	return cfg
}

// defaultDataDir returns /config inside a container, ./config next to the binary otherwise.
func defaultDataDir() string {
	if info, err := os.Stat("/config"); err == nil && info.IsDir() {
		return "/config"
	}
	if execPath, err := os.Executable(); err == nil {
		return filepath.Join(filepath.Dir(execPath), "config")
	}
	if cwd, err := os.Getwd(); err == nil {
		return filepath.Join(cwd, "config")
	}
	return "./config"
}

func validLogLevel(level string) string {
	switch level {
	case "debug", "info", "warn", "error":
		return level
	default:
		return "info"
	}
}

// normalizeBasePath ensures a leading slash and no trailing slash (except for "/").
func normalizeBasePath(basePath string) string {
	if basePath == "" || basePath == "/" {
		return "/"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	return strings.TrimSuffix(basePath, "/")
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// settingKeys maps database settings keys to the env vars that take precedence over them.
var settingKeys = []struct {
	setting string
	env     string
	secret  bool
}{
	{"overseerr_url", "HASSARR_OVERSEERR_URL", false},
	{"overseerr_api_key", "HASSARR_OVERSEERR_API_KEY", true},
	{"radarr_url", "HASSARR_RADARR_URL", false},
	{"radarr_api_key", "HASSARR_RADARR_API_KEY", true},
	{"radarr_quality_profile_id", "HASSARR_RADARR_QUALITY_PROFILE_ID", false},
	{"sonarr_url", "HASSARR_SONARR_URL", false},
	{"sonarr_api_key", "HASSARR_SONARR_API_KEY", true},
	{"sonarr_quality_profile_id", "HASSARR_SONARR_QUALITY_PROFILE_ID", false},
}

// IsSecretSetting reports whether a settings key holds a credential that is stored encrypted.
func IsSecretSetting(key string) bool {
	for _, k := range settingKeys {
		if k.setting == key {
			return k.secret
		}
	}
	return false
}

// IsConnectionSetting reports whether key is one of the connection settings this package overlays.
func IsConnectionSetting(key string) bool {
	for _, k := range settingKeys {
		if k.setting == key {
			return true
		}
	}
	return false
}

// LoadBasePathFromDB loads the base path from the database if not set via environment.
// Should be called after database is initialized.
func LoadBasePathFromDB(db *sql.DB) {
	if cfg == nil || cfg.BasePathSource == "environment" || cfg.BasePathSource == "flag" {
		return
	}

	var basePath string
	err := db.QueryRow("SELECT value FROM settings WHERE key = 'base_path'").Scan(&basePath)
	if err != nil || basePath == "" {
		return
	}

	cfg.BasePath = normalizeBasePath(basePath)
	cfg.BasePathSource = "database"
}

// LoadSettingsFromDB fills connection settings that were not provided through
// the environment from the settings table. Encrypted values are decrypted.
// Returns the number of settings applied.
func LoadSettingsFromDB(db *sql.DB) int {
	if cfg == nil {
		return 0
	}

	applied := 0
	for _, key := range settingKeys {
		if cfg.envSet[key.setting] {
			continue
		}
		var value string
		if err := db.QueryRow("SELECT value FROM settings WHERE key = ?", key.setting).Scan(&value); err != nil || value == "" {
			continue
		}
		if key.secret {
			plain, err := crypto.Decrypt(value)
			if err != nil {
				continue
			}
			value = plain
		}
		if cfg.applySetting(key.setting, value) {
			applied++
		}
	}
	return applied
}

// ApplySetting updates a single connection setting at runtime, e.g. after the
// settings endpoint stored a new value. Returns false for unknown keys.
func ApplySetting(key, value string) bool {
	if cfg == nil {
		return false
	}
	return cfg.applySetting(key, value)
}

func (c *Config) applySetting(key, value string) bool {
	switch key {
	case "overseerr_url":
		c.OverseerrURL = value
	case "overseerr_api_key":
		c.OverseerrAPIKey = value
	case "radarr_url":
		c.RadarrURL = value
	case "radarr_api_key":
		c.RadarrAPIKey = value
	case "radarr_quality_profile_id":
		id, err := strconv.Atoi(value)
		if err != nil {
			return false
		}
		c.RadarrQualityProfileID = id
	case "sonarr_url":
		c.SonarrURL = value
	case "sonarr_api_key":
		c.SonarrAPIKey = value
	case "sonarr_quality_profile_id":
		id, err := strconv.Atoi(value)
		if err != nil {
			return false
		}
		c.SonarrQualityProfileID = id
	default:
		return false
	}
	return true
}

// Get returns the current configuration. Panics if Load() hasn't been called.
func Get() *Config {
	if cfg == nil {
		panic("config.Load() must be called before config.Get()")
	}
	return cfg
}

// SetForTesting allows tests to set the global config without calling Load().
// This should ONLY be used in test code.
func SetForTesting(c *Config) {
	cfg = c
}

// NewTestConfig returns a minimal Config suitable for unit tests.
func NewTestConfig() *Config {
	return &Config{
		Port:            "8080",
		BasePath:        "/",
		BasePathSource:  "test",
		LogLevel:        "debug",
		RequestTimeout:  5 * time.Second,
		RateLimitRPS:    100,
		RateLimitBurst:  100,
		RefreshSchedule: "@every 30s",
		AddCooldown:     30 * time.Second,
		RetentionDays:   30,
		MetricsEnabled:  true,
		DataDir:         "/tmp/hassarr-test",
		DatabasePath:    "/tmp/hassarr-test/hassarr.db",
		LogDir:          "/tmp/hassarr-test/logs",
		envSet:          map[string]bool{},
	}
}

// getEnvOrDefault returns the environment variable value or the default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvIntOrDefault returns the environment variable as an int or the default if not set/invalid.
func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

// getEnvDurationOrDefault accepts Go duration strings like "30s", "5m", "72h".
func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvBoolOrDefault accepts "true", "1", "yes" as true values (case-insensitive).
func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		lower := strings.ToLower(value)
		return lower == "true" || lower == "1" || lower == "yes"
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// FlagOverrides holds command-line flag values that can override environment variables
type FlagOverrides struct {
	Port            *string
	BasePath        *string
	LogLevel        *string
	DataDir         *string
	DatabasePath    *string
	OverseerrURL    *string
	RequestTimeout  *time.Duration
	RefreshSchedule *string
	RetentionDays   *int
}

// ApplyFlags applies command-line flag overrides to the configuration.
// Should be called after Load() and after flag parsing.
func ApplyFlags(flags FlagOverrides) {
	if cfg == nil {
		return
	}

	if flags.Port != nil && *flags.Port != "" {
		cfg.Port = *flags.Port
	}
	if flags.BasePath != nil && *flags.BasePath != "" {
		cfg.BasePath = normalizeBasePath(*flags.BasePath)
		cfg.BasePathSource = "flag"
	}
	if flags.LogLevel != nil && *flags.LogLevel != "" {
		cfg.LogLevel = validLogLevel(strings.ToLower(*flags.LogLevel))
	}
	if flags.DataDir != nil && *flags.DataDir != "" {
		cfg.DataDir = *flags.DataDir
		cfg.LogDir = filepath.Join(*flags.DataDir, "logs")
	}
	if flags.DatabasePath != nil && *flags.DatabasePath != "" {
		cfg.DatabasePath = *flags.DatabasePath
	}
	if flags.OverseerrURL != nil && *flags.OverseerrURL != "" {
		cfg.OverseerrURL = *flags.OverseerrURL
		cfg.envSet["overseerr_url"] = true
	}
	if flags.RequestTimeout != nil && *flags.RequestTimeout != 0 {
		cfg.RequestTimeout = *flags.RequestTimeout
	}
	if flags.RefreshSchedule != nil && *flags.RefreshSchedule != "" {
		cfg.RefreshSchedule = *flags.RefreshSchedule
	}
	if flags.RetentionDays != nil {
		cfg.RetentionDays = *flags.RetentionDays
	}
}
