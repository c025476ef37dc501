package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"jvsview/internal/httputil"
	"jvsview/internal/humanize"
)

const (
	DefaultServerAddress   = "http://127.0.0.1:8081/"
	DefaultRefreshInterval = 10 * time.Second
	DefaultClockSyncURI    = "http://time.akamai.com/?iso"
	DefaultListenAddr      = ":8090"
	DefaultDBPath          = "./data/jvsview.db"
	DefaultRetentionDays   = 30
)

type Config struct {
	ServerAddress   string
	RefreshInterval time.Duration
	ClockSyncURI    string
	ListenAddr      string
	DBPath          string
	LogLevel        string
	LogFormat       string
	DateLocation    *time.Location
	Locale          string
	CORSOrigin      string

	// PauseRefresh suppresses timer-driven catalog refreshes while a
	// playback session is active. Manual refreshes always run.
	PauseRefresh bool

	// CatalogRateLimit caps outbound catalog requests per second; 0 disables it.
	CatalogRateLimit float64

	// HistoryRetention bounds stored playback history; 0 keeps everything.
	HistoryRetention time.Duration
}

// LoadEnv reads .env files into the process environment. A missing file is
// reported as an error that callers may ignore.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	return godotenv.Load(paths...)
}

// Load builds a Config from the environment, applying defaults for unset keys.
func Load() (*Config, error) {
	cfg := &Config{
		ServerAddress: GetEnv("SERVER_ADDRESS", DefaultServerAddress),
		ClockSyncURI:  GetEnv("CLOCK_SYNC_URI", DefaultClockSyncURI),
		ListenAddr:    GetEnv("LISTEN_ADDR", DefaultListenAddr),
		DBPath:        GetEnv("DB_PATH", DefaultDBPath),
		LogLevel:      GetEnv("LOG_LEVEL", "info"),
		LogFormat:     GetEnv("LOG_FORMAT", "json"),
		Locale:        strings.ToLower(GetEnv("LOCALE", "en")),
		CORSOrigin:    os.Getenv("CORS_ORIGIN"),
	}

	if err := httputil.ValidateURL(cfg.ServerAddress); err != nil {
		return nil, fmt.Errorf("SERVER_ADDRESS: %w", err)
	}
	if err := httputil.ValidateURL(cfg.ClockSyncURI); err != nil {
		return nil, fmt.Errorf("CLOCK_SYNC_URI: %w", err)
	}
	if _, ok := humanize.Lookup(cfg.Locale); !ok {
		return nil, fmt.Errorf("LOCALE: unsupported locale %q (supported: %s)", cfg.Locale, strings.Join(humanize.Locales(), ", "))
	}

	ms, err := getEnvInt("REFRESH_INTERVAL_MS", int(DefaultRefreshInterval/time.Millisecond))
	if err != nil {
		return nil, err
	}
	if ms <= 0 {
		return nil, fmt.Errorf("REFRESH_INTERVAL_MS must be positive, got %d", ms)
	}
	cfg.RefreshInterval = time.Duration(ms) * time.Millisecond

	if cfg.PauseRefresh, err = getEnvBool("PAUSE_REFRESH_DURING_PLAYBACK", true); err != nil {
		return nil, err
	}

	if s := os.Getenv("CATALOG_RATE_LIMIT"); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || v < 0 {
			return nil, fmt.Errorf("CATALOG_RATE_LIMIT: invalid value %q", s)
		}
		cfg.CatalogRateLimit = v
	}

	days, err := getEnvInt("HISTORY_RETENTION_DAYS", DefaultRetentionDays)
	if err != nil {
		return nil, err
	}
	if days < 0 {
		return nil, fmt.Errorf("HISTORY_RETENTION_DAYS must not be negative, got %d", days)
	}
	cfg.HistoryRetention = time.Duration(days) * 24 * time.Hour

	loc, err := time.LoadLocation(GetEnv("DATE_LOCATION", "UTC"))
	if err != nil {
		return nil, fmt.Errorf("DATE_LOCATION: %w", err)
	}
	cfg.DateLocation = loc

	return cfg, nil
}

// GetEnv returns the value of the environment variable named by key, or
// fallback if the variable is unset or empty.
func GetEnv(key, fallback string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q", key, s)
	}
	return n, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("%s: invalid boolean %q", key, s)
	}
	return b, nil
}
