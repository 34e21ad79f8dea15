package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultBaseURL      = "https://www.vlr.gg"
	DefaultDriver       = "sqlite"
	DefaultDSN          = "~/.local/share/vlr-matches/vlr_matches.db"
	DefaultDelay        = 1000 * time.Millisecond
	DefaultTimeout      = 10 * time.Second
	DefaultSchedule     = "*/15 * * * *"
	DefaultInitialDelay = 30 * time.Second
	DefaultHTTPAddr     = ":8080"
	DefaultLogLevel     = "info"
	DefaultConnectWait  = 30 * time.Second
)

// EnvPaths are the .env locations tried, first match wins
var EnvPaths = []string{".env", "../.env", "../../.env"}

// Config holds every tunable of the scraper
type Config struct {
	BaseURL        string
	DBDriver       string
	DBDSN          string
	RequestDelay   time.Duration
	RequestTimeout time.Duration
	Schedule       string
	InitialDelay   time.Duration
	HTTPAddr       string
	LogLevel       string
	MergeAfter     bool

	// ConnectWait bounds connection retries at startup; zero tries once
	ConnectWait time.Duration

	// EnvFile is the .env file that was loaded, empty when none was found
	EnvFile string
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		BaseURL:        DefaultBaseURL,
		DBDriver:       DefaultDriver,
		DBDSN:          DefaultDSN,
		RequestDelay:   DefaultDelay,
		RequestTimeout: DefaultTimeout,
		Schedule:       DefaultSchedule,
		InitialDelay:   DefaultInitialDelay,
		HTTPAddr:       DefaultHTTPAddr,
		LogLevel:       DefaultLogLevel,
		MergeAfter:     true,
		ConnectWait:    DefaultConnectWait,
	}
}

// Load reads the first available .env file from EnvPaths, then the environment
func Load() (*Config, error) {
	return LoadFrom(EnvPaths...)
}

// LoadFrom reads the first available of the given .env files, then the environment
func LoadFrom(envPaths ...string) (*Config, error) {
	cfg := Default()

	for _, path := range envPaths {
		if err := godotenv.Load(path); err == nil {
			cfg.EnvFile = path
			break
		}
	}

	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("VLR_BASE_URL"); v != "" {
		c.BaseURL = strings.TrimRight(v, "/")
	}
	if v := getenv("VLR_DB_DRIVER"); v != "" {
		c.DBDriver = strings.ToLower(v)
	}
	if v := getenv("VLR_DB_DSN"); v != "" {
		c.DBDSN = v
	} else if v := getenv("DATABASE_URL"); v != "" && c.DBDriver == "pgx" {
		c.DBDSN = v
	}
	if v := getenv("VLR_SCHEDULE"); v != "" {
		c.Schedule = v
	}
	if v := getenv("VLR_HTTP_ADDR"); v != "" {
		c.HTTPAddr = v
	}
	if v := getenv("VLR_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"VLR_REQUEST_DELAY", &c.RequestDelay},
		{"VLR_REQUEST_TIMEOUT", &c.RequestTimeout},
		{"VLR_INITIAL_DELAY", &c.InitialDelay},
		{"VLR_DB_CONNECT_WAIT", &c.ConnectWait},
	}
	for _, d := range durations {
		v := getenv(d.key)
		if v == "" {
			continue
		}
		parsed, err := ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", d.key, err)
		}
		*d.dst = parsed
	}

	if v := getenv("VLR_MERGE_AFTER_CYCLE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parsing VLR_MERGE_AFTER_CYCLE: %w", err)
		}
		c.MergeAfter = b
	}

	return nil
}

// ParseDuration accepts Go duration strings or a bare integer number of milliseconds
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if ms, err := strconv.Atoi(s); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	return time.ParseDuration(s)
}

// Validate checks the settings that would otherwise fail late
func (c *Config) Validate() error {
	switch c.DBDriver {
	case "sqlite", "pgx":
	default:
		return fmt.Errorf("invalid database driver: %s (must be 'sqlite' or 'pgx')", c.DBDriver)
	}
	if c.DBDSN == "" {
		return fmt.Errorf("database DSN is required")
	}
	if c.RequestDelay < 0 {
		return fmt.Errorf("request delay must not be negative")
	}
	if c.ConnectWait < 0 {
		return fmt.Errorf("connect wait must not be negative")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive")
	}
	if !strings.HasPrefix(c.BaseURL, "http") {
		return fmt.Errorf("invalid base URL: %s", c.BaseURL)
	}
	return nil
}

// ResolveDSN expands ~/ in sqlite paths and creates the parent directory
func (c *Config) ResolveDSN() (string, error) {
	if c.DBDriver != "sqlite" || c.DBDSN == ":memory:" || strings.HasPrefix(c.DBDSN, "file:") {
		return c.DBDSN, nil
	}

	path := c.DBDSN
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("creating data directory: %w", err)
	}
	return path, nil
}
