package library

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Backend names accepted by Config.Backend.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Config is everything needed to open a library.
type Config struct {
	DataDir  string
	Backend  string
	DBFile   string // SQLite file name inside DataDir
	LogLevel string
	Policy   Policy
}

// DefaultConfig keeps JSON documents in the working directory.
func DefaultConfig() Config {
	return Config{
		DataDir:  ".",
		Backend:  BackendJSON,
		DBFile:   "library.db",
		LogLevel: "warn",
		Policy:   DefaultPolicy(),
	}
}

// LoadConfig applies LIBRARY_* environment variables over the defaults.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()

	if v := os.Getenv("LIBRARY_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("LIBRARY_BACKEND"); v != "" {
		cfg.Backend = v
	}
	if v := os.Getenv("LIBRARY_DB_FILE"); v != "" {
		cfg.DBFile = v
	}
	if v := os.Getenv("LIBRARY_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("LIBRARY_LOAN_PERIOD_DAYS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("LIBRARY_LOAN_PERIOD_DAYS: %w", err)
		}
		cfg.Policy.LoanPeriodDays = n
	}
	if v := os.Getenv("LIBRARY_FINE_PER_DAY"); v != "" {
		a, err := ParseAmount(v)
		if err != nil {
			return cfg, fmt.Errorf("LIBRARY_FINE_PER_DAY: %w", err)
		}
		cfg.Policy.FinePerDay = a
	}
	if v := os.Getenv("LIBRARY_MAX_LOANS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("LIBRARY_MAX_LOANS: %w", err)
		}
		cfg.Policy.MaxLoans = n
	}
	return cfg, cfg.Validate()
}

// Validate rejects settings the workflow cannot run with.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendJSON, BackendSQLite, BackendMemory:
	default:
		return fmt.Errorf("unknown backend %q (want %s, %s or %s)", c.Backend, BackendJSON, BackendSQLite, BackendMemory)
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	if c.Policy.LoanPeriodDays < 0 {
		return fmt.Errorf("loan period must not be negative, got %d", c.Policy.LoanPeriodDays)
	}
	if c.Policy.FinePerDay < 0 || c.Policy.FinePerDay > MaxFinePerDay {
		return fmt.Errorf("fine per day must be between 0.00 and %s, got %s", MaxFinePerDay, c.Policy.FinePerDay)
	}
	if c.Policy.MaxLoans < 1 {
		return fmt.Errorf("max loans must be at least 1, got %d", c.Policy.MaxLoans)
	}
	return nil
}

// OpenPersister builds the persister selected by Backend.
func (c Config) OpenPersister() (Persister, error) {
	switch c.Backend {
	case BackendJSON:
		return NewJSONFiles(c.DataDir), nil
	case BackendSQLite:
		return NewDatabase(filepath.Join(c.DataDir, c.DBFile))
	case BackendMemory:
		return NewMemoryPersister(), nil
	}
	return nil, fmt.Errorf("unknown backend %q", c.Backend)
}

// ParseLogLevel maps debug, info, warn and error to slog levels.
func ParseLogLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("log level: %w", err)
	}
	return lvl, nil
}
