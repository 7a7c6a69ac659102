package config

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the top-level application configuration
type Config struct {
	Logging  LoggingConfig  `toml:"logging"`
	Source   SourceConfig   `toml:"source"`
	Storage  StorageConfig  `toml:"storage"`
	Analysis AnalysisConfig `toml:"analysis"`
	Export   ExportConfig   `toml:"export"`
	Server   ServerConfig   `toml:"server"`
}

// LoggingConfig represents the logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	File   string `toml:"file"`
}

// SourceConfig selects and configures the report source
type SourceConfig struct {
	// Driver selects where raw state vectors are read from: "sqlite" for a
	// local snapshot database, "postgres" for a warehouse.
	Driver   string         `toml:"driver"`
	Table    string         `toml:"table"`
	Postgres PostgresConfig `toml:"postgres"`
}

// PostgresConfig holds warehouse connection settings
type PostgresConfig struct {
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	Username     string `toml:"username"`
	Password     string `toml:"password"`
	Database     string `toml:"database"`
	SSLMode      string `toml:"ssl_mode"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// StorageConfig holds settings for the local analysis store
type StorageConfig struct {
	// Path to the SQLite database holding results; also the report source
	// when the source driver is "sqlite".
	Path string `toml:"path"`
}

// AnalysisConfig bounds the batch run
type AnalysisConfig struct {
	// StartDate/EndDate bound the overall run as UTC calendar dates
	// (YYYY-MM-DD); each window covers WindowHours starting at StartDate.
	StartDate   string `toml:"start_date"`
	EndDate     string `toml:"end_date"`
	WindowHours int    `toml:"window_hours"`
	// Workers bounds the per-aircraft parallelism inside one window.
	Workers int `toml:"workers"`
	// WindowsPerMinute throttles how fast consecutive windows are issued
	// against the source. Zero disables throttling.
	WindowsPerMinute int `toml:"windows_per_minute"`
}

// ExportConfig controls per-window CSV report files
type ExportConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

// ServerConfig configures the read-only results API
type ServerConfig struct {
	Host               string   `toml:"host"`
	Port               int      `toml:"port"`
	CORSAllowedOrigins []string `toml:"cors_allowed_origins"`
}

// DefaultConfig returns the configuration defaults
func DefaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			File:   "gpswatch.log",
		},
		Source: SourceConfig{
			Driver: "sqlite",
			Table:  "state_vectors",
			Postgres: PostgresConfig{
				Host:         "localhost",
				Port:         5432,
				Database:     "opensky",
				SSLMode:      "disable",
				MaxOpenConns: 4,
				MaxIdleConns: 2,
			},
		},
		Storage: StorageConfig{
			Path: "gpswatch.db",
		},
		Analysis: AnalysisConfig{
			WindowHours:      24,
			Workers:          runtime.NumCPU(),
			WindowsPerMinute: 6,
		},
		Export: ExportConfig{
			Enabled: true,
			Dir:     "reports",
		},
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
	}
}

// Load reads the configuration from the given TOML file, applying defaults
// for anything the file leaves unset.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file not found: %w", err)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration for inconsistencies
func (c *Config) Validate() error {
	switch c.Source.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported source driver: %s", c.Source.Driver)
	}

	if c.Storage.Path == "" {
		return fmt.Errorf("storage path must be set")
	}

	if c.Analysis.WindowHours <= 0 {
		return fmt.Errorf("window_hours must be positive, got %d", c.Analysis.WindowHours)
	}
	if c.Analysis.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", c.Analysis.Workers)
	}
	if c.Analysis.WindowsPerMinute < 0 {
		return fmt.Errorf("windows_per_minute must not be negative, got %d", c.Analysis.WindowsPerMinute)
	}

	if _, err := c.AnalysisRange(); err != nil {
		return err
	}

	return nil
}

// AnalysisRange parses the configured date range into UTC instants.
func (c *Config) AnalysisRange() (Range, error) {
	start, err := time.ParseInLocation("2006-01-02", c.Analysis.StartDate, time.UTC)
	if err != nil {
		return Range{}, fmt.Errorf("invalid start_date %q: %w", c.Analysis.StartDate, err)
	}
	end, err := time.ParseInLocation("2006-01-02", c.Analysis.EndDate, time.UTC)
	if err != nil {
		return Range{}, fmt.Errorf("invalid end_date %q: %w", c.Analysis.EndDate, err)
	}
	if !end.After(start) {
		return Range{}, fmt.Errorf("end_date %s must be after start_date %s", c.Analysis.EndDate, c.Analysis.StartDate)
	}
	return Range{Start: start, End: end}, nil
}

// Range is a half-open [Start, End) analysis range
type Range struct {
	Start time.Time
	End   time.Time
}
