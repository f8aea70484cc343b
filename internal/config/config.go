package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	defaultConfigPath = "config/modewatch.toml"
)

// Load reads and parses the configuration file from the specified path.
// If path is empty, it uses the default path.
func Load(path string) (*Config, error) {
	if path == "" {
		path = defaultConfigPath
	}

	// Check if config file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found at %s", path)
	}

	// Start from defaults so omitted keys keep sensible values
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file: %w", err)
	}

	// Validate the configuration
	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadOrCreate attempts to load the configuration file, and if it doesn't exist,
// creates a default configuration file and returns the default config.
func LoadOrCreate(path string) (*Config, error) {
	if path == "" {
		path = defaultConfigPath
	}

	// Check if file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		defaultCfg := DefaultConfig()
		if err := CreateDefault(path, defaultCfg); err != nil {
			return nil, fmt.Errorf("failed to create default configuration: %w", err)
		}

		return defaultCfg, nil
	}

	return Load(path)
}

// CreateDefault creates a default configuration file at the specified path
func CreateDefault(path string, cfg *Config) (err error) {
	// Ensure the directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Create the file
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close config file: %w", closeErr)
		}
	}()

	// Encode the config to TOML
	encoder := toml.NewEncoder(f)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// DefaultConfig returns a configuration with RFC 2811 mode tables, used until
// the server advertises its own through ISUPPORT
func DefaultConfig() *Config {
	return &Config{
		Session: SessionConfig{
			Nickname:   "modewatch",
			ServerName: "server",
		},
		Modes: ModesConfig{
			ChanModes:   "beI,k,l,imnpst",
			Prefix:      "(ov)@+",
			ChanTypes:   "#&",
			UserModes:   "iwos",
			CaseMapping: "rfc1459",
		},
		Dispatch: DispatchConfig{
			LogDroppedErrors: true,
			ReentrancyGuard:  true,
		},
		Database: DatabaseConfig{
			Path:               "data/modewatch.db",
			WALMode:            true,
			EventRetentionDays: 30,
			MaintenanceHours:   24,
		},
		Logging: LoggingConfig{
			ErrorLog:     "data/error.log",
			MaxLogSizeMB: 10,
			MaxLogFiles:  5,
		},
	}
}

// validate checks that all required configuration fields are present and valid
func validate(cfg *Config) error {
	// Validate session settings
	if cfg.Session.Nickname == "" {
		return fmt.Errorf("session.nickname is required")
	}
	if cfg.Session.ServerName == "" {
		return fmt.Errorf("session.server_name is required")
	}

	// Validate mode tables
	if strings.Count(cfg.Modes.ChanModes, ",") < 3 {
		return fmt.Errorf("modes.chanmodes must have four comma-separated groups, got %q", cfg.Modes.ChanModes)
	}
	if err := validatePrefix(cfg.Modes.Prefix); err != nil {
		return err
	}
	if cfg.Modes.ChanTypes == "" {
		return fmt.Errorf("modes.chantypes is required")
	}
	switch cfg.Modes.CaseMapping {
	case "ascii", "rfc1459", "strict-rfc1459":
	default:
		return fmt.Errorf("modes.casemapping must be ascii, rfc1459 or strict-rfc1459, got %q", cfg.Modes.CaseMapping)
	}

	// Validate database settings
	if cfg.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if cfg.Database.EventRetentionDays <= 0 {
		return fmt.Errorf("database.event_retention_days must be positive, got %d", cfg.Database.EventRetentionDays)
	}
	if cfg.Database.MaintenanceHours <= 0 {
		return fmt.Errorf("database.maintenance_interval_hours must be positive, got %d", cfg.Database.MaintenanceHours)
	}

	// Validate logging settings
	if cfg.Logging.ErrorLog == "" {
		return fmt.Errorf("logging.error_log is required")
	}
	if cfg.Logging.MaxLogSizeMB <= 0 {
		return fmt.Errorf("logging.max_log_size_mb must be positive, got %d", cfg.Logging.MaxLogSizeMB)
	}
	if cfg.Logging.MaxLogFiles <= 0 {
		return fmt.Errorf("logging.max_log_files must be positive, got %d", cfg.Logging.MaxLogFiles)
	}

	return nil
}

// validatePrefix checks a PREFIX value of the form (modes)symbols
func validatePrefix(prefix string) error {
	if prefix == "" {
		return nil
	}
	end := strings.IndexByte(prefix, ')')
	if !strings.HasPrefix(prefix, "(") || end < 0 {
		return fmt.Errorf("modes.prefix must look like (ov)@+, got %q", prefix)
	}
	modes, symbols := prefix[1:end], prefix[end+1:]
	if len(modes) != len(symbols) {
		return fmt.Errorf("modes.prefix has %d modes but %d symbols", len(modes), len(symbols))
	}
	return nil
}
