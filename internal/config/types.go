package config

import "time"

// Config represents the complete modewatch configuration
type Config struct {
	Session  SessionConfig  `toml:"session"`
	Modes    ModesConfig    `toml:"modes"`
	Dispatch DispatchConfig `toml:"dispatch"`
	Database DatabaseConfig `toml:"database"`
	Logging  LoggingConfig  `toml:"logging"`
}

// SessionConfig contains per-session identity settings
type SessionConfig struct {
	Nickname   string `toml:"nickname"`
	ServerName string `toml:"server_name"`
}

// ModesConfig contains the mode tables assumed before the server sends ISUPPORT
type ModesConfig struct {
	ChanModes   string `toml:"chanmodes"`   // CHANMODES=A,B,C,D
	Prefix      string `toml:"prefix"`      // PREFIX=(modes)symbols
	ChanTypes   string `toml:"chantypes"`   // CHANTYPES=
	UserModes   string `toml:"user_modes"`  // boolean user modes
	CaseMapping string `toml:"casemapping"` // ascii or rfc1459
}

// DispatchConfig contains callback dispatcher settings
type DispatchConfig struct {
	LogDroppedErrors bool `toml:"log_dropped_errors"`
	ReentrancyGuard  bool `toml:"reentrancy_guard"`
}

// DatabaseConfig contains event journal settings
type DatabaseConfig struct {
	Path               string `toml:"path"`
	WALMode            bool   `toml:"wal_mode"`
	EventRetentionDays int    `toml:"event_retention_days"`
	MaintenanceHours   int    `toml:"maintenance_interval_hours"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	ErrorLog     string `toml:"error_log"`
	MaxLogSizeMB int    `toml:"max_log_size_mb"`
	MaxLogFiles  int    `toml:"max_log_files"`
}

// GetEventRetentionDuration returns the event retention period as a time.Duration
func (c *DatabaseConfig) GetEventRetentionDuration() time.Duration {
	return time.Duration(c.EventRetentionDays) * 24 * time.Hour
}

// GetMaintenanceInterval returns how often journal pruning and VACUUM run
func (c *DatabaseConfig) GetMaintenanceInterval() time.Duration {
	return time.Duration(c.MaintenanceHours) * time.Hour
}
