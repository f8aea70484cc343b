// Package cli implements the modewatch commands.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/yourusername/modewatch/internal/config"
	"github.com/yourusername/modewatch/internal/database"
	"github.com/yourusername/modewatch/internal/errors"
	"github.com/yourusername/modewatch/internal/output"
)

var (
	configPath string
	dbPath     string
)

// RootCmd is the top-level command
var RootCmd = &cobra.Command{
	Use:   "modewatch",
	Short: "Track IRC channel and user modes from raw protocol lines",
	Long: "modewatch feeds raw IRC lines through a mode-tracking session, prints the " +
		"resulting mode events and journals them to SQLite.",
	SilenceUsage: true,
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config/modewatch.toml", "Configuration file (created with defaults when missing)")
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path (default: database.path from the configuration)")
}

// env is what every command needs: configuration, logger and error handling
type env struct {
	cfg      *config.Config
	logger   output.Logger
	out      *output.Output
	errorLog *errors.ErrorHandler
}

func loadEnv() (*env, error) {
	return loadEnvTo(os.Stdout)
}

// loadEnvTo is loadEnv with terminal logging sent to w
func loadEnvTo(w io.Writer) (*env, error) {
	cfg, err := config.LoadOrCreate(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if dbPath != "" {
		cfg.Database.Path = dbPath
	}

	logger := output.NewColorLoggerTo(w)
	out, err := output.NewOutput(logger, cfg.Logging.ErrorLog, cfg.Logging.MaxLogSizeMB, cfg.Logging.MaxLogFiles)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize output: %w", err)
	}

	return &env{
		cfg:      cfg,
		logger:   logger,
		out:      out,
		errorLog: errors.NewErrorHandler(out),
	}, nil
}

func (e *env) openDB() (*database.DB, error) {
	db, err := database.New(e.cfg.Database.Path, e.cfg.Database.WALMode)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return db, nil
}

// openInput returns the named file, or stdin for "" and "-"
func openInput(args []string) (*os.File, error) {
	if len(args) == 0 || args[0] == "-" {
		return os.Stdin, nil
	}
	return os.Open(args[0])
}
