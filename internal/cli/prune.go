package cli

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/yourusername/modewatch/internal/metrics"
)

func init() {
	prune := &cobra.Command{
		Use:   "prune",
		Short: "Delete journal rows and metrics older than the retention period",
		Args:  cobra.NoArgs,
		RunE:  runPrune,
	}
	prune.Flags().Int("days", 0, "Retention in days (default: database.event_retention_days)")

	rollback := &cobra.Command{
		Use:   "rollback",
		Short: "Roll back the last applied database migration",
		Args:  cobra.NoArgs,
		RunE:  runRollback,
	}

	RootCmd.AddCommand(prune, rollback)
}

func runPrune(cmd *cobra.Command, args []string) error {
	days, _ := cmd.Flags().GetInt("days")

	e, err := loadEnv()
	if err != nil {
		return err
	}
	db, err := e.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	retention := e.cfg.Database.GetEventRetentionDuration()
	if days > 0 {
		retention = time.Duration(days) * 24 * time.Hour
	}

	events, err := db.PruneEvents(retention)
	if err != nil {
		return err
	}
	metricRows, err := metrics.NewCollector(db.Conn()).Cleanup(retention)
	if err != nil {
		return err
	}

	e.logger.Success("Pruned %d events and %d metrics older than %v", events, metricRows, retention)
	return nil
}

func runRollback(cmd *cobra.Command, args []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	db, err := e.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	e.logger.Info("Rolling back last migration...")
	if err := db.Rollback(); err != nil {
		return err
	}
	e.logger.Success("Migration rolled back successfully")
	return nil
}
