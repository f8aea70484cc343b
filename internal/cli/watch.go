package cli

import (
	"os"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"github.com/yourusername/modewatch/internal/maintenance"
	"github.com/yourusername/modewatch/internal/metrics"
	"github.com/yourusername/modewatch/internal/ratelimit"
	"github.com/yourusername/modewatch/internal/recorder"
	"github.com/yourusername/modewatch/internal/session"
	"github.com/yourusername/modewatch/internal/shutdown"
)

func init() {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Journal a live stream of raw IRC lines from stdin until interrupted",
		Long: "watch reads raw IRC lines from stdin, for example from a client's raw log " +
			"followed with tail -f, journals every event and prunes the journal periodically.",
		Args: cobra.NoArgs,
		RunE: runWatch,
	}
	cmd.Flags().Bool("print", true, "Print mode events as they arrive")
	cmd.Flags().Int("print-rate", 20, "Maximum events printed per second, 0 for no limit")

	RootCmd.AddCommand(cmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	printEvents, _ := cmd.Flags().GetBool("print")
	printRate, _ := cmd.Flags().GetInt("print-rate")

	e, err := loadEnv()
	if err != nil {
		return err
	}

	db, err := e.openDB()
	if err != nil {
		return err
	}
	collector := metrics.NewCollector(db.Conn())

	sess, err := session.New(e.cfg, e.logger)
	if err != nil {
		_ = db.Close()
		return err
	}
	if printEvents {
		attachPrinter(sess, e.logger, ratelimit.NewThrottle(printRate, time.Second))
	}
	rec := recorder.Attach(sess, db, collector, e.logger)

	scheduler := maintenance.New(db, collector, e.logger,
		e.cfg.Database.GetMaintenanceInterval(), e.cfg.Database.GetEventRetentionDuration())
	if err := scheduler.Start(); err != nil {
		_ = db.Close()
		return err
	}

	// Serializes line handling against the final sync
	var mu sync.Mutex
	handle := func(line string) error {
		mu.Lock()
		defer mu.Unlock()
		return sess.HandleLine(line)
	}

	sh := shutdown.NewHandler(e.logger, 10*time.Second)
	sh.RegisterShutdownFunc(scheduler.Stop)
	sh.RegisterShutdownFunc(func() error {
		mu.Lock()
		defer mu.Unlock()
		return rec.SyncStore(sess.Store())
	})
	sh.RegisterShutdownFunc(db.Close)

	e.logger.Success("Watching stdin in session %s", sess.ID())

	finished := make(chan feedStats, 1)
	go func() {
		finished <- feedLines(sh.Context(), os.Stdin, handle, e.errorLog)
	}()

	var stats feedStats
	select {
	case stats = <-finished:
		sh.Shutdown()
	case <-sh.Context().Done():
	}
	<-sh.Done()

	if stats.lines > 0 {
		e.logger.Info("Processed %d lines, %d failed", stats.lines, stats.failed)
	}
	return stats.readErr
}
