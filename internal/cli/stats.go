package cli

import (
	"fmt"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/yourusername/modewatch/internal/metrics"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show event and error counts",
		Args:  cobra.NoArgs,
		RunE:  runStats,
	}

	RootCmd.AddCommand(cmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	db, err := e.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	stats, err := metrics.NewCollector(db.Conn()).GetStats(time.Now())
	if err != nil {
		return err
	}
	journal, err := db.CountEventsByKind()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Events dispatched:")
	printCounts(cmd, stats.EventCounts)
	fmt.Fprintln(out, "Errors reported:")
	printCounts(cmd, stats.ErrorCounts)
	fmt.Fprintln(out, "Journal rows:")
	printCounts(cmd, journal)

	windows := []struct {
		label string
		w     *metrics.WindowStats
	}{
		{"24h", stats.Stats24h},
		{"7d", stats.Stats7d},
		{"30d", stats.Stats30d},
	}
	for _, win := range windows {
		fmt.Fprintf(out, "Last %-4s %s events (%d kinds), %s errors (%d types)\n", win.label,
			humanize.Comma(win.w.EventCount), win.w.UniqueEventKinds,
			humanize.Comma(win.w.ErrorCount), win.w.UniqueErrorTypes)
	}
	return nil
}

func printCounts(cmd *cobra.Command, counts map[string]int64) {
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	if len(names) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "  (none)")
	}
	for _, name := range names {
		fmt.Fprintf(cmd.OutOrStdout(), "  %-28s %s\n", name, humanize.Comma(counts[name]))
	}
}
