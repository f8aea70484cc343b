package cli

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/yourusername/modewatch/internal/database"
	"github.com/yourusername/modewatch/internal/ircformat"
	"github.com/yourusername/modewatch/internal/modes"
)

func init() {
	cmd := &cobra.Command{
		Use:   "history <channel>",
		Short: "Show journaled mode events and stored state for a channel",
		Args:  cobra.ExactArgs(1),
		RunE:  runHistory,
	}

	cmd.Flags().IntP("limit", "l", 50, "Max events")
	cmd.Flags().Bool("members", false, "Also list stored members and list entries")

	RootCmd.AddCommand(cmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	showMembers, _ := cmd.Flags().GetBool("members")

	e, err := loadEnv()
	if err != nil {
		return err
	}
	db, err := e.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	channel := modes.FoldCase(e.cfg.Modes.CaseMapping, args[0])
	records, err := db.ListEvents(channel, limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		e.logger.Info("No events journaled for %s", args[0])
	}

	out := cmd.OutOrStdout()
	for _, rec := range records {
		fmt.Fprintln(out, formatRecord(rec))
	}

	if !showMembers {
		return nil
	}

	members, err := db.ListMembers(channel)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\nMembers (%d):\n", len(members))
	for _, m := range members {
		fmt.Fprintf(out, "  %s%s  (updated %s)\n", m.Status, ircformat.Sanitize(m.DisplayNick), humanize.Time(m.UpdatedAt))
	}

	entries, err := db.ListEntries(channel)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\nList entries (%d):\n", len(entries))
	for _, entry := range entries {
		fmt.Fprintf(out, "  +%s %s  set by %s %s\n", entry.Mode,
			ircformat.Sanitize(entry.Value), ircformat.Sanitize(entry.SetBy), humanize.Time(entry.SetAt))
	}
	return nil
}

// formatRecord renders one journal row, such as
// "3 minutes ago  ChannelModeChanged  op  +ov alice bob"
func formatRecord(rec database.EventRecord) string {
	actor := rec.Actor
	if actor == "" {
		actor = "server"
	}

	parts := []string{humanize.Time(rec.CreatedAt), rec.Kind, actor, rec.Mode}
	if len(rec.Params) > 0 {
		parts = append(parts, strings.Join(rec.Params, " "))
	}
	if rec.Target != "" {
		parts = append(parts, "-> "+rec.Target)
	}
	return ircformat.Sanitize(strings.Join(parts, "  "))
}
