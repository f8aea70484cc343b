package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/yourusername/modewatch/internal/session"
	"github.com/yourusername/modewatch/internal/state"
	"gopkg.in/yaml.v3"
)

func init() {
	cmd := &cobra.Command{
		Use:   "snapshot [file|-]",
		Short: "Replay raw IRC lines and print the resulting channel and client state",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSnapshot,
	}
	cmd.Flags().StringP("format", "f", "yaml", "Output format: yaml or json")

	RootCmd.AddCommand(cmd)
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	if format != "yaml" && format != "json" {
		return fmt.Errorf("unknown format %q, want yaml or json", format)
	}

	e, err := loadEnvTo(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	in, err := openInput(args)
	if err != nil {
		return err
	}
	defer in.Close()

	sess, err := session.New(e.cfg, e.logger)
	if err != nil {
		return err
	}
	stats := feedLines(cmd.Context(), in, sess.HandleLine, e.errorLog)
	if stats.readErr != nil {
		return stats.readErr
	}

	return writeSnapshot(cmd.OutOrStdout(), sess.Snapshot(), format)
}

func writeSnapshot(w io.Writer, snap state.Snapshot, format string) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(snap); err != nil {
		return err
	}
	return enc.Close()
}
