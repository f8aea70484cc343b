package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/yourusername/modewatch/internal/errors"
	"github.com/yourusername/modewatch/internal/events"
	"github.com/yourusername/modewatch/internal/ircformat"
	"github.com/yourusername/modewatch/internal/metrics"
	"github.com/yourusername/modewatch/internal/output"
	"github.com/yourusername/modewatch/internal/ratelimit"
	"github.com/yourusername/modewatch/internal/recorder"
	"github.com/yourusername/modewatch/internal/session"
)

func init() {
	cmd := &cobra.Command{
		Use:   "replay [file|-]",
		Short: "Feed raw IRC lines through a session and print mode events",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runReplay,
	}

	cmd.Flags().BoolP("record", "r", false, "Journal events to the database")
	cmd.Flags().BoolP("quiet", "q", false, "Only print the summary")

	RootCmd.AddCommand(cmd)
}

func runReplay(cmd *cobra.Command, args []string) error {
	record, _ := cmd.Flags().GetBool("record")
	quiet, _ := cmd.Flags().GetBool("quiet")

	e, err := loadEnv()
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
	if !quiet {
		attachPrinter(sess, e.logger, nil)
	}

	var rec *recorder.Recorder
	if record {
		db, err := e.openDB()
		if err != nil {
			return err
		}
		defer db.Close()
		rec = recorder.Attach(sess, db, metrics.NewCollector(db.Conn()), e.logger)
	}

	stats := feedLines(cmd.Context(), in, sess.HandleLine, e.errorLog)

	if rec != nil {
		if err := rec.SyncStore(sess.Store()); err != nil {
			e.errorLog.HandleWithContext(err, "sync store")
		}
	}

	e.logger.Success("Replayed %s lines (%s failed) in session %s",
		humanize.Comma(stats.lines), humanize.Comma(stats.failed), sess.ID())
	return stats.readErr
}

// attachPrinter prints aggregate events and parse problems as they are
// published. Output beyond the throttle's budget is summarized instead.
func attachPrinter(sess *session.Session, logger output.Logger, throttle *ratelimit.Throttle) {
	d := sess.Dispatcher()

	pass := func() bool {
		ok, suppressed := throttle.Allow()
		if ok && suppressed > 0 {
			logger.Warning("%s events not printed", humanize.Comma(suppressed))
		}
		return ok
	}

	events.On(d, "printer", "", func(ev events.ChannelModeChanged) error {
		if pass() {
			logger.ModeChange(ircformat.Sanitize(ev.Channel.Name), ircformat.Sanitize(ev.Actor),
				joinModes(ev.Modes, ircformat.SanitizeAll(ev.Params)))
		}
		return nil
	})
	events.On(d, "printer", "", func(ev events.UserModeChanged) error {
		if pass() {
			logger.UserMode(ircformat.Sanitize(ev.Client.Nick), ircformat.Sanitize(ev.Actor), ev.Modes)
		}
		return nil
	})
	events.On(d, "printer", "", func(ev events.ParseError) error {
		if pass() {
			logger.Warning("%s", ircformat.Sanitize(ev.Err.Error()))
		}
		return nil
	})
}

func joinModes(modes string, params []string) string {
	if len(params) == 0 {
		return modes
	}
	return modes + " " + strings.Join(params, " ")
}

type feedStats struct {
	lines   int64
	failed  int64
	readErr error
}

// feedLines hands every line of r to handle until EOF or ctx is done.
// Line errors are reported and do not stop the feed.
func feedLines(ctx context.Context, r io.Reader, handle func(string) error, errorLog *errors.ErrorHandler) feedStats {
	var stats feedStats
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		if ctx != nil && ctx.Err() != nil {
			break
		}
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		stats.lines++
		if err := handle(line); err != nil {
			stats.failed++
			errorLog.HandleLine(err, fmt.Sprintf("line %d", stats.lines), line)
		}
	}
	stats.readErr = scanner.Err()
	return stats
}
