package output

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
)

// Logger defines the interface for colored terminal output
type Logger interface {
	Info(format string, args ...interface{})
	Success(format string, args ...interface{})
	Warning(format string, args ...interface{})
	Error(format string, args ...interface{})
	ModeChange(channel, actor, modes string)
	UserMode(nick, actor, modes string)
}

// ColorLogger implements Logger with colored terminal output
type ColorLogger struct {
	w   io.Writer
	now func() time.Time

	infoColor    *color.Color
	successColor *color.Color
	warningColor *color.Color
	errorColor   *color.Color
	channelColor *color.Color
	userColor    *color.Color
	nickColor    *color.Color
	modeColor    *color.Color
}

// NewColorLogger creates a ColorLogger writing to stdout
func NewColorLogger() *ColorLogger {
	return NewColorLoggerTo(os.Stdout)
}

// NewColorLoggerTo creates a ColorLogger writing to w, for commands whose
// stdout carries data
func NewColorLoggerTo(w io.Writer) *ColorLogger {
	return &ColorLogger{
		w:            w,
		now:          time.Now,
		infoColor:    color.New(color.FgCyan),
		successColor: color.New(color.FgGreen, color.Bold),
		warningColor: color.New(color.FgYellow, color.Bold),
		errorColor:   color.New(color.FgRed, color.Bold),
		channelColor: color.New(color.FgBlue, color.Bold),
		userColor:    color.New(color.FgMagenta, color.Bold),
		nickColor:    color.New(color.FgGreen),
		modeColor:    color.New(color.FgYellow),
	}
}

func (l *ColorLogger) level(c *color.Color, label, format string, args []interface{}) {
	_, _ = c.Fprintf(l.w, "[%s] %s: %s\n", l.stamp(), label, fmt.Sprintf(format, args...))
}

func (l *ColorLogger) stamp() string {
	return l.now().Format("15:04:05")
}

// Info prints an informational message in cyan
func (l *ColorLogger) Info(format string, args ...interface{}) {
	l.level(l.infoColor, "INFO", format, args)
}

// Success prints a success message in bold green
func (l *ColorLogger) Success(format string, args ...interface{}) {
	l.level(l.successColor, "SUCCESS", format, args)
}

// Warning prints a warning message in bold yellow
func (l *ColorLogger) Warning(format string, args ...interface{}) {
	l.level(l.warningColor, "WARNING", format, args)
}

// Error prints an error message in bold red
func (l *ColorLogger) Error(format string, args ...interface{}) {
	l.level(l.errorColor, "ERROR", format, args)
}

// ModeChange prints a channel mode change.
// Format: [HH:MM:SS] #channel <actor> sets +o alice
func (l *ColorLogger) ModeChange(channel, actor, modes string) {
	fmt.Fprintf(l.w, "[%s] ", l.stamp())
	_, _ = l.channelColor.Fprintf(l.w, "%s ", channel)
	_, _ = l.nickColor.Fprintf(l.w, "<%s> ", actorLabel(actor))
	fmt.Fprint(l.w, "sets ")
	_, _ = l.modeColor.Fprintf(l.w, "%s\n", modes)
}

// UserMode prints a user mode change.
// Format: [HH:MM:SS] umode nick <actor> +iw
func (l *ColorLogger) UserMode(nick, actor, modes string) {
	fmt.Fprintf(l.w, "[%s] ", l.stamp())
	_, _ = l.userColor.Fprint(l.w, "umode ")
	_, _ = l.nickColor.Fprintf(l.w, "%s <%s> ", nick, actorLabel(actor))
	_, _ = l.modeColor.Fprintf(l.w, "%s\n", modes)
}

func actorLabel(actor string) string {
	if actor == "" {
		return "server"
	}
	return actor
}

// NopLogger discards all output
type NopLogger struct{}

func (NopLogger) Info(string, ...interface{})    {}
func (NopLogger) Success(string, ...interface{}) {}
func (NopLogger) Warning(string, ...interface{}) {}
func (NopLogger) Error(string, ...interface{})   {}
func (NopLogger) ModeChange(_, _, _ string)      {}
func (NopLogger) UserMode(_, _, _ string)        {}
