package output

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"
)

const (
	// MaxLogSizeMB is the default size at which the error log is rotated
	MaxLogSizeMB = 10
	// MaxLogFiles is the default number of rotated files kept
	MaxLogFiles = 5
)

// Entry is one record of the error log
type Entry struct {
	Type    string
	Message string
	Target  string // channel or nick
	Mode    string // mode character or mode string
	Context string // where the error surfaced, such as "line 12"
	Line    string // raw protocol line
	Err     error
	Stack   bool // append the caller's stack
}

// ErrorLogger appends entries to a size-rotated file
type ErrorLogger struct {
	logPath  string
	mu       sync.Mutex
	maxSize  int64
	maxFiles int
	now      func() time.Time
}

// NewErrorLogger creates an ErrorLogger with the default rotation limits
func NewErrorLogger(logPath string) *ErrorLogger {
	return NewErrorLoggerWithLimits(logPath, MaxLogSizeMB, MaxLogFiles)
}

// NewErrorLoggerWithLimits creates an ErrorLogger rotating at maxSizeMB and keeping maxFiles
func NewErrorLoggerWithLimits(logPath string, maxSizeMB, maxFiles int) *ErrorLogger {
	if maxSizeMB <= 0 {
		maxSizeMB = MaxLogSizeMB
	}
	if maxFiles <= 0 {
		maxFiles = MaxLogFiles
	}
	return &ErrorLogger{
		logPath:  logPath,
		maxSize:  int64(maxSizeMB) << 20,
		maxFiles: maxFiles,
		now:      time.Now,
	}
}

// Log appends one entry, rotating the file first when it is over the limit
func (e *ErrorLogger) Log(entry Entry) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.rotateIfNeeded(); err != nil {
		return fmt.Errorf("failed to rotate log: %w", err)
	}

	f, err := os.OpenFile(e.logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open error log: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	if _, err := f.WriteString(e.format(entry)); err != nil {
		return fmt.Errorf("failed to write to error log: %w", err)
	}
	return nil
}

// format renders an entry as a header line followed by indented fields
func (e *ErrorLogger) format(entry Entry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s: %s\n", e.now().Format("2006-01-02 15:04:05"), entry.Type, entry.Message)

	field := func(name, value string) {
		if value != "" {
			fmt.Fprintf(&b, "  %-8s %s\n", name+":", value)
		}
	}
	field("target", entry.Target)
	field("mode", entry.Mode)
	field("context", entry.Context)
	field("line", entry.Line)
	if entry.Err != nil {
		field("cause", entry.Err.Error())
	}

	if entry.Stack {
		b.WriteString("  stack:\n")
		// Skip Callers, stack, format and Log
		b.WriteString(stack(4))
	}
	b.WriteString("\n")
	return b.String()
}

func (e *ErrorLogger) rotateIfNeeded() error {
	info, err := os.Stat(e.logPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to stat log file: %w", err)
	}
	if info.Size() < e.maxSize {
		return nil
	}
	return e.rotate()
}

// rotate shifts error.log.N-1 to error.log.N down to error.log -> error.log.1.
// The oldest file is overwritten by the rename.
func (e *ErrorLogger) rotate() error {
	for i := e.maxFiles; i >= 1; i-- {
		src := e.logPath
		if i > 1 {
			src = fmt.Sprintf("%s.%d", e.logPath, i-1)
		}
		if _, err := os.Stat(src); err != nil {
			continue
		}
		dst := fmt.Sprintf("%s.%d", e.logPath, i)
		if err := os.Rename(src, dst); err != nil {
			return fmt.Errorf("failed to rotate %s: %w", filepath.Base(src), err)
		}
	}
	return nil
}

func stack(skip int) string {
	pcs := make([]uintptr, 32)
	frames := runtime.CallersFrames(pcs[:runtime.Callers(skip, pcs)])

	var b strings.Builder
	for {
		frame, more := frames.Next()
		fmt.Fprintf(&b, "    at %s (%s:%d)\n", frame.Function, filepath.Base(frame.File), frame.Line)
		if !more {
			break
		}
	}
	return b.String()
}

// EnsureLogDirectory creates the log directory if it doesn't exist
func EnsureLogDirectory(logPath string) error {
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return nil
}
