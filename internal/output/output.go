package output

import (
	"fmt"
)

// Output pairs the terminal logger with the error log file
type Output struct {
	Logger      Logger
	ErrorLogger *ErrorLogger
}

// NewOutput creates the error log directory and returns an Output writing to it
func NewOutput(logger Logger, errorLogPath string, maxSizeMB, maxFiles int) (*Output, error) {
	if err := EnsureLogDirectory(errorLogPath); err != nil {
		return nil, fmt.Errorf("failed to ensure log directory: %w", err)
	}
	if logger == nil {
		logger = NewColorLogger()
	}

	return &Output{
		Logger:      logger,
		ErrorLogger: NewErrorLoggerWithLimits(errorLogPath, maxSizeMB, maxFiles),
	}, nil
}

// Report prints an entry on the terminal and appends it to the error log
func (o *Output) Report(entry Entry) {
	msg := entry.Message
	if entry.Context != "" {
		msg = entry.Context + ": " + msg
	}
	if entry.Err != nil {
		o.Logger.Error("%s: %s - %v", entry.Type, msg, entry.Err)
	} else {
		o.Logger.Error("%s: %s", entry.Type, msg)
	}

	if err := o.ErrorLogger.Log(entry); err != nil {
		o.Logger.Error("Failed to write to error log: %v", err)
	}
}
