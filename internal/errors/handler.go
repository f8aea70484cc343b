package errors

import (
	"github.com/yourusername/modewatch/internal/output"
)

// ErrorHandler logs mode processing errors to the terminal and the error log file
type ErrorHandler struct {
	output *output.Output
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(output *output.Output) *ErrorHandler {
	return &ErrorHandler{
		output: output,
	}
}

// Handle logs an error. Recoverable mode errors are printed as warnings only,
// everything else also goes to the error log file
func (h *ErrorHandler) Handle(err error) {
	h.HandleLine(err, "", "")
}

// HandleWithContext logs an error with additional context
func (h *ErrorHandler) HandleWithContext(err error, context string) {
	h.HandleLine(err, context, "")
}

// HandleLine logs an error raised while processing the raw protocol line
func (h *ErrorHandler) HandleLine(err error, context, line string) {
	if err == nil {
		return
	}

	modeErr, ok := AsModeError(err)
	if !ok {
		h.output.Report(output.Entry{
			Type:    "Unexpected",
			Message: err.Error(),
			Context: context,
			Line:    line,
			Stack:   true,
		})
		return
	}

	if modeErr.Recoverable() {
		if context != "" {
			h.output.Logger.Warning("%s: %v", context, modeErr)
		} else {
			h.output.Logger.Warning("%v", modeErr)
		}
		return
	}

	h.output.Report(output.Entry{
		Type:    string(modeErr.Type),
		Message: modeErr.Message,
		Target:  modeErr.Target,
		Mode:    modeErr.Mode,
		Context: context,
		Line:    line,
		Err:     modeErr.Err,
	})
}
