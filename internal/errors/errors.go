package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeUnknownTarget indicates a mode line referenced a channel or member
	// that was not known and had to be synthesized
	ErrorTypeUnknownTarget ErrorType = "UnknownTarget"

	// ErrorTypeUnknownMode indicates a mode character missing from the registry
	ErrorTypeUnknownMode ErrorType = "UnknownModeCharacter"

	// ErrorTypeStructural indicates a line ran out of positional parameters
	ErrorTypeStructural ErrorType = "StructuralParseError"

	// ErrorTypeCapacity indicates a mode table has no free flag bits left
	ErrorTypeCapacity ErrorType = "CapacityExceeded"

	// ErrorTypeDispatch indicates a subscriber callback failed
	ErrorTypeDispatch ErrorType = "SubscriberDispatchError"

	// ErrorTypeReentrant indicates a line was fed to a session from inside a callback
	ErrorTypeReentrant ErrorType = "Reentrant"
)

// ModeError represents a structured error raised while processing mode lines
// or dispatching their events
type ModeError struct {
	Type    ErrorType
	Message string
	Target  string // Channel or nick the error relates to, if any
	Mode    string // Mode character or mode string, if any
	Err     error  // Original error for logging
}

// Error implements the error interface
func (e *ModeError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Type, e.Message)
	if e.Target != "" {
		msg += fmt.Sprintf(" (target: %s)", e.Target)
	}
	if e.Err != nil {
		msg += fmt.Sprintf(" (cause: %v)", e.Err)
	}
	return msg
}

// Unwrap returns the underlying error
func (e *ModeError) Unwrap() error {
	return e.Err
}

// Recoverable reports whether processing of the current line can continue
// after this error
func (e *ModeError) Recoverable() bool {
	switch e.Type {
	case ErrorTypeUnknownTarget, ErrorTypeUnknownMode, ErrorTypeDispatch:
		return true
	default:
		return false
	}
}

// NewUnknownTargetError creates an error for a channel or member that had to be synthesized
func NewUnknownTargetError(kind, target string) *ModeError {
	return &ModeError{
		Type:    ErrorTypeUnknownTarget,
		Message: fmt.Sprintf("unknown %s, created placeholder", kind),
		Target:  target,
	}
}

// NewUnknownModeError creates an error for a mode character that was registered at runtime
func NewUnknownModeError(target string, mode byte) *ModeError {
	return &ModeError{
		Type:    ErrorTypeUnknownMode,
		Message: fmt.Sprintf("unknown mode character '%c', registered dynamically", mode),
		Target:  target,
		Mode:    string(mode),
	}
}

// NewStructuralError creates an error for a mode line missing a positional parameter
func NewStructuralError(target, modeString, detail string) *ModeError {
	return &ModeError{
		Type:    ErrorTypeStructural,
		Message: detail,
		Target:  target,
		Mode:    modeString,
	}
}

// NewCapacityError creates an error for a mode table without free flag bits
func NewCapacityError(table string, mode byte) *ModeError {
	return &ModeError{
		Type:    ErrorTypeCapacity,
		Message: fmt.Sprintf("no free flag bits in %s table, mode '%c' rejected", table, mode),
		Mode:    string(mode),
	}
}

// NewDispatchError creates an error for a subscriber that failed or panicked
func NewDispatchError(subscriber, eventKind string, err error) *ModeError {
	return &ModeError{
		Type:    ErrorTypeDispatch,
		Message: fmt.Sprintf("subscriber %s failed handling %s", subscriber, eventKind),
		Err:     err,
	}
}

// NewReentrantError creates an error for a line fed to a session mid-dispatch
func NewReentrantError(line string) *ModeError {
	return &ModeError{
		Type:    ErrorTypeReentrant,
		Message: "line submitted from inside an event callback was rejected",
		Mode:    line,
	}
}

// IsModeError checks if an error is a ModeError
func IsModeError(err error) bool {
	_, ok := AsModeError(err)
	return ok
}

// AsModeError attempts to convert an error to a ModeError
func AsModeError(err error) (*ModeError, bool) {
	var modeErr *ModeError
	if stderrors.As(err, &modeErr) {
		return modeErr, true
	}
	return nil, false
}

// IsType checks if err is a ModeError of the given type
func IsType(err error, t ErrorType) bool {
	modeErr, ok := AsModeError(err)
	return ok && modeErr.Type == t
}
