package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestModeError_Recoverable(t *testing.T) {
	tests := []struct {
		name string
		err  *ModeError
		want bool
	}{
		{"unknown target", NewUnknownTargetError("channel", "#go"), true},
		{"unknown mode", NewUnknownModeError("#go", 'Z'), true},
		{"dispatch", NewDispatchError("gui", "ChannelModeChanged", stderrors.New("boom")), true},
		{"structural", NewStructuralError("#go", "+o", "missing parameter"), false},
		{"capacity", NewCapacityError("channel boolean", 'Z'), false},
		{"reentrant", NewReentrantError("MODE #go +n"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Recoverable(); got != tt.want {
				t.Errorf("Recoverable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAsModeError_Wrapped(t *testing.T) {
	inner := NewStructuralError("#go", "+k", "missing parameter for 'k'")
	wrapped := fmt.Errorf("line 3: %w", inner)

	got, ok := AsModeError(wrapped)
	if !ok {
		t.Fatal("AsModeError() did not find wrapped ModeError")
	}
	if got != inner {
		t.Errorf("AsModeError() = %p, want %p", got, inner)
	}
	if !IsType(wrapped, ErrorTypeStructural) {
		t.Error("IsType() = false, want true")
	}
	if IsType(wrapped, ErrorTypeCapacity) {
		t.Error("IsType(capacity) = true, want false")
	}
}

func TestModeError_Message(t *testing.T) {
	cause := stderrors.New("nil pointer")
	err := NewDispatchError("logger", "UserModeChanged", cause)

	msg := err.Error()
	if !strings.Contains(msg, "SubscriberDispatchError") {
		t.Errorf("Error() = %q, missing type", msg)
	}
	if !strings.Contains(msg, "nil pointer") {
		t.Errorf("Error() = %q, missing cause", msg)
	}
	if !stderrors.Is(err, cause) {
		t.Error("errors.Is() did not unwrap to cause")
	}
}
