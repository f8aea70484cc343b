package output

import (
	"bytes"
	"testing"
	"time"

	"github.com/fatih/color"
)

func newBufferLogger(t *testing.T) (*ColorLogger, *bytes.Buffer) {
	t.Helper()
	noColor := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = noColor })

	var buf bytes.Buffer
	l := NewColorLoggerTo(&buf)
	l.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return l, &buf
}

func TestColorLogger_Levels(t *testing.T) {
	l, buf := newBufferLogger(t)

	l.Warning("registered %c", 'Z')
	l.Error("failed: %v", "disk full")

	want := "[03:04:05] WARNING: registered Z\n[03:04:05] ERROR: failed: disk full\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
}

func TestColorLogger_ModeLines(t *testing.T) {
	tests := []struct {
		name string
		log  func(*ColorLogger)
		want string
	}{
		{
			name: "channel by user",
			log:  func(l *ColorLogger) { l.ModeChange("#go", "op", "+o alice") },
			want: "[03:04:05] #go <op> sets +o alice\n",
		},
		{
			name: "channel by server",
			log:  func(l *ColorLogger) { l.ModeChange("#go", "", "+nt") },
			want: "[03:04:05] #go <server> sets +nt\n",
		},
		{
			name: "user mode",
			log:  func(l *ColorLogger) { l.UserMode("me", "me", "+iw") },
			want: "[03:04:05] umode me <me> +iw\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, buf := newBufferLogger(t)
			tt.log(l)
			if buf.String() != tt.want {
				t.Errorf("output = %q, want %q", buf.String(), tt.want)
			}
		})
	}
}
