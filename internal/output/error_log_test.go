package output

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestErrorLogger_Log(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "logs", "error.log")
	if err := EnsureLogDirectory(logPath); err != nil {
		t.Fatalf("EnsureLogDirectory() error = %v", err)
	}

	logger := NewErrorLogger(logPath)
	logger.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	err := logger.Log(Entry{
		Type:    "StructuralParseError",
		Message: "missing parameter for mode 'o'",
		Target:  "#go",
		Mode:    "+o",
		Context: "line 3",
		Line:    ":nick!u@h MODE #go +o",
		Err:     errors.New("ran out of parameters"),
	})
	if err != nil {
		t.Fatalf("Log() error = %v", err)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	content := string(data)

	for _, want := range []string{
		"[2026-01-02 03:04:05] StructuralParseError: missing parameter for mode 'o'\n",
		"  target:  #go\n",
		"  mode:    +o\n",
		"  context: line 3\n",
		"  line:    :nick!u@h MODE #go +o\n",
		"  cause:   ran out of parameters\n",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("log entry missing %q:\n%s", want, content)
		}
	}
	if strings.Contains(content, "stack:") {
		t.Error("stack written for an entry that did not ask for one")
	}
}

func TestErrorLogger_Stack(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "error.log")
	logger := NewErrorLogger(logPath)

	if err := logger.Log(Entry{Type: "Unexpected", Message: "boom", Stack: true}); err != nil {
		t.Fatalf("Log() error = %v", err)
	}
	data, _ := os.ReadFile(logPath)
	if !strings.Contains(string(data), "stack:") || !strings.Contains(string(data), "TestErrorLogger_Stack") {
		t.Errorf("stack missing the calling test:\n%s", data)
	}
}

func TestErrorLogger_Rotation(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "error.log")
	logger := NewErrorLoggerWithLimits(logPath, 1, 2)
	// Force a tiny limit so every write rotates
	logger.maxSize = 1

	for i := 0; i < 4; i++ {
		if err := logger.Log(Entry{Type: "CapacityExceeded", Message: fmt.Sprintf("entry %d", i)}); err != nil {
			t.Fatalf("Log() error = %v", err)
		}
	}

	for _, name := range []string{logPath, logPath + ".1", logPath + ".2"} {
		if _, err := os.Stat(name); err != nil {
			t.Errorf("expected %s to exist: %v", filepath.Base(name), err)
		}
	}
	if _, err := os.Stat(logPath + ".3"); !os.IsNotExist(err) {
		t.Errorf("expected %s.3 to be pruned, stat err = %v", filepath.Base(logPath), err)
	}
}
