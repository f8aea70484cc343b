package maintenance

import (
	"context"
	"testing"
	"time"

	"github.com/yourusername/modewatch/internal/database"
	"github.com/yourusername/modewatch/internal/metrics"
	"github.com/yourusername/modewatch/internal/output"
)

func TestRunOnce_PrunesOldEvents(t *testing.T) {
	db, cleanup := database.NewTestDB(t)
	defer cleanup()

	old := &database.EventRecord{SessionID: "s", Kind: "ChannelModeChanged", CreatedAt: time.Now().Add(-10 * 24 * time.Hour)}
	fresh := &database.EventRecord{SessionID: "s", Kind: "ChannelModeChanged"}
	for _, rec := range []*database.EventRecord{old, fresh} {
		if err := db.RecordEvent(rec); err != nil {
			t.Fatal(err)
		}
	}

	s := New(db, metrics.NewCollector(db.Conn()), output.NopLogger{}, time.Hour, 7*24*time.Hour)
	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}

	left, _ := db.ListEvents("", 10)
	if len(left) != 1 || left[0].ID != fresh.ID {
		t.Errorf("events after maintenance = %+v, want only the fresh one", left)
	}
	if s.LastRun().IsZero() {
		t.Error("LastRun() is zero after a run")
	}
}

func TestStartStop(t *testing.T) {
	db, cleanup := database.NewTestDB(t)
	defer cleanup()

	s := New(db, metrics.NewCollector(db.Conn()), output.NopLogger{}, time.Hour, time.Hour)
	if err := s.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := s.Start(); err == nil {
		t.Error("second Start() succeeded, want error")
	}
	if !s.IsRunning() {
		t.Error("IsRunning() = false after Start")
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if err := s.Stop(); err == nil {
		t.Error("second Stop() succeeded, want error")
	}
}
