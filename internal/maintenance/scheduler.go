// Package maintenance periodically prunes the event journal and metrics and
// compacts the database while a session runs.
package maintenance

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/yourusername/modewatch/internal/database"
	"github.com/yourusername/modewatch/internal/metrics"
	"github.com/yourusername/modewatch/internal/output"
)

// Scheduler runs retention cleanup and VACUUM on an interval
type Scheduler struct {
	db        *database.DB
	collector *metrics.Collector
	logger    output.Logger
	interval  time.Duration
	retention time.Duration

	ticker *time.Ticker
	done   chan struct{}
	wg     sync.WaitGroup

	mu        sync.Mutex
	isRunning bool
	lastRun   time.Time
}

// New creates a scheduler. Journal rows and metrics older than retention are
// deleted on every run.
func New(db *database.DB, collector *metrics.Collector, logger output.Logger, interval, retention time.Duration) *Scheduler {
	return &Scheduler{
		db:        db,
		collector: collector,
		logger:    logger,
		interval:  interval,
		retention: retention,
	}
}

// Start begins the maintenance loop
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}
	s.isRunning = true
	s.done = make(chan struct{})
	s.ticker = time.NewTicker(s.interval)

	s.logger.Info("Starting database maintenance (every %v, retention %v)", s.interval, s.retention)

	s.wg.Add(1)
	go s.run()
	return nil
}

// Stop stops the maintenance loop and waits for a run in progress to finish
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("scheduler is not running")
	}
	s.isRunning = false
	s.mu.Unlock()

	close(s.done)
	s.wg.Wait()
	s.ticker.Stop()

	s.logger.Success("Database maintenance stopped")
	return nil
}

// IsRunning reports whether the loop is active
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

// LastRun returns when maintenance last completed, zero if never
func (s *Scheduler) LastRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun
}

func (s *Scheduler) run() {
	defer s.wg.Done()

	for {
		select {
		case <-s.done:
			return
		case <-s.ticker.C:
			if err := s.RunOnce(context.Background()); err != nil {
				s.logger.Error("Database maintenance failed: %v", err)
			}
		}
	}
}

// RunOnce prunes old rows and compacts the database
func (s *Scheduler) RunOnce(ctx context.Context) error {
	start := time.Now()

	events, err := s.db.PruneEvents(s.retention)
	if err != nil {
		return err
	}
	metricRows, err := s.collector.Cleanup(s.retention)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()
	if _, err := s.db.Conn().ExecContext(ctx, "VACUUM"); err != nil {
		return fmt.Errorf("VACUUM failed: %w", err)
	}

	s.mu.Lock()
	s.lastRun = time.Now()
	s.mu.Unlock()

	s.logger.Success("Maintenance completed in %.2f seconds: pruned %d events and %d metrics",
		time.Since(start).Seconds(), events, metricRows)
	return nil
}
