// Package metrics counts dispatched events and reported errors in the
// metrics table.
package metrics

import (
	"database/sql"
	"fmt"
	"time"
)

// MetricType represents the type of metric being recorded
type MetricType string

const (
	MetricTypeEvent MetricType = "event"
	MetricTypeError MetricType = "error"
)

// sqliteTime matches the text written by CURRENT_TIMESTAMP so window
// comparisons stay lexicographically correct
const sqliteTime = "2006-01-02 15:04:05"

// Stats holds aggregated metrics
type Stats struct {
	Uptime      time.Duration
	EventCounts map[string]int64
	ErrorCounts map[string]int64
	Stats24h    *WindowStats
	Stats7d     *WindowStats
	Stats30d    *WindowStats
}

// WindowStats holds totals for a trailing time window
type WindowStats struct {
	EventCount       int64
	ErrorCount       int64
	UniqueEventKinds int64
	UniqueErrorTypes int64
}

// Collector records and aggregates metrics
type Collector struct {
	conn *sql.DB
}

// NewCollector creates a collector over an open database connection
func NewCollector(conn *sql.DB) *Collector {
	return &Collector{conn: conn}
}

func (c *Collector) record(metricType MetricType, name string) error {
	_, err := c.conn.Exec(
		"INSERT INTO metrics (metric_type, metric_name, value) VALUES (?, ?, ?)",
		metricType,
		name,
		1.0,
	)
	return err
}

// RecordEvent counts one dispatched event of the given kind
func (c *Collector) RecordEvent(kind string) error {
	if err := c.record(MetricTypeEvent, kind); err != nil {
		return fmt.Errorf("failed to record event: %w", err)
	}
	return nil
}

// RecordError counts one reported error of the given type
func (c *Collector) RecordError(errorType string) error {
	if err := c.record(MetricTypeError, errorType); err != nil {
		return fmt.Errorf("failed to record error: %w", err)
	}
	return nil
}

// GetStats returns all-time counts per name and rolling window totals
func (c *Collector) GetStats(startTime time.Time) (*Stats, error) {
	stats := &Stats{Uptime: time.Since(startTime)}

	var err error
	if stats.EventCounts, err = c.countByName(MetricTypeEvent); err != nil {
		return nil, err
	}
	if stats.ErrorCounts, err = c.countByName(MetricTypeError); err != nil {
		return nil, err
	}

	windows := []struct {
		dst    **WindowStats
		window time.Duration
		label  string
	}{
		{&stats.Stats24h, 24 * time.Hour, "24h"},
		{&stats.Stats7d, 7 * 24 * time.Hour, "7d"},
		{&stats.Stats30d, 30 * 24 * time.Hour, "30d"},
	}
	for _, w := range windows {
		if *w.dst, err = c.windowStats(w.window); err != nil {
			return nil, fmt.Errorf("failed to get %s stats: %w", w.label, err)
		}
	}
	return stats, nil
}

func (c *Collector) countByName(metricType MetricType) (map[string]int64, error) {
	rows, err := c.conn.Query(
		"SELECT metric_name, COUNT(*) FROM metrics WHERE metric_type = ? GROUP BY metric_name",
		metricType,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s counts: %w", metricType, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	counts := make(map[string]int64)
	for rows.Next() {
		var name string
		var count int64
		if err := rows.Scan(&name, &count); err != nil {
			return nil, fmt.Errorf("failed to scan %s count: %w", metricType, err)
		}
		counts[name] = count
	}
	return counts, rows.Err()
}

func (c *Collector) windowStats(window time.Duration) (*WindowStats, error) {
	cutoff := time.Now().Add(-window).UTC().Format(sqliteTime)
	stats := &WindowStats{}

	err := c.conn.QueryRow(`
		SELECT
			COALESCE(SUM(CASE WHEN metric_type = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN metric_type = ? THEN 1 ELSE 0 END), 0),
			COUNT(DISTINCT CASE WHEN metric_type = ? THEN metric_name END),
			COUNT(DISTINCT CASE WHEN metric_type = ? THEN metric_name END)
		FROM metrics
		WHERE timestamp > ?
	`, MetricTypeEvent, MetricTypeError, MetricTypeEvent, MetricTypeError, cutoff).Scan(
		&stats.EventCount, &stats.ErrorCount, &stats.UniqueEventKinds, &stats.UniqueErrorTypes)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	return stats, nil
}

// Cleanup deletes metrics older than olderThan and returns how many were removed
func (c *Collector) Cleanup(olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan).UTC().Format(sqliteTime)
	result, err := c.conn.Exec("DELETE FROM metrics WHERE timestamp < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup old metrics: %w", err)
	}
	return result.RowsAffected()
}
