package database

import (
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// EventRecord is one journaled mode event
type EventRecord struct {
	ID        string
	SessionID string
	Kind      string
	Channel   string
	Target    string // member, client or error target
	Actor     string
	Mode      string
	Params    []string
	CreatedAt time.Time
}

// RecordEvent appends an event to the journal. ID and CreatedAt are filled in
// when empty. IDs are ULIDs, so journal order is creation order.
func (db *DB) RecordEvent(rec *EventRecord) error {
	if rec.ID == "" {
		rec.ID = ulid.Make().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	rec.CreatedAt = rec.CreatedAt.UTC()

	_, err := db.conn.Exec(`
		INSERT INTO mode_events (id, session_id, kind, channel, target, actor, mode, params, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.SessionID, rec.Kind, rec.Channel, rec.Target, rec.Actor, rec.Mode,
		strings.Join(rec.Params, " "), rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record event: %w", err)
	}
	return nil
}

// ListEvents returns the newest events for a channel (folded name), oldest
// first. An empty channel lists events of every channel.
func (db *DB) ListEvents(channel string, limit int) ([]EventRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, session_id, kind, channel, target, actor, mode, params, created_at
		FROM mode_events`
	args := []any{}
	if channel != "" {
		query += " WHERE channel = ?"
		args = append(args, channel)
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var records []EventRecord
	for rows.Next() {
		var rec EventRecord
		var params string
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.Kind, &rec.Channel, &rec.Target,
			&rec.Actor, &rec.Mode, &params, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		rec.Params = strings.Fields(params)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}

	// Reverse into chronological order
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	return records, nil
}

// CountEventsByKind returns the number of journaled events per kind
func (db *DB) CountEventsByKind() (map[string]int64, error) {
	rows, err := db.conn.Query("SELECT kind, COUNT(*) FROM mode_events GROUP BY kind")
	if err != nil {
		return nil, fmt.Errorf("failed to count events: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	counts := make(map[string]int64)
	for rows.Next() {
		var kind string
		var count int64
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, fmt.Errorf("failed to scan event count: %w", err)
		}
		counts[kind] = count
	}
	return counts, rows.Err()
}

// PruneEvents deletes journal rows older than olderThan and returns how many
// were removed
func (db *DB) PruneEvents(olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan).UTC()
	result, err := db.conn.Exec("DELETE FROM mode_events WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune events: %w", err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return removed, nil
}
