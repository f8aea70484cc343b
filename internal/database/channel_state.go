package database

import (
	"fmt"
	"time"
)

// MemberRecord is the stored status of one channel member. Channel and Nick
// are folded keys; DisplayNick keeps the original spelling.
type MemberRecord struct {
	Channel     string
	Nick        string
	DisplayNick string
	Status      string // NAMES symbols such as "@+"
	UpdatedAt   time.Time
}

// ListRecord is one stored list mode entry
type ListRecord struct {
	Channel string
	Mode    string
	Value   string
	SetBy   string
	SetAt   time.Time
}

// UpsertMember adds a member or updates its status
func (db *DB) UpsertMember(channel, nick, displayNick, status string) error {
	_, err := db.conn.Exec(`
		INSERT INTO channel_members (channel, nick, display_nick, status, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(channel, nick) DO UPDATE SET
			display_nick = excluded.display_nick,
			status = excluded.status,
			updated_at = excluded.updated_at
	`, channel, nick, displayNick, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert member: %w", err)
	}
	return nil
}

// RemoveMember removes a member from one channel
func (db *DB) RemoveMember(channel, nick string) error {
	if _, err := db.conn.Exec("DELETE FROM channel_members WHERE channel = ? AND nick = ?", channel, nick); err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}
	return nil
}

// RemoveMemberEverywhere removes a nick from every channel, as on QUIT
func (db *DB) RemoveMemberEverywhere(nick string) error {
	if _, err := db.conn.Exec("DELETE FROM channel_members WHERE nick = ?", nick); err != nil {
		return fmt.Errorf("failed to remove member from all channels: %w", err)
	}
	return nil
}

// RenameMember moves every membership of oldNick to newNick
func (db *DB) RenameMember(oldNick, newNick, displayNick string) error {
	_, err := db.conn.Exec(`
		UPDATE OR REPLACE channel_members
		SET nick = ?, display_nick = ?, updated_at = ?
		WHERE nick = ?
	`, newNick, displayNick, time.Now().UTC(), oldNick)
	if err != nil {
		return fmt.Errorf("failed to rename member: %w", err)
	}
	return nil
}

// ClearChannel forgets the members and list entries of a channel
func (db *DB) ClearChannel(channel string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.Exec("DELETE FROM channel_members WHERE channel = ?", channel); err != nil {
		return fmt.Errorf("failed to clear members: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM list_entries WHERE channel = ?", channel); err != nil {
		return fmt.Errorf("failed to clear list entries: %w", err)
	}
	return tx.Commit()
}

// ListMembers returns the members of a channel sorted by nick
func (db *DB) ListMembers(channel string) ([]MemberRecord, error) {
	rows, err := db.conn.Query(`
		SELECT channel, nick, display_nick, status, updated_at
		FROM channel_members
		WHERE channel = ?
		ORDER BY nick
	`, channel)
	if err != nil {
		return nil, fmt.Errorf("failed to query members: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var members []MemberRecord
	for rows.Next() {
		var m MemberRecord
		if err := rows.Scan(&m.Channel, &m.Nick, &m.DisplayNick, &m.Status, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// UpsertListEntry stores a list mode entry, replacing one with the same value
func (db *DB) UpsertListEntry(channel string, mode byte, value, setBy string, setAt time.Time) error {
	_, err := db.conn.Exec(`
		INSERT INTO list_entries (channel, mode, value, set_by, set_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(channel, mode, value) DO UPDATE SET
			set_by = excluded.set_by,
			set_at = excluded.set_at
	`, channel, string(mode), value, setBy, setAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert list entry: %w", err)
	}
	return nil
}

// RemoveListEntry deletes a list mode entry
func (db *DB) RemoveListEntry(channel string, mode byte, value string) error {
	_, err := db.conn.Exec("DELETE FROM list_entries WHERE channel = ? AND mode = ? AND value = ?",
		channel, string(mode), value)
	if err != nil {
		return fmt.Errorf("failed to remove list entry: %w", err)
	}
	return nil
}

// ListEntries returns the list mode entries of a channel, grouped by mode
// and in the order they were set
func (db *DB) ListEntries(channel string) ([]ListRecord, error) {
	rows, err := db.conn.Query(`
		SELECT channel, mode, value, set_by, set_at
		FROM list_entries
		WHERE channel = ?
		ORDER BY mode, set_at, value
	`, channel)
	if err != nil {
		return nil, fmt.Errorf("failed to query list entries: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var entries []ListRecord
	for rows.Next() {
		var e ListRecord
		if err := rows.Scan(&e.Channel, &e.Mode, &e.Value, &e.SetBy, &e.SetAt); err != nil {
			return nil, fmt.Errorf("failed to scan list entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
