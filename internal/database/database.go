// Package database keeps an append-only audit log of moderation incidents.
// Detection state itself is in-memory only; this log exists so operators can
// review what the bot did after the fact.
package database

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/AunuHost/GLX-Protection-Free-Version/internal/logging"
)

type Database struct {
	db    *sql.DB
	queue chan Incident
	wg    sync.WaitGroup
}

var globalDB *Database

// Initialize opens the SQLite database and prepares the incident table.
func Initialize(dbPath string) error {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("failed to enable WAL: %w", err)
	}
	if _, err := db.Exec("PRAGMA synchronous=NORMAL"); err != nil {
		return fmt.Errorf("failed to set synchronous mode: %w", err)
	}

	d := &Database{
		db:    db,
		queue: make(chan Incident, 4096), // large buffer for breach bursts
	}
	if err := d.createTables(); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	d.wg.Add(1)
	go d.writer()

	globalDB = d
	return nil
}

func (d *Database) writer() {
	defer d.wg.Done()
	for inc := range d.queue {
		_, err := d.db.Exec(
			"INSERT INTO incidents (guild_id, user_id, kind, detail, created_at) VALUES (?, ?, ?, ?, ?)",
			inc.GuildID, inc.UserID, inc.Kind, inc.Detail, inc.CreatedAt,
		)
		if err != nil {
			logging.Warn("Failed to record incident (%s): %v", inc.Kind, err)
		}
	}
}

func (d *Database) createTables() error {
	_, err := d.db.Exec(`
		CREATE TABLE IF NOT EXISTS incidents (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			guild_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			detail TEXT NOT NULL,
			created_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_incidents_guild ON incidents(guild_id, created_at);
	`)
	return err
}

// GetDB returns the global database instance, or nil when unavailable.
func GetDB() *Database {
	if globalDB == nil || globalDB.db == nil {
		return nil
	}
	return globalDB
}

// Close drains queued incidents before closing the database.
func Close() error {
	if globalDB == nil || globalDB.db == nil {
		return nil
	}
	d := globalDB
	globalDB = nil
	close(d.queue)
	d.wg.Wait()
	return d.db.Close()
}

// Incident is one audit log row. CreatedAt is unix seconds.
type Incident struct {
	ID        int64  `json:"id"`
	GuildID   string `json:"guild_id"`
	UserID    string `json:"user_id"`
	Kind      string `json:"kind"`
	Detail    string `json:"detail"`
	CreatedAt int64  `json:"created_at"`
}

// RecordIncident hands one row to the writer goroutine and returns without
// touching disk; the caller is the detection loop, which must never stall
// on IO. A full queue drops the row, same as the logger.
func (d *Database) RecordIncident(guildID, userID uint64, kind, detail string) {
	inc := Incident{
		GuildID:   fmt.Sprintf("%d", guildID),
		UserID:    fmt.Sprintf("%d", userID),
		Kind:      kind,
		Detail:    detail,
		CreatedAt: time.Now().Unix(),
	}
	select {
	case d.queue <- inc:
	default:
		logging.Warn("Incident queue full, dropping %s for guild %d", kind, guildID)
	}
}

// GetRecentIncidents returns up to limit rows, newest first. A guildID of
// zero returns incidents across all guilds.
func (d *Database) GetRecentIncidents(guildID uint64, limit int) ([]Incident, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var rows *sql.Rows
	var err error
	if guildID == 0 {
		rows, err = d.db.Query(
			"SELECT id, guild_id, user_id, kind, detail, created_at FROM incidents ORDER BY id DESC LIMIT ?",
			limit,
		)
	} else {
		rows, err = d.db.Query(
			"SELECT id, guild_id, user_id, kind, detail, created_at FROM incidents WHERE guild_id = ? ORDER BY id DESC LIMIT ?",
			fmt.Sprintf("%d", guildID), limit,
		)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	incidents := make([]Incident, 0, limit)
	for rows.Next() {
		var inc Incident
		if err := rows.Scan(&inc.ID, &inc.GuildID, &inc.UserID, &inc.Kind, &inc.Detail, &inc.CreatedAt); err != nil {
			return nil, err
		}
		incidents = append(incidents, inc)
	}
	return incidents, rows.Err()
}
