package main

import (
	"database/sql"
	"log"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite database connection
type DB struct {
	conn *sql.DB
}

// AccountRow represents an account record in the database
type AccountRow struct {
	ID        int64
	Username  string
	PassHash  string
	CreatedAt time.Time
}

// RunRow summarizes one finished session
type RunRow struct {
	ID         int64     `json:"id"`
	SessionID  string    `json:"session_id"`
	Name       string    `json:"name"`
	Ticks      int64     `json:"ticks"`
	Duration   float64   `json:"duration"` // seconds
	PeakDrones int       `json:"peak_drones"`
	CreatedAt  time.Time `json:"created_at"`
}

// OpenDB opens (or creates) the SQLite database
func OpenDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, err
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates tables if they don't exist
func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS accounts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		pass_hash TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		ticks INTEGER NOT NULL DEFAULT 0,
		duration REAL NOT NULL DEFAULT 0,
		peak_drones INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS cycle_metrics (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		tick INTEGER NOT NULL,
		objects INTEGER NOT NULL,
		entries INTEGER NOT NULL,
		rebuild_us INTEGER NOT NULL,
		queries INTEGER NOT NULL,
		probes INTEGER NOT NULL,
		contacts INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_accounts_username ON accounts(username);
	CREATE INDEX IF NOT EXISTS idx_cycle_metrics_session ON cycle_metrics(session_id);
	CREATE INDEX IF NOT EXISTS idx_cycle_metrics_created ON cycle_metrics(created_at);
	`
	_, err := db.conn.Exec(schema)
	if err != nil {
		log.Printf("DB migration error: %v", err)
	}
	return err
}

// CreateAccount creates a new account (returns account ID)
func (db *DB) CreateAccount(username, passHash string) (int64, error) {
	res, err := db.conn.Exec(
		"INSERT INTO accounts (username, pass_hash) VALUES (?, ?)",
		username, passHash,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetAccountByUsername returns an account by username, nil if absent
func (db *DB) GetAccountByUsername(username string) (*AccountRow, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, pass_hash, created_at FROM accounts WHERE username = ?",
		username,
	)
	a := &AccountRow{}
	err := row.Scan(&a.ID, &a.Username, &a.PassHash, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return a, err
}

// UsernameExists checks if a username is taken
func (db *DB) UsernameExists(username string) (bool, error) {
	var count int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM accounts WHERE username = ?", username).Scan(&count)
	return count > 0, err
}

// GetSetting returns a setting value, or "" if unset
func (db *DB) GetSetting(key string) string {
	var value string
	err := db.conn.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err != nil {
		return ""
	}
	return value
}

// SetSetting stores a setting value
func (db *DB) SetSetting(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	return err
}

// RecordRun stores the summary of a finished session
func (db *DB) RecordRun(sessionID, name string, ticks int64, duration float64, peakDrones int) error {
	_, err := db.conn.Exec(
		"INSERT INTO runs (session_id, name, ticks, duration, peak_drones) VALUES (?, ?, ?, ?, ?)",
		sessionID, name, ticks, duration, peakDrones,
	)
	return err
}

// RecentRuns returns the most recently finished sessions
func (db *DB) RecentRuns(limit int) ([]RunRow, error) {
	rows, err := db.conn.Query(`
		SELECT id, session_id, name, ticks, duration, peak_drones, created_at
		FROM runs ORDER BY created_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []RunRow
	for rows.Next() {
		var r RunRow
		if err := rows.Scan(&r.ID, &r.SessionID, &r.Name, &r.Ticks, &r.Duration, &r.PeakDrones, &r.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}
