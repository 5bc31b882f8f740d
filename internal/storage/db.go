package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	// Import sqlite driver
	_ "modernc.org/sqlite"
)

var (
	// ErrNotFound is returned when a row or a referenced row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a write violates a uniqueness constraint.
	ErrConflict = errors.New("already exists")
	// ErrStageConflict is returned when a chat session moved on concurrently.
	ErrStageConflict = errors.New("chat session stage changed concurrently")
)

// DB wraps a sql.DB connection.
type DB struct {
	conn *sql.DB
}

// NewDB opens a database connection and runs migrations.
func NewDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite serialises writers anyway and ":memory:" databases are per
	// connection, so a single connection keeps every caller on the same data.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

func (db *DB) migrate() error {
	migrations := []string{
		`PRAGMA foreign_keys = ON`,
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT UNIQUE NOT NULL,
			username TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS sessions (
			token TEXT PRIMARY KEY,
			user_id INTEGER NOT NULL,
			expires_at DATETIME NOT NULL,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS projects (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT UNIQUE NOT NULL,
			description TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'proposed',
			budget REAL NOT NULL,
			created_by INTEGER NOT NULL REFERENCES users(id),
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS contributions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL REFERENCES users(id),
			project_id INTEGER NOT NULL REFERENCES projects(id),
			amount REAL NOT NULL,
			date DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS votes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL REFERENCES users(id),
			project_id INTEGER NOT NULL REFERENCES projects(id),
			vote_type TEXT NOT NULL,
			comment TEXT,
			date DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS budgets (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			mandatory REAL NOT NULL DEFAULT 0,
			essential REAL NOT NULL DEFAULT 0,
			discretionary REAL NOT NULL DEFAULT 0,
			total REAL NOT NULL,
			created_by INTEGER NOT NULL REFERENCES users(id),
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS expenses (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			description TEXT NOT NULL,
			amount REAL NOT NULL,
			category TEXT NOT NULL,
			project_id INTEGER REFERENCES projects(id),
			created_by INTEGER NOT NULL REFERENCES users(id),
			date DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS chat_sessions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL REFERENCES users(id),
			project_id INTEGER REFERENCES projects(id),
			started_at DATETIME NOT NULL,
			ended_at DATETIME,
			status TEXT NOT NULL DEFAULT 'active',
			stage TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS chat_messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id INTEGER NOT NULL REFERENCES chat_sessions(id),
			is_user INTEGER NOT NULL,
			content TEXT NOT NULL,
			slot TEXT NOT NULL DEFAULT '',
			metadata TEXT,
			timestamp DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chat_messages_session ON chat_messages(session_id, timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_expenses_date ON expenses(date)`,
	}

	for _, m := range migrations {
		if _, err := db.conn.Exec(m); err != nil {
			return err
		}
	}
	return nil
}

// Ping checks that the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// withTx runs fn in a transaction, committing only if fn succeeds.
func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// translate maps driver errors onto the package sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return ErrNotFound
	case strings.Contains(err.Error(), "UNIQUE constraint failed"):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}

// affectedOne reports ErrNotFound when an update or delete touched no row.
func affectedOne(res sql.Result, err error) error {
	if err != nil {
		return translate(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// scanner is implemented by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}
