package storage

import (
	"context"
	"time"

	"community-budget/internal/models"
)

const userColumns = "id, name, username, password_hash, created_at"

func scanUser(s scanner) (*models.User, error) {
	var u models.User
	if err := s.Scan(&u.ID, &u.Name, &u.Username, &u.PasswordHash, &u.CreatedAt); err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

// CreateUser creates a new user with the given name, username and password hash.
func (db *DB) CreateUser(ctx context.Context, name, username, passwordHash string) (*models.User, error) {
	result, err := db.conn.ExecContext(ctx,
		"INSERT INTO users (name, username, password_hash, created_at) VALUES (?, ?, ?, ?)",
		name, username, passwordHash, time.Now().UTC(),
	)
	if err != nil {
		return nil, translate(err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	return db.GetUserByID(ctx, id)
}

// GetUserByID retrieves a user by ID.
func (db *DB) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return scanUser(db.conn.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = ?", id))
}

// GetUserByUsername retrieves a user by username.
func (db *DB) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return scanUser(db.conn.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE username = ?", username))
}

// UserNameTaken reports whether a display name is already registered.
func (db *DB) UserNameTaken(ctx context.Context, name string) (bool, error) {
	var n int
	err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE name = ?", name).Scan(&n)
	return n > 0, err
}

// ListUsers returns every user ordered by id.
func (db *DB) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := db.conn.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// UpdateUser persists the mutable fields of u (name and password hash).
func (db *DB) UpdateUser(ctx context.Context, u *models.User) error {
	return affectedOne(db.conn.ExecContext(ctx,
		"UPDATE users SET name = ?, password_hash = ? WHERE id = ?",
		u.Name, u.PasswordHash, u.ID,
	))
}

// DeleteUser removes a user by username.
func (db *DB) DeleteUser(ctx context.Context, username string) error {
	return affectedOne(db.conn.ExecContext(ctx, "DELETE FROM users WHERE username = ?", username))
}

// UserCount returns the number of users in the database.
func (db *DB) UserCount(ctx context.Context) (int, error) {
	var count int
	err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count)
	return count, err
}

// CreateSession records a login session for a user.
func (db *DB) CreateSession(ctx context.Context, token string, userID int64, expiresAt time.Time) error {
	_, err := db.conn.ExecContext(ctx,
		"INSERT INTO sessions (token, user_id, expires_at) VALUES (?, ?, ?)",
		token, userID, expiresAt.UTC(),
	)
	return translate(err)
}

// ValidateSession checks if a session token is still live and returns its user.
func (db *DB) ValidateSession(ctx context.Context, token string) (*models.User, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT u.id, u.name, u.username, u.password_hash, u.created_at
		FROM sessions s
		JOIN users u ON s.user_id = u.id
		WHERE s.token = ? AND s.expires_at > ?
	`, token, time.Now().UTC())
	return scanUser(row)
}

// DeleteSession removes a session by token.
func (db *DB) DeleteSession(ctx context.Context, token string) error {
	_, err := db.conn.ExecContext(ctx, "DELETE FROM sessions WHERE token = ?", token)
	return err
}

// CleanExpiredSessions removes all expired sessions.
func (db *DB) CleanExpiredSessions(ctx context.Context) (int64, error) {
	res, err := db.conn.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at <= ?", time.Now().UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
