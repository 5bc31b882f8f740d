package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"community-budget/internal/models"
)

func scanChatSession(s scanner) (*models.ChatSession, error) {
	var cs models.ChatSession
	var projectID sql.NullInt64
	var endedAt sql.NullTime
	if err := s.Scan(&cs.ID, &cs.UserID, &projectID, &cs.StartedAt, &endedAt, &cs.Status, &cs.Stage); err != nil {
		return nil, translate(err)
	}
	if projectID.Valid {
		cs.ProjectID = &projectID.Int64
	}
	if endedAt.Valid {
		cs.EndedAt = &endedAt.Time
	}
	return &cs, nil
}

// CreateChatSession opens an active session and stores primer as its first
// assistant message, atomically.
func (db *DB) CreateChatSession(ctx context.Context, userID int64, projectID *int64, primer string) (*models.ChatSession, error) {
	cs := &models.ChatSession{
		UserID:    userID,
		ProjectID: projectID,
		StartedAt: time.Now().UTC(),
		Status:    models.ChatActive,
		Stage:     models.StageIntakeDescription,
	}
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"INSERT INTO chat_sessions (user_id, project_id, started_at, status, stage) VALUES (?, ?, ?, ?, ?)",
			cs.UserID, cs.ProjectID, cs.StartedAt, cs.Status, cs.Stage,
		)
		if err != nil {
			return err
		}
		if cs.ID, err = res.LastInsertId(); err != nil {
			return err
		}
		return insertChatMessage(ctx, tx, cs.ID, &models.ChatMessage{
			Content:  primer,
			Metadata: map[string]string{"stage": string(cs.Stage)},
		})
	})
	if err != nil {
		return nil, translate(err)
	}
	return cs, nil
}

// GetChatSession retrieves a chat session by ID.
func (db *DB) GetChatSession(ctx context.Context, id int64) (*models.ChatSession, error) {
	return scanChatSession(db.conn.QueryRowContext(ctx,
		"SELECT id, user_id, project_id, started_at, ended_at, status, stage FROM chat_sessions WHERE id = ?", id))
}

// AppendChatMessages stores msgs and moves the session from stage from to
// stage to in one transaction. The move is conditional: if the session is no
// longer active or no longer at from, nothing is written and
// ErrStageConflict is returned.
func (db *DB) AppendChatMessages(ctx context.Context, sessionID int64, from, to models.ChatStage, msgs ...models.ChatMessage) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"UPDATE chat_sessions SET stage = ? WHERE id = ? AND stage = ? AND status = ?",
			to, sessionID, from, models.ChatActive,
		)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return ErrStageConflict
		}
		for i := range msgs {
			if err := insertChatMessage(ctx, tx, sessionID, &msgs[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

func insertChatMessage(ctx context.Context, tx *sql.Tx, sessionID int64, m *models.ChatMessage) error {
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now().UTC()
	}
	m.SessionID = sessionID

	var metadata any
	if len(m.Metadata) > 0 {
		meta := make(map[string]string, len(m.Metadata)+1)
		for k, v := range m.Metadata {
			meta[k] = v
		}
		meta["timestamp"] = m.Timestamp.Format(time.RFC3339Nano)
		b, err := json.Marshal(meta)
		if err != nil {
			return err
		}
		metadata = string(b)
	}

	res, err := tx.ExecContext(ctx,
		"INSERT INTO chat_messages (session_id, is_user, content, slot, metadata, timestamp) VALUES (?, ?, ?, ?, ?, ?)",
		sessionID, m.IsUser, m.Content, m.Slot, metadata, m.Timestamp,
	)
	if err != nil {
		return err
	}
	m.ID, err = res.LastInsertId()
	return err
}

// EndChatSession marks an active session as ended. It reports whether the
// session changed state; ending an already ended session is a no-op.
func (db *DB) EndChatSession(ctx context.Context, id int64) (bool, error) {
	res, err := db.conn.ExecContext(ctx,
		"UPDATE chat_sessions SET status = ?, ended_at = ? WHERE id = ? AND status = ?",
		models.ChatEnded, time.Now().UTC(), id, models.ChatActive,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ListChatMessages returns the transcript of a session in chronological order.
func (db *DB) ListChatMessages(ctx context.Context, sessionID int64) ([]models.ChatMessage, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, session_id, is_user, content, slot, metadata, timestamp
		FROM chat_messages
		WHERE session_id = ?
		ORDER BY timestamp ASC, id ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	msgs := []models.ChatMessage{}
	for rows.Next() {
		var m models.ChatMessage
		var metadata sql.NullString
		if err := rows.Scan(&m.ID, &m.SessionID, &m.IsUser, &m.Content, &m.Slot, &metadata, &m.Timestamp); err != nil {
			return nil, err
		}
		if metadata.Valid && metadata.String != "" {
			if err := json.Unmarshal([]byte(metadata.String), &m.Metadata); err != nil {
				return nil, err
			}
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
