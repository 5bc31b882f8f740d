package storage

import (
	"context"
	"database/sql"
	"time"

	"community-budget/internal/models"
)

const voteSelect = `
	SELECT v.id, v.user_id, u.username, v.project_id, p.title, v.vote_type, v.comment, v.date
	FROM votes v
	JOIN users u ON u.id = v.user_id
	JOIN projects p ON p.id = v.project_id`

func scanVote(s scanner) (*models.Vote, error) {
	var v models.Vote
	var comment sql.NullString
	if err := s.Scan(&v.ID, &v.UserID, &v.UserUsername, &v.ProjectID, &v.ProjectTitle,
		&v.VoteType, &comment, &v.Date); err != nil {
		return nil, translate(err)
	}
	if comment.Valid {
		v.Comment = &comment.String
	}
	return &v, nil
}

// CreateVote inserts v and fills in its generated ID.
func (db *DB) CreateVote(ctx context.Context, v *models.Vote) error {
	if v.Date.IsZero() {
		v.Date = time.Now().UTC()
	}
	res, err := db.conn.ExecContext(ctx,
		"INSERT INTO votes (user_id, project_id, vote_type, comment, date) VALUES (?, ?, ?, ?, ?)",
		v.UserID, v.ProjectID, v.VoteType, v.Comment, v.Date,
	)
	if err != nil {
		return translate(err)
	}
	v.ID, err = res.LastInsertId()
	return err
}

// GetVote retrieves a vote by ID.
func (db *DB) GetVote(ctx context.Context, id int64) (*models.Vote, error) {
	return scanVote(db.conn.QueryRowContext(ctx, voteSelect+" WHERE v.id = ?", id))
}

// ListVotes returns every vote ordered by id.
func (db *DB) ListVotes(ctx context.Context) ([]models.Vote, error) {
	rows, err := db.conn.QueryContext(ctx, voteSelect+" ORDER BY v.id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Vote{}
	for rows.Next() {
		v, err := scanVote(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, rows.Err()
}

// UpdateVote persists the vote type and comment of v.
func (db *DB) UpdateVote(ctx context.Context, v *models.Vote) error {
	return affectedOne(db.conn.ExecContext(ctx,
		"UPDATE votes SET vote_type = ?, comment = ? WHERE id = ?", v.VoteType, v.Comment, v.ID))
}

// DeleteVote removes a vote by ID.
func (db *DB) DeleteVote(ctx context.Context, id int64) error {
	return affectedOne(db.conn.ExecContext(ctx, "DELETE FROM votes WHERE id = ?", id))
}
