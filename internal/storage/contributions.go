package storage

import (
	"context"
	"time"

	"community-budget/internal/models"
)

const contributionSelect = `
	SELECT c.id, c.user_id, u.username, c.project_id, p.title, c.amount, c.date
	FROM contributions c
	JOIN users u ON u.id = c.user_id
	JOIN projects p ON p.id = c.project_id`

func scanContribution(s scanner) (*models.Contribution, error) {
	var c models.Contribution
	if err := s.Scan(&c.ID, &c.UserID, &c.UserUsername, &c.ProjectID, &c.ProjectTitle,
		&c.Amount, &c.Date); err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

// CreateContribution inserts c and fills in its generated ID.
func (db *DB) CreateContribution(ctx context.Context, c *models.Contribution) error {
	if c.Date.IsZero() {
		c.Date = time.Now().UTC()
	}
	res, err := db.conn.ExecContext(ctx,
		"INSERT INTO contributions (user_id, project_id, amount, date) VALUES (?, ?, ?, ?)",
		c.UserID, c.ProjectID, c.Amount, c.Date,
	)
	if err != nil {
		return translate(err)
	}
	c.ID, err = res.LastInsertId()
	return err
}

// GetContribution retrieves a contribution by ID.
func (db *DB) GetContribution(ctx context.Context, id int64) (*models.Contribution, error) {
	return scanContribution(db.conn.QueryRowContext(ctx, contributionSelect+" WHERE c.id = ?", id))
}

// ListContributions returns every contribution ordered by id.
func (db *DB) ListContributions(ctx context.Context) ([]models.Contribution, error) {
	rows, err := db.conn.QueryContext(ctx, contributionSelect+" ORDER BY c.id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Contribution{}
	for rows.Next() {
		c, err := scanContribution(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// UpdateContribution persists the amount of c.
func (db *DB) UpdateContribution(ctx context.Context, c *models.Contribution) error {
	return affectedOne(db.conn.ExecContext(ctx,
		"UPDATE contributions SET amount = ? WHERE id = ?", c.Amount, c.ID))
}

// DeleteContribution removes a contribution by ID.
func (db *DB) DeleteContribution(ctx context.Context, id int64) error {
	return affectedOne(db.conn.ExecContext(ctx, "DELETE FROM contributions WHERE id = ?", id))
}
