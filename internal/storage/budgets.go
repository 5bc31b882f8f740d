package storage

import (
	"context"
	"time"

	"community-budget/internal/models"
)

const budgetSelect = `
	SELECT b.id, b.name, b.mandatory, b.essential, b.discretionary, b.total, b.created_by, u.username, b.created_at
	FROM budgets b
	JOIN users u ON u.id = b.created_by`

func scanBudget(s scanner) (*models.Budget, error) {
	var b models.Budget
	if err := s.Scan(&b.ID, &b.Name, &b.Mandatory, &b.Essential, &b.Discretionary, &b.Total,
		&b.CreatedByID, &b.CreatedBy, &b.CreatedAt); err != nil {
		return nil, translate(err)
	}
	return &b, nil
}

// CreateBudget recomputes the total of b, inserts it and fills in its ID.
func (db *DB) CreateBudget(ctx context.Context, b *models.Budget) error {
	b.Recompute()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO budgets (name, mandatory, essential, discretionary, total, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		b.Name, b.Mandatory, b.Essential, b.Discretionary, b.Total, b.CreatedByID, b.CreatedAt,
	)
	if err != nil {
		return translate(err)
	}
	b.ID, err = res.LastInsertId()
	return err
}

// GetBudget retrieves a budget by ID.
func (db *DB) GetBudget(ctx context.Context, id int64) (*models.Budget, error) {
	return scanBudget(db.conn.QueryRowContext(ctx, budgetSelect+" WHERE b.id = ?", id))
}

// ListBudgets returns every budget ordered by id.
func (db *DB) ListBudgets(ctx context.Context) ([]models.Budget, error) {
	rows, err := db.conn.QueryContext(ctx, budgetSelect+" ORDER BY b.id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Budget{}
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

// UpdateBudget recomputes the total of b and persists its mutable fields.
func (db *DB) UpdateBudget(ctx context.Context, b *models.Budget) error {
	b.Recompute()
	return affectedOne(db.conn.ExecContext(ctx,
		"UPDATE budgets SET name = ?, mandatory = ?, essential = ?, discretionary = ?, total = ? WHERE id = ?",
		b.Name, b.Mandatory, b.Essential, b.Discretionary, b.Total, b.ID,
	))
}

// DeleteBudget removes a budget by ID.
func (db *DB) DeleteBudget(ctx context.Context, id int64) error {
	return affectedOne(db.conn.ExecContext(ctx, "DELETE FROM budgets WHERE id = ?", id))
}
