package storage

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"community-budget/internal/models"

	"github.com/shopspring/decimal"
)

const expenseSelect = `
	SELECT e.id, e.description, e.amount, e.category, e.project_id, p.title, e.created_by, u.username, e.date
	FROM expenses e
	JOIN users u ON u.id = e.created_by
	LEFT JOIN projects p ON p.id = e.project_id`

func scanExpense(s scanner) (*models.Expense, error) {
	var e models.Expense
	var projectID sql.NullInt64
	var projectTitle sql.NullString
	if err := s.Scan(&e.ID, &e.Description, &e.Amount, &e.Category, &projectID, &projectTitle,
		&e.CreatedByID, &e.CreatedBy, &e.Date); err != nil {
		return nil, translate(err)
	}
	if projectID.Valid {
		e.ProjectID = &projectID.Int64
	}
	if projectTitle.Valid {
		e.ProjectTitle = &projectTitle.String
	}
	return &e, nil
}

// CreateExpense inserts e and fills in its generated ID.
func (db *DB) CreateExpense(ctx context.Context, e *models.Expense) error {
	if e.Date.IsZero() {
		e.Date = time.Now()
	}
	e.Date = e.Date.UTC()
	res, err := db.conn.ExecContext(ctx,
		"INSERT INTO expenses (description, amount, category, project_id, created_by, date) VALUES (?, ?, ?, ?, ?, ?)",
		e.Description, e.Amount, e.Category, e.ProjectID, e.CreatedByID, e.Date,
	)
	if err != nil {
		return translate(err)
	}
	e.ID, err = res.LastInsertId()
	return err
}

// GetExpense retrieves a single expense by ID.
func (db *DB) GetExpense(ctx context.Context, id int64) (*models.Expense, error) {
	return scanExpense(db.conn.QueryRowContext(ctx, expenseSelect+" WHERE e.id = ?", id))
}

// ListExpenses returns every expense, most recent first.
func (db *DB) ListExpenses(ctx context.Context) ([]models.Expense, error) {
	return db.queryExpenses(ctx, expenseSelect+" ORDER BY e.date DESC, e.id DESC")
}

// GetExpensesByMonth returns the expenses dated within the given month (UTC), most recent first.
func (db *DB) GetExpensesByMonth(ctx context.Context, year, month int) ([]models.Expense, error) {
	start, end := monthBounds(year, month)
	return db.queryExpenses(ctx,
		expenseSelect+" WHERE e.date >= ? AND e.date < ? ORDER BY e.date DESC, e.id DESC", start, end)
}

func (db *DB) queryExpenses(ctx context.Context, query string, args ...any) ([]models.Expense, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	expenses := []models.Expense{}
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, *e)
	}
	return expenses, rows.Err()
}

// UpdateExpense updates an existing expense in the database.
func (db *DB) UpdateExpense(ctx context.Context, e *models.Expense) error {
	return affectedOne(db.conn.ExecContext(ctx,
		"UPDATE expenses SET description = ?, amount = ?, category = ?, project_id = ?, date = ? WHERE id = ?",
		e.Description, e.Amount, e.Category, e.ProjectID, e.Date.UTC(), e.ID,
	))
}

// DeleteExpense removes an expense by ID.
func (db *DB) DeleteExpense(ctx context.Context, id int64) error {
	return affectedOne(db.conn.ExecContext(ctx, "DELETE FROM expenses WHERE id = ?", id))
}

// GetCategoryTotalsByMonth sums expenses per category for the given month,
// largest total first.
func (db *DB) GetCategoryTotalsByMonth(ctx context.Context, year, month int) ([]models.CategoryTotal, error) {
	start, end := monthBounds(year, month)
	rows, err := db.conn.QueryContext(ctx,
		"SELECT category, amount FROM expenses WHERE date >= ? AND date < ?", start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sums := map[string]decimal.Decimal{}
	counts := map[string]int{}
	for rows.Next() {
		var category string
		var amount float64
		if err := rows.Scan(&category, &amount); err != nil {
			return nil, err
		}
		sums[category] = sums[category].Add(decimal.NewFromFloat(amount))
		counts[category]++
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	totals := make([]models.CategoryTotal, 0, len(sums))
	for category, sum := range sums {
		totals = append(totals, models.CategoryTotal{
			Category: category,
			Total:    sum.InexactFloat64(),
			Count:    counts[category],
		})
	}
	sort.Slice(totals, func(i, j int) bool {
		if totals[i].Total == totals[j].Total {
			return totals[i].Category < totals[j].Category
		}
		return totals[i].Total > totals[j].Total
	})
	return totals, nil
}

func monthBounds(year, month int) (time.Time, time.Time) {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}
