package storage

import (
	"context"
	"time"

	"community-budget/internal/models"
)

const projectSelect = `
	SELECT p.id, p.title, p.description, p.status, p.budget, p.created_by, u.username, p.created_at
	FROM projects p
	JOIN users u ON u.id = p.created_by`

func scanProject(s scanner) (*models.Project, error) {
	var p models.Project
	if err := s.Scan(&p.ID, &p.Title, &p.Description, &p.Status, &p.Budget,
		&p.CreatedByID, &p.CreatedBy, &p.CreatedAt); err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

// CreateProject inserts p and fills in its generated ID and defaults.
func (db *DB) CreateProject(ctx context.Context, p *models.Project) error {
	if p.Status == "" {
		p.Status = models.ProjectProposed
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	res, err := db.conn.ExecContext(ctx,
		"INSERT INTO projects (title, description, status, budget, created_by, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		p.Title, p.Description, p.Status, p.Budget, p.CreatedByID, p.CreatedAt,
	)
	if err != nil {
		return translate(err)
	}
	p.ID, err = res.LastInsertId()
	return err
}

// GetProjectByTitle retrieves a project by its title.
func (db *DB) GetProjectByTitle(ctx context.Context, title string) (*models.Project, error) {
	return scanProject(db.conn.QueryRowContext(ctx, projectSelect+" WHERE p.title = ?", title))
}

// ListProjects returns every project ordered by id.
func (db *DB) ListProjects(ctx context.Context) ([]models.Project, error) {
	rows, err := db.conn.QueryContext(ctx, projectSelect+" ORDER BY p.id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	projects := []models.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, *p)
	}
	return projects, rows.Err()
}

// UpdateProject persists the mutable fields of p.
func (db *DB) UpdateProject(ctx context.Context, p *models.Project) error {
	return affectedOne(db.conn.ExecContext(ctx,
		"UPDATE projects SET description = ?, status = ?, budget = ? WHERE id = ?",
		p.Description, p.Status, p.Budget, p.ID,
	))
}

// DeleteProject removes a project by title.
func (db *DB) DeleteProject(ctx context.Context, title string) error {
	return affectedOne(db.conn.ExecContext(ctx, "DELETE FROM projects WHERE title = ?", title))
}

// GetProjectSummary aggregates contributions and votes for a project.
func (db *DB) GetProjectSummary(ctx context.Context, title string) (*models.ProjectSummary, error) {
	p, err := db.GetProjectByTitle(ctx, title)
	if err != nil {
		return nil, err
	}

	amounts, err := db.contributionAmounts(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	funded := models.SumAmounts(amounts...)

	summary := &models.ProjectSummary{
		Title:         p.Title,
		Status:        p.Status,
		Budget:        p.Budget,
		Funded:        funded,
		Remaining:     models.SumAmounts(p.Budget, -funded),
		Contributions: len(amounts),
		Votes:         map[string]int{},
	}

	rows, err := db.conn.QueryContext(ctx,
		"SELECT vote_type, COUNT(*) FROM votes WHERE project_id = ? GROUP BY vote_type", p.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, err
		}
		summary.Votes[kind] = n
	}
	return summary, rows.Err()
}

func (db *DB) contributionAmounts(ctx context.Context, projectID int64) ([]float64, error) {
	rows, err := db.conn.QueryContext(ctx, "SELECT amount FROM contributions WHERE project_id = ?", projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var amounts []float64
	for rows.Next() {
		var a float64
		if err := rows.Scan(&a); err != nil {
			return nil, err
		}
		amounts = append(amounts, a)
	}
	return amounts, rows.Err()
}
