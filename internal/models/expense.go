package models

import "time"

// Expense represents a spending record, optionally attached to a project.
type Expense struct {
	ID           int64     `json:"id"`
	Description  string    `json:"description"`
	Amount       float64   `json:"amount"`
	Category     string    `json:"category"`
	ProjectID    *int64    `json:"-"`
	ProjectTitle *string   `json:"project_title"`
	CreatedByID  int64     `json:"-"`
	CreatedBy    string    `json:"created_by"`
	Date         time.Time `json:"date"`
}

// CategoryTotal holds the aggregate spend of a single category.
type CategoryTotal struct {
	Category string  `json:"category"`
	Total    float64 `json:"total"`
	Count    int     `json:"count"`
}
