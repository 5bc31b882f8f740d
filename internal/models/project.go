package models

import "time"

// ProjectStatus is the lifecycle state of a community project.
type ProjectStatus string

const (
	ProjectProposed  ProjectStatus = "proposed"
	ProjectActive    ProjectStatus = "active"
	ProjectCompleted ProjectStatus = "completed"
)

// Valid reports whether s is one of the known statuses.
func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectProposed, ProjectActive, ProjectCompleted:
		return true
	}
	return false
}

// Project is a community initiative that users fund and vote on.
type Project struct {
	ID          int64         `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Status      ProjectStatus `json:"status"`
	Budget      float64       `json:"budget"`
	CreatedByID int64         `json:"-"`
	CreatedBy   string        `json:"created_by"`
	CreatedAt   time.Time     `json:"created_at"`
}

// Contribution is money pledged by a user towards a project.
type Contribution struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"-"`
	UserUsername string    `json:"user_username"`
	ProjectID    int64     `json:"-"`
	ProjectTitle string    `json:"project_title"`
	Amount       float64   `json:"amount"`
	Date         time.Time `json:"date"`
}

// Vote is a user's opinion on a project.
type Vote struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"-"`
	UserUsername string    `json:"user_username"`
	ProjectID    int64     `json:"-"`
	ProjectTitle string    `json:"project_title"`
	VoteType     string    `json:"vote_type"`
	Comment      *string   `json:"comment"`
	Date         time.Time `json:"date"`
}

// ProjectSummary aggregates funding and voting activity for one project.
type ProjectSummary struct {
	Title         string         `json:"title"`
	Status        ProjectStatus  `json:"status"`
	Budget        float64        `json:"budget"`
	Funded        float64        `json:"funded"`
	Remaining     float64        `json:"remaining"`
	Contributions int            `json:"contributions"`
	Votes         map[string]int `json:"votes"`
}
