package models

import "time"

// ProjectStatus represents the delivery state of a UAT project
type ProjectStatus string

const (
	ProjectNotStarted ProjectStatus = "Not Started"
	ProjectInProgress ProjectStatus = "In Progress"
	ProjectCompleted  ProjectStatus = "Completed"
)

// Project represents one customer's UAT engagement.
// Progress is a derived value (share of completed test results) that is
// written back after each recompute, so the stored copy can transiently
// lag the value computed from the current results.
type Project struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Customer    string        `json:"customer"`
	Status      ProjectStatus `json:"status"`
	Description string        `json:"description,omitempty"`
	DueDate     string        `json:"dueDate"`
	Progress    int           `json:"progress"`
	CreatedAt   time.Time     `json:"created_at"`
}

// CreateProjectRequest is the payload for POST /api/projects
type CreateProjectRequest struct {
	Name        string `json:"name"`
	Customer    string `json:"customer"`
	DueDate     string `json:"due_date"`
	Description string `json:"description,omitempty"`
}

// UpdateProgressRequest is the payload for PUT /api/projects/{id}/progress
type UpdateProgressRequest struct {
	Progress int `json:"progress"`
}

// ProjectFilters defines filters for listing projects
type ProjectFilters struct {
	Customer string
	Status   ProjectStatus
}
