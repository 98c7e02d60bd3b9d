package models

import "time"

// TestStatus represents the execution state of a single test result
type TestStatus string

const (
	StatusNotStarted TestStatus = "Not Started"
	StatusPassed     TestStatus = "Passed"
	StatusFailed     TestStatus = "Failed"
)

// IsCompleted reports whether the result has been executed
func (s TestStatus) IsCompleted() bool {
	return s == StatusPassed || s == StatusFailed
}

// Valid reports whether s is one of the known statuses
func (s TestStatus) Valid() bool {
	return s == StatusNotStarted || s == StatusPassed || s == StatusFailed
}

// Category names the top-level grouping of a scenario
type Category struct {
	Name string `json:"name"`
}

// TestScenario is a reusable test definition owned by the scenario
// catalog. Immutable once instantiated into a result.
type TestScenario struct {
	ID          string    `json:"id"`
	Category    *Category `json:"category,omitempty"`
	Subcategory string    `json:"subcategory,omitempty"`
	Description string    `json:"description"`
}

// TestResult tracks one scenario's execution for one project.
// Scenario may be nil on malformed records; consumers must not assume
// the nested fields are present.
type TestResult struct {
	ID         string        `json:"id"`
	ProjectID  string        `json:"project_id"`
	Scenario   *TestScenario `json:"scenario,omitempty"`
	Status     TestStatus    `json:"status"`
	Notes      string        `json:"notes"`
	AssignedTo *string       `json:"assignedTo,omitempty"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// UpdateResultRequest is the partial payload for PUT /api/test-results/{id}.
// Exactly the fields present are overwritten.
type UpdateResultRequest struct {
	Status *TestStatus `json:"status,omitempty"`
	Notes  *string     `json:"notes,omitempty"`
}

// AssignRequest is the payload for PUT /api/test-results/{id}/assign.
// A nil AssignedTo clears the assignment.
type AssignRequest struct {
	AssignedTo *string `json:"assignedTo"`
}
