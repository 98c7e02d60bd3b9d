package models

import "time"

// Role determines what a user can do in the portal
type Role string

const (
	// RoleManager runs projects (PSO side); managers do not execute tests
	RoleManager Role = "manager"
	// RoleTester executes test scenarios on behalf of a customer
	RoleTester Role = "tester"
	// RoleCustomer executes tests for their own deployment
	RoleCustomer Role = "customer"
)

// IsTestPerformer reports whether users with this role belong to the
// assignable reviewer pool. Managers coordinate, they don't execute.
func (r Role) IsTestPerformer() bool {
	return r == RoleTester || r == RoleCustomer
}

// User represents a portal account
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         Role      `json:"role"`
	Customer     string    `json:"customer,omitempty"`
	PasswordHash string    `json:"-"` // Never serialize
	CreatedAt    time.Time `json:"created_at"`
}

// LoginRequest is the payload for POST /api/auth/login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the issued bearer token and the authenticated user
type LoginResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}
