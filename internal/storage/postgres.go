package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cloud-warriors/uat-portal/internal/models"
)

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	DSN          string
	MaxOpenConns int32
	MaxIdleConns int32
	MaxLifetime  time.Duration
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(ctx context.Context, cfg PostgresConfig) (*PostgresRepository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = cfg.MaxOpenConns
	} else {
		poolConfig.MaxConns = 25
	}

	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = cfg.MaxIdleConns
	} else {
		poolConfig.MinConns = 5
	}

	if cfg.MaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxLifetime
	} else {
		poolConfig.MaxConnLifetime = 30 * time.Minute
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{pool: pool}, nil
}

// Ping checks database connectivity
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close closes the database connection pool
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// Users

// CreateUser inserts a new user record
func (r *PostgresRepository) CreateUser(ctx context.Context, u *models.User) error {
	query := `
		INSERT INTO users (id, email, name, role, customer, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.pool.Exec(ctx, query,
		u.ID,
		u.Email,
		u.Name,
		string(u.Role),
		nullString(u.Customer),
		u.PasswordHash,
		u.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetUser retrieves a user by ID
func (r *PostgresRepository) GetUser(ctx context.Context, id string) (*models.User, error) {
	return r.getUser(ctx, `WHERE id = $1`, id)
}

// GetUserByEmail retrieves a user by email
func (r *PostgresRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getUser(ctx, `WHERE email = $1`, email)
}

func (r *PostgresRepository) getUser(ctx context.Context, where string, arg any) (*models.User, error) {
	query := `
		SELECT id, email, name, role, customer, password_hash, created_at
		FROM users ` + where

	var u models.User
	var roleStr string
	var customer sql.NullString

	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&u.ID,
		&u.Email,
		&u.Name,
		&roleStr,
		&customer,
		&u.PasswordHash,
		&u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	u.Role = models.Role(roleStr)
	u.Customer = customer.String

	return &u, nil
}

// ListUsers returns all users ordered by name
func (r *PostgresRepository) ListUsers(ctx context.Context) ([]*models.User, error) {
	query := `
		SELECT id, email, name, role, customer, password_hash, created_at
		FROM users
		ORDER BY name
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		var u models.User
		var roleStr string
		var customer sql.NullString

		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &roleStr, &customer, &u.PasswordHash, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}

		u.Role = models.Role(roleStr)
		u.Customer = customer.String
		users = append(users, &u)
	}

	return users, rows.Err()
}

// Projects

// CreateProject inserts a new project record
func (r *PostgresRepository) CreateProject(ctx context.Context, p *models.Project) error {
	query := `
		INSERT INTO projects (id, name, customer, status, description, due_date, progress, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.pool.Exec(ctx, query,
		p.ID,
		p.Name,
		p.Customer,
		string(p.Status),
		nullString(p.Description),
		nullString(p.DueDate),
		p.Progress,
		p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}

	return nil
}

// GetProject retrieves a project by ID
func (r *PostgresRepository) GetProject(ctx context.Context, id string) (*models.Project, error) {
	query := `
		SELECT id, name, customer, status, description, due_date, progress, created_at
		FROM projects
		WHERE id = $1
	`

	p, err := scanProject(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	return p, nil
}

// UpdateProjectProgress persists a recomputed progress value and status
func (r *PostgresRepository) UpdateProjectProgress(ctx context.Context, id string, progress int, status models.ProjectStatus) error {
	query := `
		UPDATE projects
		SET progress = $2, status = $3
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, id, progress, string(status))
	if err != nil {
		return fmt.Errorf("failed to update project progress: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("project not found: %s", id)
	}

	return nil
}

// ListProjects returns projects matching filters, newest first
func (r *PostgresRepository) ListProjects(ctx context.Context, filters models.ProjectFilters) ([]*models.Project, error) {
	query := `
		SELECT id, name, customer, status, description, due_date, progress, created_at
		FROM projects
		WHERE 1=1
	`
	args := make([]any, 0)
	argNum := 1

	if filters.Customer != "" {
		query += fmt.Sprintf(" AND customer = $%d", argNum)
		args = append(args, filters.Customer)
		argNum++
	}

	if filters.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argNum)
		args = append(args, string(filters.Status))
		argNum++
	}

	query += " ORDER BY created_at DESC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []*models.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, p)
	}

	return projects, rows.Err()
}

// Test results

// CreateResult inserts a new test result record. The scenario snapshot
// is stored as JSONB; a missing scenario stores NULL.
func (r *PostgresRepository) CreateResult(ctx context.Context, res *models.TestResult) error {
	scenarioJSON, err := marshalScenario(res.Scenario)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO test_results (id, project_id, scenario, status, notes, assigned_to, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err = r.pool.Exec(ctx, query,
		res.ID,
		res.ProjectID,
		scenarioJSON,
		string(res.Status),
		res.Notes,
		res.AssignedTo,
		res.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create test result: %w", err)
	}

	return nil
}

// GetResult retrieves a test result by ID
func (r *PostgresRepository) GetResult(ctx context.Context, id string) (*models.TestResult, error) {
	query := `
		SELECT id, project_id, scenario, status, notes, assigned_to, updated_at
		FROM test_results
		WHERE id = $1
	`

	res, err := scanResult(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get test result: %w", err)
	}

	return res, nil
}

// UpdateResult overwrites a test result's mutable fields
func (r *PostgresRepository) UpdateResult(ctx context.Context, res *models.TestResult) error {
	query := `
		UPDATE test_results
		SET status = $2, notes = $3, assigned_to = $4, updated_at = $5
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query,
		res.ID,
		string(res.Status),
		res.Notes,
		res.AssignedTo,
		res.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update test result: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("test result not found: %s", res.ID)
	}

	return nil
}

// ListResultsByProject returns a project's results in creation order,
// which preserves the catalog's category/subcategory ordering
func (r *PostgresRepository) ListResultsByProject(ctx context.Context, projectID string) ([]*models.TestResult, error) {
	query := `
		SELECT id, project_id, scenario, status, notes, assigned_to, updated_at
		FROM test_results
		WHERE project_id = $1
		ORDER BY seq
	`

	rows, err := r.pool.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list test results: %w", err)
	}
	defer rows.Close()

	var results []*models.TestResult
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan test result: %w", err)
		}
		results = append(results, res)
	}

	return results, rows.Err()
}

// Scan helpers

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (*models.Project, error) {
	var p models.Project
	var statusStr string
	var description, dueDate sql.NullString

	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Customer,
		&statusStr,
		&description,
		&dueDate,
		&p.Progress,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Status = models.ProjectStatus(statusStr)
	p.Description = description.String
	p.DueDate = dueDate.String

	return &p, nil
}

func scanResult(row rowScanner) (*models.TestResult, error) {
	var res models.TestResult
	var statusStr string
	var scenarioJSON []byte
	var assignedTo sql.NullString

	err := row.Scan(
		&res.ID,
		&res.ProjectID,
		&scenarioJSON,
		&statusStr,
		&res.Notes,
		&assignedTo,
		&res.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	res.Status = models.TestStatus(statusStr)
	if assignedTo.Valid {
		res.AssignedTo = &assignedTo.String
	}

	if len(scenarioJSON) > 0 {
		if err := json.Unmarshal(scenarioJSON, &res.Scenario); err != nil {
			return nil, fmt.Errorf("failed to unmarshal scenario: %w", err)
		}
	}

	return &res, nil
}

func marshalScenario(s *models.TestScenario) ([]byte, error) {
	if s == nil {
		return nil, nil
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal scenario: %w", err)
	}
	return data, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
