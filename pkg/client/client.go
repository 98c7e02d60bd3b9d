package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cloud-warriors/uat-portal/internal/models"
)

// TokenSource supplies the bearer token attached to authenticated
// requests. An empty string means no token is attached.
type TokenSource interface {
	Token() string
}

// StaticToken is a TokenSource holding a fixed token
type StaticToken string

func (t StaticToken) Token() string { return string(t) }

// Client is a Go SDK for the uat-portal API
type Client struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
}

// Option configures the client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the client timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithTokenSource sets the bearer token source for authenticated calls
func WithTokenSource(tokens TokenSource) Option {
	return func(c *Client) {
		c.tokens = tokens
	}
}

// NewClient creates a new uat-portal client
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError is a non-success response from the portal
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error: %s - %s", e.Code, e.Message)
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Login authenticates against the portal and returns the issued token
// and the authenticated user. The token is NOT stored on the client;
// callers keep it in their own TokenSource.
func (c *Client) Login(ctx context.Context, email, password string) (*models.LoginResponse, error) {
	var out models.LoginResponse
	req := models.LoginRequest{Email: email, Password: password}
	if err := c.call(ctx, http.MethodPost, "/api/auth/login", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout revokes the current bearer token
func (c *Client) Logout(ctx context.Context) error {
	return c.call(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
}

// Users retrieves all portal users
func (c *Client) Users(ctx context.Context) ([]*models.User, error) {
	var out struct {
		Users []*models.User `json:"users"`
		Total int            `json:"total"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/users", nil, &out); err != nil {
		return nil, err
	}
	return out.Users, nil
}

// Projects retrieves the projects visible to the authenticated user
func (c *Client) Projects(ctx context.Context) ([]*models.Project, error) {
	var out struct {
		Projects []*models.Project `json:"projects"`
		Total    int               `json:"total"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/projects", nil, &out); err != nil {
		return nil, err
	}
	return out.Projects, nil
}

// Project retrieves a single project by ID
func (c *Client) Project(ctx context.Context, id string) (*models.Project, error) {
	var out models.Project
	if err := c.call(ctx, http.MethodGet, "/api/projects/"+id, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateProject creates a project and instantiates its test results
// from the server-side scenario catalog. Manager role required.
func (c *Client) CreateProject(ctx context.Context, req models.CreateProjectRequest) (*models.Project, error) {
	var out models.Project
	if err := c.call(ctx, http.MethodPost, "/api/projects", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TestResultsForProject retrieves a project's test results in
// catalog order
func (c *Client) TestResultsForProject(ctx context.Context, projectID string) ([]*models.TestResult, error) {
	var out struct {
		Results []*models.TestResult `json:"results"`
		Total   int                  `json:"total"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/test-results/project/"+projectID, nil, &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

// UpdateTestResult pushes a partial result update
func (c *Client) UpdateTestResult(ctx context.Context, id string, req models.UpdateResultRequest) (*models.TestResult, error) {
	var out models.TestResult
	if err := c.call(ctx, http.MethodPut, "/api/test-results/"+id, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateStatus pushes a status change for one result. Together with
// UpdateNotes, Assign and UpdateProgress it satisfies the aggregator's
// write-through interface, so a client-side aggregator can persist its
// mutations straight through the API.
func (c *Client) UpdateStatus(ctx context.Context, resultID string, status models.TestStatus) error {
	_, err := c.UpdateTestResult(ctx, resultID, models.UpdateResultRequest{Status: &status})
	return err
}

// UpdateNotes pushes a notes change for one result
func (c *Client) UpdateNotes(ctx context.Context, resultID, notes string) error {
	_, err := c.UpdateTestResult(ctx, resultID, models.UpdateResultRequest{Notes: &notes})
	return err
}

// Assign sets or clears a result's assignee
func (c *Client) Assign(ctx context.Context, resultID string, assignedTo *string) error {
	var out models.TestResult
	return c.call(ctx, http.MethodPut, "/api/test-results/"+resultID+"/assign", models.AssignRequest{AssignedTo: assignedTo}, &out)
}

// UpdateProgress pushes a recomputed progress percentage for a project
func (c *Client) UpdateProgress(ctx context.Context, projectID string, progress int) error {
	var out models.Project
	req := models.UpdateProgressRequest{Progress: progress}
	return c.call(ctx, http.MethodPut, "/api/projects/"+projectID+"/progress", req, &out)
}

// call issues one API request and unwraps the response envelope into
// out (which may be nil when no data is expected).
func (c *Client) call(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var result envelope
	if err := json.Unmarshal(payload, &result); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if !result.Success {
		apiErr := &APIError{StatusCode: resp.StatusCode, Code: "unknown", Message: "no error detail"}
		if result.Error != nil {
			apiErr.Code = result.Error.Code
			apiErr.Message = result.Error.Message
		}
		return apiErr
	}

	if out != nil && len(result.Data) > 0 {
		if err := json.Unmarshal(result.Data, out); err != nil {
			return fmt.Errorf("failed to unmarshal response data: %w", err)
		}
	}

	return nil
}
