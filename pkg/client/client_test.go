package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cloud-warriors/uat-portal/internal/models"
)

func respond(t *testing.T, w http.ResponseWriter, status int, body any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		t.Fatalf("encode response: %v", err)
	}
}

func TestClientAttachesBearerToken(t *testing.T) {
	var gotAuth string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		respond(t, w, http.StatusOK, map[string]any{
			"success": true,
			"data":    map[string]any{"projects": []any{}, "total": 0},
		})
	}))
	defer ts.Close()

	c := NewClient(ts.URL, WithTokenSource(StaticToken("abc123")))
	if _, err := c.Projects(context.Background()); err != nil {
		t.Fatalf("Projects: %v", err)
	}
	if gotAuth != "Bearer abc123" {
		t.Fatalf("Authorization = %q", gotAuth)
	}
}

func TestClientOmitsEmptyToken(t *testing.T) {
	var gotAuth string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		respond(t, w, http.StatusOK, map[string]any{
			"success": true,
			"data": map[string]any{
				"token": "issued-token",
				"user":  map[string]any{"id": "u1", "email": "a@b.c", "role": "tester"},
			},
		})
	}))
	defer ts.Close()

	c := NewClient(ts.URL, WithTokenSource(StaticToken("")))
	login, err := c.Login(context.Background(), "a@b.c", "pw")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if gotAuth != "" {
		t.Fatalf("Authorization = %q, want empty", gotAuth)
	}
	if login.Token != "issued-token" {
		t.Fatalf("token = %q", login.Token)
	}
}

func TestClientUnwrapsAPIError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respond(t, w, http.StatusNotFound, map[string]any{
			"success": false,
			"error":   map[string]any{"code": "not_found", "message": "project not found"},
		})
	}))
	defer ts.Close()

	c := NewClient(ts.URL)
	_, err := c.Project(context.Background(), "nope")
	if err == nil {
		t.Fatal("expected an error")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T", err)
	}
	if apiErr.StatusCode != http.StatusNotFound || apiErr.Code != "not_found" {
		t.Fatalf("apiErr = %+v", apiErr)
	}
}

func TestUpdateStatusRoutesThroughResultEndpoint(t *testing.T) {
	var gotMethod, gotPath string
	var gotBody models.UpdateResultRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		respond(t, w, http.StatusOK, map[string]any{
			"success": true,
			"data":    map[string]any{"id": "r1", "status": "Passed"},
		})
	}))
	defer ts.Close()

	c := NewClient(ts.URL, WithTokenSource(StaticToken("tok")))
	if err := c.UpdateStatus(context.Background(), "r1", models.StatusPassed); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if gotMethod != http.MethodPut || gotPath != "/api/test-results/r1" {
		t.Fatalf("request = %s %s", gotMethod, gotPath)
	}
	if gotBody.Status == nil || *gotBody.Status != models.StatusPassed {
		t.Fatalf("body status = %v", gotBody.Status)
	}
	if gotBody.Notes != nil {
		t.Fatal("notes should be omitted on a status-only update")
	}
}

func TestUpdateProgress(t *testing.T) {
	var gotPath string
	var gotBody models.UpdateProgressRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		respond(t, w, http.StatusOK, map[string]any{
			"success": true,
			"data":    map[string]any{"id": "p1", "progress": 75},
		})
	}))
	defer ts.Close()

	c := NewClient(ts.URL, WithTokenSource(StaticToken("tok")))
	if err := c.UpdateProgress(context.Background(), "p1", 75); err != nil {
		t.Fatalf("UpdateProgress: %v", err)
	}
	if gotPath != "/api/projects/p1/progress" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotBody.Progress != 75 {
		t.Fatalf("progress = %d", gotBody.Progress)
	}
}
