package execution

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/cloud-warriors/uat-portal/internal/models"
)

// Default bucket names for results whose scenario reference is missing
// or malformed. Such results are never dropped; they group here and
// still count toward the totals.
const (
	DefaultCategory    = "Uncategorized"
	DefaultSubcategory = "General"
)

const writeTimeout = 10 * time.Second

// ResultWriter is the write-through sink for mutations. Writes are
// issued asynchronously after the local state is already updated;
// a failed write never rolls the local mutation back.
type ResultWriter interface {
	UpdateStatus(ctx context.Context, resultID string, status models.TestStatus) error
	UpdateNotes(ctx context.Context, resultID, notes string) error
	Assign(ctx context.Context, resultID string, assignedTo *string) error
	UpdateProgress(ctx context.Context, projectID string, progress int) error
}

// CompletionStatus summarizes execution progress over a result
// collection. Completed is always Passed + Failed, and Percentage is
// the rounded share of completed results (0 for an empty collection).
type CompletionStatus struct {
	Total      int `json:"total"`
	Completed  int `json:"completed"`
	Passed     int `json:"passed"`
	Failed     int `json:"failed"`
	Percentage int `json:"percentage"`
}

// IsComplete reports whether every result has been executed
func (c CompletionStatus) IsComplete() bool {
	return c.Total > 0 && c.Completed == c.Total
}

// SubcategoryGroup holds the results of one subcategory in arrival order
type SubcategoryGroup struct {
	Name    string              `json:"name"`
	Results []models.TestResult `json:"results"`
}

// CategoryGroup holds one category's subcategories in first-encounter order
type CategoryGroup struct {
	Name          string             `json:"name"`
	Subcategories []SubcategoryGroup `json:"subcategories"`
}

// GroupedView is the category -> subcategory -> results rendering of a
// result collection. Category and subcategory order follows first
// encounter in the source list.
type GroupedView struct {
	Categories []CategoryGroup `json:"categories"`
}

// Aggregator owns one project's in-memory result collection and keeps
// the derived GroupedView and CompletionStatus consistent under
// incremental mutations. Every mutation recomputes both views from the
// full post-mutation collection; collections are small, so consistency
// wins over incremental patching.
//
// Operations are expected to run from a single event queue; the
// Aggregator does no locking of its own.
type Aggregator struct {
	projectID  string
	writer     ResultWriter
	onComplete func(CompletionStatus)
	results    []models.TestResult
}

// Option configures an Aggregator
type Option func(*Aggregator)

// WithWriter sets the write-through sink for mutations
func WithWriter(w ResultWriter) Option {
	return func(a *Aggregator) {
		a.writer = w
	}
}

// WithCompletionFunc registers the CompletionReached handler. It fires
// once per Ingest or status mutation that leaves the collection fully
// executed; de-duplication across calls is the caller's concern.
func WithCompletionFunc(fn func(CompletionStatus)) Option {
	return func(a *Aggregator) {
		a.onComplete = fn
	}
}

// NewAggregator creates an empty aggregator for one project's session
func NewAggregator(projectID string, opts ...Option) *Aggregator {
	a := &Aggregator{projectID: projectID}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Ingest replaces the collection with rawResults and derives both
// views. Records with no usable scenario reference fall back to the
// default buckets but still count toward the totals.
func (a *Aggregator) Ingest(rawResults []models.TestResult) (GroupedView, CompletionStatus) {
	a.results = make([]models.TestResult, len(rawResults))
	copy(a.results, rawResults)

	return a.rederive()
}

// ApplyStatusChange overwrites one result's status and recomputes both
// views from the mutated collection. An unknown resultID is a no-op
// that still returns the recomputed (unchanged) views; it is never an
// error, since this is cache consistency, not validation.
func (a *Aggregator) ApplyStatusChange(ctx context.Context, resultID string, status models.TestStatus) (GroupedView, CompletionStatus) {
	mutated := false
	for i := range a.results {
		if a.results[i].ID == resultID {
			a.results[i].Status = status
			a.results[i].UpdatedAt = time.Now().UTC()
			mutated = true
			break
		}
	}

	// Counts must come from the post-mutation collection so the view
	// and the progress write-through carry the same number.
	view, completion := a.rederive()

	if mutated && a.writer != nil {
		a.writeThrough(ctx, "status", func(ctx context.Context) error {
			return a.writer.UpdateStatus(ctx, resultID, status)
		})
		progress := completion.Percentage
		a.writeThrough(ctx, "progress", func(ctx context.Context) error {
			return a.writer.UpdateProgress(ctx, a.projectID, progress)
		})
	}

	return view, completion
}

// ApplyNotesChange overwrites one result's notes. CompletionStatus is
// unaffected; only the grouped view is returned. Unknown IDs no-op.
func (a *Aggregator) ApplyNotesChange(ctx context.Context, resultID, notes string) GroupedView {
	mutated := false
	for i := range a.results {
		if a.results[i].ID == resultID {
			a.results[i].Notes = notes
			a.results[i].UpdatedAt = time.Now().UTC()
			mutated = true
			break
		}
	}

	if mutated && a.writer != nil {
		a.writeThrough(ctx, "notes", func(ctx context.Context) error {
			return a.writer.UpdateNotes(ctx, resultID, notes)
		})
	}

	return BuildView(a.results)
}

// Snapshot returns a copy of the current result collection
func (a *Aggregator) Snapshot() []models.TestResult {
	out := make([]models.TestResult, len(a.results))
	copy(out, a.results)
	return out
}

// rederive rebuilds both views and fires the completion signal when the
// collection is fully executed
func (a *Aggregator) rederive() (GroupedView, CompletionStatus) {
	view := BuildView(a.results)
	completion := Summarize(a.results)

	if completion.IsComplete() && a.onComplete != nil {
		a.onComplete(completion)
	}

	return view, completion
}

// writeThrough runs one persistence call detached from the caller.
// Local state is already updated; failures are reported as warnings
// and never propagated.
func (a *Aggregator) writeThrough(ctx context.Context, kind string, fn func(context.Context) error) {
	go func() {
		wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
		defer cancel()
		if err := fn(wctx); err != nil {
			slog.Warn("write-through failed",
				"kind", kind,
				"project_id", a.projectID,
				"error", err,
			)
		}
	}()
}

// BuildView groups results by category then subcategory, preserving
// first-encounter order at both levels and arrival order within a
// bucket. Missing scenario data falls back to the default bucket names.
func BuildView(results []models.TestResult) GroupedView {
	var view GroupedView
	catIdx := make(map[string]int)
	subIdx := make(map[string]map[string]int)

	for _, r := range results {
		cat, sub := bucketNames(r.Scenario)

		ci, ok := catIdx[cat]
		if !ok {
			ci = len(view.Categories)
			catIdx[cat] = ci
			subIdx[cat] = make(map[string]int)
			view.Categories = append(view.Categories, CategoryGroup{Name: cat})
		}

		si, ok := subIdx[cat][sub]
		if !ok {
			si = len(view.Categories[ci].Subcategories)
			subIdx[cat][sub] = si
			view.Categories[ci].Subcategories = append(view.Categories[ci].Subcategories, SubcategoryGroup{Name: sub})
		}

		grp := &view.Categories[ci].Subcategories[si]
		grp.Results = append(grp.Results, r)
	}

	return view
}

// Summarize computes the completion counters for a result collection
func Summarize(results []models.TestResult) CompletionStatus {
	c := CompletionStatus{Total: len(results)}

	for _, r := range results {
		switch r.Status {
		case models.StatusPassed:
			c.Passed++
		case models.StatusFailed:
			c.Failed++
		}
	}

	c.Completed = c.Passed + c.Failed
	if c.Total > 0 {
		c.Percentage = int(math.Round(float64(c.Completed) / float64(c.Total) * 100))
	}

	return c
}

// bucketNames resolves the grouping keys for a result, guarding every
// nested access so malformed records degrade instead of failing
func bucketNames(s *models.TestScenario) (category, subcategory string) {
	category = DefaultCategory
	subcategory = DefaultSubcategory

	if s == nil {
		return category, subcategory
	}
	if s.Category != nil && s.Category.Name != "" {
		category = s.Category.Name
	}
	if s.Subcategory != "" {
		subcategory = s.Subcategory
	}
	return category, subcategory
}
