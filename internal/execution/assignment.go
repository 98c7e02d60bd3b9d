package execution

import (
	"context"
	"time"

	"github.com/cloud-warriors/uat-portal/internal/models"
)

// AssignPlaceholder is rendered for an unassigned result or an
// assignee that no longer resolves against the roster
const AssignPlaceholder = "Assign"

// AssignmentDraft is an editable delegation for one result, seeded
// from its current assignee. Pure state; nothing is persisted until
// CommitAssignment.
type AssignmentDraft struct {
	ResultID   string
	AssignedTo *string
}

// Roster filters the full user list down to the assignable pool:
// users whose role marks them as test performers
func Roster(users []models.User) []models.User {
	pool := make([]models.User, 0, len(users))
	for _, u := range users {
		if u.Role.IsTestPerformer() {
			pool = append(pool, u)
		}
	}
	return pool
}

// OpenAssignment seeds a draft from the result's current assignee.
// An unknown resultID yields an empty draft for that ID; committing it
// later will no-op.
func (a *Aggregator) OpenAssignment(resultID string) AssignmentDraft {
	draft := AssignmentDraft{ResultID: resultID}
	for i := range a.results {
		if a.results[i].ID == resultID {
			draft.AssignedTo = a.results[i].AssignedTo
			break
		}
	}
	return draft
}

// CommitAssignment sets the draft's assignee on the matching result and
// recomputes the grouped view. CompletionStatus is unaffected. A draft
// referencing a result that is no longer in the collection is a no-op.
func (a *Aggregator) CommitAssignment(ctx context.Context, draft AssignmentDraft) GroupedView {
	mutated := false
	for i := range a.results {
		if a.results[i].ID == draft.ResultID {
			a.results[i].AssignedTo = draft.AssignedTo
			a.results[i].UpdatedAt = time.Now().UTC()
			mutated = true
			break
		}
	}

	if mutated && a.writer != nil {
		assignee := draft.AssignedTo
		a.writeThrough(ctx, "assignment", func(ctx context.Context) error {
			return a.writer.Assign(ctx, draft.ResultID, assignee)
		})
	}

	return BuildView(a.results)
}

// DisplayName resolves a stored assignee ID to a display name against
// the roster. Unassigned results and IDs absent from the roster both
// resolve to the neutral placeholder rather than a broken reference.
func DisplayName(assignedTo *string, roster []models.User) string {
	if assignedTo == nil || *assignedTo == "" {
		return AssignPlaceholder
	}
	for _, u := range roster {
		if u.ID == *assignedTo {
			return u.Name
		}
	}
	return AssignPlaceholder
}
