package events

import (
	"log/slog"
	"sync"
	"time"

	"github.com/cloud-warriors/uat-portal/internal/execution"
)

// Type identifies a portal event kind
type Type string

const (
	// TypeProgress fires whenever a result mutation changes a project's counters
	TypeProgress Type = "progress"
	// TypeCompleted fires when a project transitions into the fully executed state
	TypeCompleted Type = "completed"
)

// Event is one progress notification for a project
type Event struct {
	Type       Type                       `json:"type"`
	ProjectID  string                     `json:"project_id"`
	Completion execution.CompletionStatus `json:"completion"`
	At         time.Time                  `json:"at"`
}

const subscriberBuffer = 16

// Hub fans project events out to live subscribers. Publishing never
// blocks: a subscriber that cannot keep up loses events rather than
// stalling the publisher.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[chan Event]struct{}
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{
		subs: make(map[string]map[chan Event]struct{}),
	}
}

// Subscribe registers for one project's events. The returned cancel
// function must be called to release the subscription.
func (h *Hub) Subscribe(projectID string) (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	h.mu.Lock()
	if h.subs[projectID] == nil {
		h.subs[projectID] = make(map[chan Event]struct{})
	}
	h.subs[projectID][ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if set, ok := h.subs[projectID]; ok {
			delete(set, ch)
			if len(set) == 0 {
				delete(h.subs, projectID)
			}
		}
		h.mu.Unlock()
		close(ch)
	}

	return ch, cancel
}

// Publish delivers an event to the project's current subscribers
func (h *Hub) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subs[ev.ProjectID] {
		select {
		case ch <- ev:
		default:
			slog.Debug("dropping event for slow subscriber",
				"project_id", ev.ProjectID,
				"type", ev.Type,
			)
		}
	}
}
