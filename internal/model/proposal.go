// package model contains the canonical entities shared by the Command Center
// proposal pipeline: the ProcessEvent row, its status vocabulary, operator
// actions, and the fetch filter.
package model

import (
	"fmt"
	"time"
)

// Status is the normalized lifecycle label of a ProcessEvent. The backend
// owns the raw vocabulary; anything we do not recognize maps to StatusUnknown
// instead of failing.
type Status string

const (
	StatusPending    Status = "pending"
	StatusStarted    Status = "started"
	StatusProcessing Status = "processing"
	StatusApproved   Status = "approved"
	StatusCompleted  Status = "completed"
	StatusRejected   Status = "rejected"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
	StatusUnknown    Status = "unknown"
)

// ParseStatus normalizes a raw backend status label. Unrecognized labels
// (including the empty string) become StatusUnknown.
func ParseStatus(raw string) Status {
	switch Status(raw) {
	case StatusPending, StatusStarted, StatusProcessing, StatusApproved,
		StatusCompleted, StatusRejected, StatusFailed, StatusCancelled:
		return Status(raw)
	default:
		return StatusUnknown
	}
}

// ProcessEvent is a proposal surfaced by the upstream AI pipeline, awaiting
// or having received a human decision. Metadata is carried opaquely; the
// store never interprets it beyond display.
type ProcessEvent struct {
	ID         string                 `json:"id"`
	WorkflowID string                 `json:"workflow_id,omitempty"`
	Status     string                 `json:"status"`
	EventName  string                 `json:"event_name"`
	EventType  string                 `json:"event_type"`
	UserID     string                 `json:"user_id"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
}

// TargetWorkflowID returns the orchestration instance this proposal belongs
// to. When the row carries no workflow_id, a deterministic fallback is
// derived from the proposal id so both sides of the system agree without
// extra coordination.
func (e ProcessEvent) TargetWorkflowID() string {
	if e.WorkflowID != "" {
		return e.WorkflowID
	}
	return "workflow-" + e.ID
}

// StatusClass returns the normalized status of the row.
func (e ProcessEvent) StatusClass() Status {
	return ParseStatus(e.Status)
}

// Action is an operator decision on a proposal.
type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
)

// ParseAction validates a raw action label.
func ParseAction(raw string) (Action, error) {
	switch Action(raw) {
	case ActionApprove, ActionReject:
		return Action(raw), nil
	default:
		return "", fmt.Errorf("unknown action %q", raw)
	}
}

// SignalName is the workflow signal the action translates to.
func (a Action) SignalName() string {
	if a == ActionApprove {
		return "approve_signal"
	}
	return "reject_signal"
}

// TargetStatus is the status label the backend records for the action.
// These are the labels the workflow engine itself writes, so the optimistic
// local update converges with the authoritative realtime push.
func (a Action) TargetStatus() string {
	if a == ActionApprove {
		return string(StatusCompleted)
	}
	return string(StatusFailed)
}

// Filter narrows a proposal fetch. Zero-valued fields are inactive.
type Filter struct {
	Status    string `json:"status,omitempty"`
	EventType string `json:"eventType,omitempty"`
	Search    string `json:"search,omitempty"`
}

// IsZero reports whether no criteria are active.
func (f Filter) IsZero() bool {
	return f.Status == "" && f.EventType == "" && f.Search == ""
}

// FilterPatch is a partial filter change. Nil fields leave the current
// value untouched; pointers to empty strings clear it.
type FilterPatch struct {
	Status    *string
	EventType *string
	Search    *string
}

// Apply merges the patch into f and returns the result.
func (p FilterPatch) Apply(f Filter) Filter {
	if p.Status != nil {
		f.Status = *p.Status
	}
	if p.EventType != nil {
		f.EventType = *p.EventType
	}
	if p.Search != nil {
		f.Search = *p.Search
	}
	return f
}
