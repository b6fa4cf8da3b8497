package audit

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Action classifies what kind of access an audit entry records.
type Action string

const (
	ActionRead  Action = "READ"
	ActionWrite Action = "WRITE"
	ActionAdmin Action = "ADMIN"
)

// Valid reports whether the action is one of the known values.
func (a Action) Valid() bool {
	switch a {
	case ActionRead, ActionWrite, ActionAdmin:
		return true
	}
	return false
}

// Entry maps to the audit_log table. Entries are append-only; nothing in the
// service updates or deletes them.
type Entry struct {
	ID        uuid.UUID              `db:"id" json:"id"`
	ActorID   string                 `db:"actor_id" json:"actor_id"`
	Action    Action                 `db:"action" json:"action"`
	Resource  string                 `db:"resource" json:"resource"`
	Timestamp time.Time              `db:"timestamp" json:"timestamp"`
	Details   map[string]interface{} `db:"details" json:"details,omitempty"`
}

// Validate checks the entry before it is appended.
func (e *Entry) Validate() error {
	if !e.Action.Valid() {
		return fmt.Errorf("invalid audit action %q", e.Action)
	}
	if e.Resource == "" {
		return fmt.Errorf("resource is required")
	}
	return nil
}
