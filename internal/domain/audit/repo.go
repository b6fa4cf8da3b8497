package audit

import (
	"context"
)

// Sink is the append-only destination for audit entries. Implementations
// must never mutate or remove previously appended entries.
type Sink interface {
	Append(ctx context.Context, e *Entry) error
}

// Repository adds the query surface used by the audit-log endpoint.
type Repository interface {
	Sink
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Entry, int, error)
}
