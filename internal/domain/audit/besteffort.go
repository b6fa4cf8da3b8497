package audit

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// BestEffort wraps a Sink so that a slow or failing audit backend can never
// block or fail the caller. Failures degrade to a structured error log.
type BestEffort struct {
	sink    Sink
	logger  zerolog.Logger
	timeout time.Duration
}

// NewBestEffort wraps sink with a bounded timeout and error swallowing.
func NewBestEffort(sink Sink, logger zerolog.Logger, timeout time.Duration) *BestEffort {
	return &BestEffort{sink: sink, logger: logger, timeout: timeout}
}

// Append writes the entry, logging instead of propagating any failure.
// It always returns nil.
func (b *BestEffort) Append(ctx context.Context, e *Entry) error {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	if err := b.sink.Append(ctx, e); err != nil {
		b.logger.Error().
			Err(err).
			Str("resource", e.Resource).
			Str("action", string(e.Action)).
			Msg("audit append failed")
	}
	return nil
}
