// Package conversation implements the session controller: ingesting uploaded
// documents into a new session and running grounded chat turns against it.
package conversation

import (
	"context"

	"github.com/hrygo/docinsight/plugin/ai/session"
	"github.com/hrygo/docinsight/server/internal/observability"
)

// Service is the conversation engine exposed to the HTTP layer.
// Errors are *errors.AIError values from server/internal/errors.
type Service interface {
	// Ingest extracts, chunks and indexes documents, then publishes a new
	// session. Nothing is published when any step fails.
	Ingest(ctx context.Context, task string, docs []Document) (string, error)

	// Turn answers message within the session. Turns on one session are
	// serialized; a failed turn leaves history unchanged.
	Turn(ctx context.Context, sessionID, message string) (string, error)

	// History returns the session's turns in order.
	History(ctx context.Context, sessionID string) ([]session.Turn, error)

	// Evict removes a session and its history.
	Evict(ctx context.Context, sessionID string) error

	// Stats returns operation counters and the number of live sessions.
	Stats() *observability.MetricsSnapshot
}

// Document is one uploaded file.
type Document struct {
	Filename string
	Data     []byte
}
