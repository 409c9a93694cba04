package session

import (
	"context"
	"time"

	"github.com/hrygo/docinsight/plugin/ai/rag"
)

// Session is the unit of conversation state created by one ingestion.
// Task and Index never change after creation.
type Session struct {
	ID        string
	Task      string
	Index     rag.Searcher
	Passages  int
	CreatedAt time.Time

	turn chan struct{}
}

// NewSession creates an unpublished session.
func NewSession(id, task string, index rag.Searcher, passages int) *Session {
	return &Session{
		ID:        id,
		Task:      task,
		Index:     index,
		Passages:  passages,
		CreatedAt: time.Now(),
		turn:      make(chan struct{}, 1),
	}
}

// LockTurn waits until no other turn is running on this session. The
// returned unlock func must be called on every exit path of the turn.
func (s *Session) LockTurn(ctx context.Context) (unlock func(), err error) {
	select {
	case s.turn <- struct{}{}:
		return func() { <-s.turn }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
