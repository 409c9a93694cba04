package session

import (
	"sync"
	"time"

	"github.com/lithammer/shortuuid/v4"
)

// DefaultRetention is the number of turns kept before each chat turn.
const DefaultRetention = 6

// history is the ordered turn list of one session.
type history struct {
	mu    sync.RWMutex
	turns []Turn
}

func newTurn(role Role, text string, at time.Time) Turn {
	return Turn{ID: shortuuid.New(), Role: role, Text: text, CreatedAt: at}
}

func newHistory(task string) *history {
	return &history{turns: []Turn{newTurn(RoleUser, task, time.Now())}}
}

func (h *history) snapshot() []Turn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Turn, len(h.turns))
	copy(out, h.turns)
	return out
}

func (h *history) appendExchange(userText, assistantText string) {
	now := time.Now()
	user := newTurn(RoleUser, userText, now)
	assistant := newTurn(RoleAssistant, assistantText, now)

	h.mu.Lock()
	h.turns = append(h.turns, user, assistant)
	h.mu.Unlock()
}

func (h *history) appendUser(text string) {
	user := newTurn(RoleUser, text, time.Now())

	h.mu.Lock()
	h.turns = append(h.turns, user)
	h.mu.Unlock()
}

func (h *history) truncate(keep int) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	start := RetentionStart(h.turns, keep)
	if start == 0 {
		return 0
	}
	kept := make([]Turn, len(h.turns)-start)
	copy(kept, h.turns[start:])
	h.turns = kept
	return start
}

// RetentionStart returns the index of the first turn kept when retaining at
// most keep turns. The window is moved forward so it never opens on an
// assistant reply.
func RetentionStart(turns []Turn, keep int) int {
	if keep <= 0 || len(turns) <= keep {
		return 0
	}
	start := len(turns) - keep
	for start < len(turns) && turns[start].Role != RoleUser {
		start++
	}
	return start
}
