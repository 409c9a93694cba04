// Package session keeps the process-wide registry of document sessions and
// their conversation histories.
package session

import (
	"errors"
	"time"
)

var (
	// ErrSessionNotFound is returned for unknown, expired or evicted session ids.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExists is returned when publishing an id that is already registered.
	ErrSessionExists = errors.New("session already exists")
)

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one immutable entry of a conversation history.
type Turn struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Store registers sessions and their histories. Sessions become visible only
// once Create returns, and history mutations are atomic with respect to
// concurrent readers.
type Store interface {
	// Create publishes a fully built session with its initial history of a
	// single user turn holding the task.
	Create(sess *Session) error

	// Get returns the session and marks it as recently used.
	Get(id string) (*Session, error)

	// History returns a snapshot of the session's turns in order.
	History(id string) ([]Turn, error)

	// AppendExchange appends a user turn followed by its assistant reply.
	AppendExchange(id, userText, assistantText string) error

	// AppendUnanswered appends a user turn whose reply could not be produced.
	// There is no way to append an assistant turn on its own.
	AppendUnanswered(id, userText string) error

	// Truncate keeps only the most recent keep turns and returns how many
	// were dropped. keep <= 0 leaves the history untouched.
	Truncate(id string, keep int) (int, error)

	// Evict removes the session and its history together.
	Evict(id string) error

	// CleanupExpired removes idle sessions and returns how many were removed.
	CleanupExpired() int

	// Len returns the number of registered sessions.
	Len() int
}
