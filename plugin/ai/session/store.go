package session

import (
	"log/slog"
	"time"

	"github.com/hrygo/docinsight/plugin/ai/cache"
)

const (
	// DefaultCapacity bounds the number of live sessions.
	DefaultCapacity = 1000
	// DefaultIdleTTL is how long a session survives without activity.
	DefaultIdleTTL = 2 * time.Hour
)

// StoreConfig holds configuration for the in-memory store.
type StoreConfig struct {
	Capacity int           // Maximum live sessions (default: 1000)
	IdleTTL  time.Duration // Idle expiry, negative disables it (default: 2h)
}

// DefaultStoreConfig returns the default store configuration.
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		Capacity: DefaultCapacity,
		IdleTTL:  DefaultIdleTTL,
	}
}

// record pairs a session with its history so both are published and
// evicted together.
type record struct {
	session *Session
	history *history
}

// memoryStore implements Store on an LRU with idle expiry.
type memoryStore struct {
	entries *cache.LRU[string, *record]
}

// NewMemoryStore creates an empty store.
func NewMemoryStore(config StoreConfig) Store {
	return newMemoryStore(config, time.Now)
}

func newMemoryStore(config StoreConfig, now func() time.Time) *memoryStore {
	if config.Capacity <= 0 {
		config.Capacity = DefaultCapacity
	}
	if config.IdleTTL == 0 {
		config.IdleTTL = DefaultIdleTTL
	}

	return &memoryStore{
		entries: cache.NewLRU(config.Capacity, config.IdleTTL,
			cache.WithEvictCallback(func(id string, r *record, reason cache.EvictReason) {
				slog.Info("session evicted",
					"session_id", id,
					"reason", reason.String(),
					"age", now().Sub(r.session.CreatedAt).Round(time.Second))
			}),
			cache.WithClock[string, *record](now),
		),
	}
}

// Create publishes a session.
func (s *memoryStore) Create(sess *Session) error {
	if !s.entries.Add(sess.ID, &record{session: sess, history: newHistory(sess.Task)}) {
		return ErrSessionExists
	}
	return nil
}

// Get returns a session by id.
func (s *memoryStore) Get(id string) (*Session, error) {
	r, ok := s.entries.Get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return r.session, nil
}

// History returns a copy of the session's turns.
func (s *memoryStore) History(id string) ([]Turn, error) {
	r, ok := s.entries.Get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return r.history.snapshot(), nil
}

// AppendExchange commits one completed turn.
func (s *memoryStore) AppendExchange(id, userText, assistantText string) error {
	r, ok := s.entries.Get(id)
	if !ok {
		return ErrSessionNotFound
	}
	r.history.appendExchange(userText, assistantText)
	return nil
}

// AppendUnanswered records a user turn left without a reply.
func (s *memoryStore) AppendUnanswered(id, userText string) error {
	r, ok := s.entries.Get(id)
	if !ok {
		return ErrSessionNotFound
	}
	r.history.appendUser(userText)
	return nil
}

// Truncate applies the retention window.
func (s *memoryStore) Truncate(id string, keep int) (int, error) {
	r, ok := s.entries.Peek(id)
	if !ok {
		return 0, ErrSessionNotFound
	}
	return r.history.truncate(keep), nil
}

// Evict removes a session.
func (s *memoryStore) Evict(id string) error {
	if !s.entries.Remove(id) {
		return ErrSessionNotFound
	}
	return nil
}

// CleanupExpired removes idle sessions.
func (s *memoryStore) CleanupExpired() int {
	return s.entries.CleanupExpired()
}

// Len returns the number of sessions.
func (s *memoryStore) Len() int {
	return s.entries.Len()
}

var _ Store = (*memoryStore)(nil)
