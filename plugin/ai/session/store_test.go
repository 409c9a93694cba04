package session

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_CreateAndGet(t *testing.T) {
	store := NewMemoryStore(DefaultStoreConfig())
	sess := mustCreate(t, store, "s1")

	got, err := store.Get("s1")
	require.NoError(t, err)
	assert.Same(t, sess, got)
	assert.Equal(t, 1, store.Len())

	assert.ErrorIs(t, store.Create(NewSession("s1", "other", nil, 0)), ErrSessionExists)

	_, err = store.Get("nonexistent-id")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMemoryStore_InitialHistory(t *testing.T) {
	store := NewMemoryStore(DefaultStoreConfig())
	mustCreate(t, store, "s1")

	turns, err := store.History("s1")
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, RoleUser, turns[0].Role)
	assert.Equal(t, "task for s1", turns[0].Text)
	assert.NotEmpty(t, turns[0].ID)
}

func TestMemoryStore_AppendExchangeAlternates(t *testing.T) {
	store := NewMemoryStore(DefaultStoreConfig())
	mustCreate(t, store, "s1")

	for i := 0; i < 3; i++ {
		require.NoError(t, store.AppendExchange("s1", fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i)))
	}

	turns, err := store.History("s1")
	require.NoError(t, err)
	require.Len(t, turns, 7)
	for i := 1; i < len(turns); i++ {
		want := RoleUser
		if i%2 == 0 {
			want = RoleAssistant
		}
		assert.Equal(t, want, turns[i].Role, "turn %d", i)
	}
	assert.Equal(t, "q2", turns[5].Text)
	assert.Equal(t, "a2", turns[6].Text)
}

func TestMemoryStore_HistoryIsSnapshot(t *testing.T) {
	store := NewMemoryStore(DefaultStoreConfig())
	mustCreate(t, store, "s1")

	snap, err := store.History("s1")
	require.NoError(t, err)
	snap[0].Text = "mutated"

	require.NoError(t, store.AppendExchange("s1", "q", "a"))
	turns, _ := store.History("s1")
	assert.Equal(t, "task for s1", turns[0].Text)
	assert.Len(t, snap, 1)
}

func TestMemoryStore_UnknownSessionLeavesNoTrace(t *testing.T) {
	store := NewMemoryStore(DefaultStoreConfig())
	mustCreate(t, store, "s1")

	assert.ErrorIs(t, store.AppendExchange("missing", "q", "a"), ErrSessionNotFound)
	_, err := store.Truncate("missing", 6)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = store.History("missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	assert.Equal(t, 1, store.Len())
	turns, _ := store.History("s1")
	assert.Len(t, turns, 1)
}

func TestMemoryStore_AppendUnanswered(t *testing.T) {
	store := NewMemoryStore(DefaultStoreConfig())
	mustCreate(t, store, "s1")

	require.NoError(t, store.AppendUnanswered("s1", "q0"))
	require.NoError(t, store.AppendExchange("s1", "q1", "a1"))

	turns, err := store.History("s1")
	require.NoError(t, err)
	require.Len(t, turns, 4)
	assert.Equal(t, RoleUser, turns[1].Role)
	assert.Equal(t, "q0", turns[1].Text)
	assert.Equal(t, RoleUser, turns[2].Role)
	assert.Equal(t, RoleAssistant, turns[3].Role)

	assert.ErrorIs(t, store.AppendUnanswered("missing", "q"), ErrSessionNotFound)
}

func TestMemoryStore_Truncate(t *testing.T) {
	store := NewMemoryStore(DefaultStoreConfig())
	mustCreate(t, store, "s1")
	for i := 0; i < 4; i++ {
		require.NoError(t, store.AppendExchange("s1", fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i)))
	}

	dropped, err := store.Truncate("s1", DefaultRetention)
	require.NoError(t, err)
	assert.Equal(t, 3, dropped)

	turns, _ := store.History("s1")
	require.Len(t, turns, 6)
	assert.Equal(t, "q1", turns[0].Text)
	assert.Equal(t, RoleUser, turns[0].Role)
	assert.Equal(t, "a3", turns[5].Text)

	dropped, err = store.Truncate("s1", 0)
	require.NoError(t, err)
	assert.Zero(t, dropped)
}

func TestRetentionStart(t *testing.T) {
	turns := func(roles ...Role) []Turn {
		out := make([]Turn, len(roles))
		for i, r := range roles {
			out[i] = Turn{Role: r}
		}
		return out
	}
	u, a := RoleUser, RoleAssistant

	tests := []struct {
		name  string
		turns []Turn
		keep  int
		want  int
	}{
		{"disabled", turns(u, u, a), 0, 0},
		{"shorter than window", turns(u, u, a), 6, 0},
		{"window opens on user", turns(u, u, a, u, a), 2, 3},
		{"window moved past assistant", turns(u, u, a, u, a), 3, 3},
		{"single turn window", turns(u, u, a), 1, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RetentionStart(tt.turns, tt.keep))
		})
	}
}

func TestMemoryStore_Evict(t *testing.T) {
	store := NewMemoryStore(DefaultStoreConfig())
	mustCreate(t, store, "s1")

	require.NoError(t, store.Evict("s1"))
	assert.ErrorIs(t, store.Evict("s1"), ErrSessionNotFound)

	_, err := store.Get("s1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = store.History("s1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, store.AppendExchange("s1", "q", "a"), ErrSessionNotFound)
}

func TestMemoryStore_CapacityEvictsLeastRecentlyUsed(t *testing.T) {
	store := NewMemoryStore(StoreConfig{Capacity: 2, IdleTTL: -1})
	mustCreate(t, store, "a")
	mustCreate(t, store, "b")

	_, err := store.Get("a")
	require.NoError(t, err)
	mustCreate(t, store, "c")

	_, err = store.Get("b")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = store.Get("a")
	assert.NoError(t, err)
	assert.Equal(t, 2, store.Len())
}

func TestMemoryStore_IdleExpiry(t *testing.T) {
	clock := newTestClock()
	store := newMemoryStore(StoreConfig{Capacity: 10, IdleTTL: time.Minute}, clock.Now)
	mustCreate(t, store, "s1")

	clock.Advance(50 * time.Second)
	_, err := store.Get("s1")
	require.NoError(t, err)

	clock.Advance(50 * time.Second)
	_, err = store.History("s1")
	require.NoError(t, err, "activity extends the deadline")

	clock.Advance(61 * time.Second)
	_, err = store.Get("s1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMemoryStore_ConcurrentReadersSeeWholeExchanges(t *testing.T) {
	store := NewMemoryStore(DefaultStoreConfig())
	mustCreate(t, store, "s1")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			_ = store.AppendExchange("s1", "q", "a")
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			turns, err := store.History("s1")
			if err != nil {
				t.Error(err)
				return
			}
			if len(turns)%2 != 1 {
				t.Errorf("observed partial exchange: %d turns", len(turns))
				return
			}
		}
	}()
	wg.Wait()
}
