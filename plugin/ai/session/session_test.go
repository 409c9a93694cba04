package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func mustCreate(t *testing.T, store Store, id string) *Session {
	t.Helper()
	sess := NewSession(id, "task for "+id, nil, 0)
	require.NoError(t, store.Create(sess))
	return sess
}

func TestSession_LockTurnSerializes(t *testing.T) {
	sess := NewSession("s1", "task", nil, 0)

	unlock, err := sess.LockTurn(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = sess.LockTurn(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	unlock2, err := sess.LockTurn(context.Background())
	require.NoError(t, err)
	unlock2()
}

func TestSession_LockTurnIsPerSession(t *testing.T) {
	a := NewSession("a", "task", nil, 0)
	b := NewSession("b", "task", nil, 0)

	unlockA, err := a.LockTurn(context.Background())
	require.NoError(t, err)
	defer unlockA()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	unlockB, err := b.LockTurn(ctx)
	require.NoError(t, err)
	unlockB()
}
