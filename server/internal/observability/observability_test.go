package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestContext_LogsBaseFields(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	rc := NewRequestContextWithID(logger, "req-1", OpTurn, "sess-1")
	rc.Info("turn finished", slog.Int64(LogFieldDuration, 12))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "turn finished", entry["msg"])
	assert.Equal(t, "req-1", entry[LogFieldRequestID])
	assert.Equal(t, "sess-1", entry[LogFieldSessionID])
	assert.Equal(t, OpTurn, entry[LogFieldOperation])
	assert.EqualValues(t, 12, entry[LogFieldDuration])
}

func TestRequestContext_ErrorAndNoSession(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	rc := NewRequestContext(logger, OpIngest, "")
	assert.NotEmpty(t, rc.RequestID)
	rc.Error("ingest failed", errors.New("boom"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "boom", entry["error"])
	_, hasSession := entry[LogFieldSessionID]
	assert.False(t, hasSession)
}

func TestRequestContext_FromContext(t *testing.T) {
	rc := NewRequestContextWithID(nil, "req-2", OpTurn, "")
	ctx := WithRequestContext(context.Background(), rc)

	got, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Same(t, rc, got)
	assert.Equal(t, "req-2", RequestID(ctx))

	_, ok = FromContext(context.Background())
	assert.False(t, ok)
	assert.Equal(t, "inbound", RequestID(WithRequestID(context.Background(), "inbound")))
}

func TestMetrics_Snapshot(t *testing.T) {
	m := NewMetrics()
	m.RecordOperation(OpTurn, 10*time.Millisecond, nil)
	m.RecordOperation(OpTurn, 30*time.Millisecond, errors.New("x"))
	m.RecordOperation(OpIngest, 100*time.Millisecond, nil)
	m.RecordTier("synthesize", "structured")
	m.RecordTier("synthesize", "structured")

	snap := m.Snapshot()
	require.Len(t, snap.Operations, 2)
	assert.Equal(t, OpIngest, snap.Operations[0].Name)
	assert.Equal(t, OperationSnapshot{Name: OpTurn, Count: 2, Errors: 1, AverageDurationMs: 20}, snap.Operations[1])
	assert.Equal(t, int64(2), snap.Tiers["synthesize/structured"])
	assert.Equal(t, 50.0, snap.SuccessRate(OpTurn))
	assert.Equal(t, 100.0, snap.SuccessRate("unknown"))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordOperation(OpTurn, time.Second, nil)
	m.RecordTier("contextualize", "plain")
}
