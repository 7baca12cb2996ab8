package audit

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradedesk/internal/core"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testMeta() core.SessionMeta {
	return core.SessionMeta{
		Market:         "crypto",
		Instrument:     "BTC-USDT",
		InitialBalance: 10000,
		StartTime:      time.Now(),
	}
}

func TestStore_EnsureSessionIdempotent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.EnsureSession(ctx, "sess-1", testMeta()))
	require.NoError(t, store.EnsureSession(ctx, "sess-1", testMeta()))

	n, err := store.SessionCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStore_AppendAndReadBack(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.EnsureSession(ctx, "sess-1", testMeta()))

	recs := []core.DecisionRecord{
		{
			SessionID: "sess-1",
			StepID:    core.StepSystemInit,
			Phase:     core.PhasePreMarket,
			Output:    map[string]any{"balance": 10000.0},
			Status:    core.StatusSuccess,
			Timestamp: time.Now(),
		},
		{
			SessionID: "sess-1",
			StepID:    core.StepMonitoring,
			Phase:     core.PhaseActiveTrading,
			Output:    map[string]any{"error": "gateway down"},
			Status:    core.StatusError,
			Timestamp: time.Now(),
		},
	}
	for _, rec := range recs {
		require.NoError(t, store.AppendDecision(ctx, rec))
	}

	got, err := store.Decisions(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, core.StepSystemInit, got[0].StepID)
	assert.Equal(t, core.PhasePreMarket, got[0].Phase)
	assert.Equal(t, 10000.0, got[0].Output["balance"])
	assert.Equal(t, core.StatusError, got[1].Status)
	assert.Equal(t, "gateway down", got[1].Output["error"])
}

func TestStore_NilOutputStoredAsEmpty(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.EnsureSession(ctx, "sess-1", testMeta()))

	require.NoError(t, store.AppendDecision(ctx, core.DecisionRecord{
		SessionID: "sess-1",
		StepID:    core.StepContingency,
		Phase:     core.PhasePreMarket,
		Status:    core.StatusSuccess,
		Timestamp: time.Now(),
	}))

	got, err := store.Decisions(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Empty(t, got[0].Output)
}

func TestStore_DecisionsIsolatedPerSession(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.EnsureSession(ctx, "sess-1", testMeta()))
	require.NoError(t, store.EnsureSession(ctx, "sess-2", testMeta()))

	require.NoError(t, store.AppendDecision(ctx, core.DecisionRecord{
		SessionID: "sess-1", StepID: core.StepAudit, Phase: core.PhasePreMarket,
		Status: core.StatusSuccess, Timestamp: time.Now(),
	}))

	got, err := store.Decisions(ctx, "sess-2")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestOpen_CreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "audit.db")
	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.Close())
}
