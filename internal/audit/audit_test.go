// ABOUTME: Tests for the audit ledger covering record, recent listing,
// ABOUTME: and per-tool aggregation against a temp SQLite file.

package audit

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestLedger(t *testing.T) *Ledger {
	t.Helper()

	ledger, err := Open(filepath.Join(t.TempDir(), "audit.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ledger.Close() })
	return ledger
}

func TestOpen_CreatesParentDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeper", "audit.db")

	ledger, err := Open(path, nil)
	require.NoError(t, err)
	defer ledger.Close()

	assert.FileExists(t, path)
}

func TestLedger_Record_GeneratesIDAndTimestamp(t *testing.T) {
	ledger := setupTestLedger(t)
	ctx := context.Background()

	entry := &Entry{
		ConversationID: "conv-1",
		CallID:         "call_1",
		Tool:           "calculate",
		Status:         "ok",
		Arguments:      map[string]any{"expression": "2+2"},
		DurationMS:     12,
	}

	err := ledger.Record(ctx, entry)
	require.NoError(t, err)

	assert.NotEmpty(t, entry.ID)
	assert.False(t, entry.CreatedAt.IsZero())
}

func TestLedger_ListRecent_NewestFirst(t *testing.T) {
	ledger := setupTestLedger(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i, tool := range []string{"calculate", "get_current_time", "get_weather"} {
		entry := &Entry{
			ConversationID: "conv-1",
			CallID:         "call_" + tool,
			Tool:           tool,
			Status:         "ok",
			DurationMS:     int64(i + 1),
			CreatedAt:      base.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, ledger.Record(ctx, entry))
	}

	entries, err := ledger.ListRecent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, "get_weather", entries[0].Tool)
	assert.Equal(t, "get_current_time", entries[1].Tool)
	assert.Equal(t, "calculate", entries[2].Tool)
}

func TestLedger_ListRecent_RoundTripsFields(t *testing.T) {
	ledger := setupTestLedger(t)
	ctx := context.Background()

	entry := &Entry{
		ConversationID: "conv-9",
		CallID:         "call_9",
		Tool:           "get_weather",
		Status:         "failed",
		Error:          "upstream exploded",
		Arguments:      map[string]any{"location": "Paris", "units": "celsius"},
		DurationMS:     250,
	}
	require.NoError(t, ledger.Record(ctx, entry))

	entries, err := ledger.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	got := entries[0]
	assert.Equal(t, entry.ID, got.ID)
	assert.Equal(t, "conv-9", got.ConversationID)
	assert.Equal(t, "call_9", got.CallID)
	assert.Equal(t, "get_weather", got.Tool)
	assert.Equal(t, "failed", got.Status)
	assert.Equal(t, "upstream exploded", got.Error)
	assert.Equal(t, map[string]any{"location": "Paris", "units": "celsius"}, got.Arguments)
	assert.Equal(t, int64(250), got.DurationMS)
	assert.True(t, got.CreatedAt.Equal(entry.CreatedAt), "created_at should survive the round trip")
}

func TestLedger_ListRecent_RespectsLimit(t *testing.T) {
	ledger := setupTestLedger(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		entry := &Entry{
			ConversationID: "conv-1",
			CallID:         "call",
			Tool:           "calculate",
			Status:         "ok",
			CreatedAt:      base.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, ledger.Record(ctx, entry))
	}

	entries, err := ledger.ListRecent(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	// Zero limit falls back to the default of 100.
	entries, err = ledger.ListRecent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 5)
}

func TestLedger_ListRecent_EmptyLedger(t *testing.T) {
	ledger := setupTestLedger(t)

	entries, err := ledger.ListRecent(context.Background(), 10)
	require.NoError(t, err)

	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestLedger_ToolStats_Aggregates(t *testing.T) {
	ledger := setupTestLedger(t)
	ctx := context.Background()

	records := []Entry{
		{Tool: "calculate", Status: "ok", DurationMS: 10},
		{Tool: "calculate", Status: "failed", Error: "division by zero", DurationMS: 30},
		{Tool: "get_weather", Status: "ok", DurationMS: 20},
	}
	for i := range records {
		records[i].ConversationID = "conv-1"
		records[i].CallID = "call"
		require.NoError(t, ledger.Record(ctx, &records[i]))
	}

	stats, err := ledger.ToolStats(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 2)

	assert.Equal(t, "calculate", stats[0].Tool)
	assert.Equal(t, int64(2), stats[0].Calls)
	assert.Equal(t, int64(1), stats[0].Errors)
	assert.InDelta(t, 20.0, stats[0].AvgDurationMS, 1e-9)

	assert.Equal(t, "get_weather", stats[1].Tool)
	assert.Equal(t, int64(1), stats[1].Calls)
	assert.Equal(t, int64(0), stats[1].Errors)
	assert.InDelta(t, 20.0, stats[1].AvgDurationMS, 1e-9)
}

func TestLedger_ToolStats_EmptyLedger(t *testing.T) {
	ledger := setupTestLedger(t)

	stats, err := ledger.ToolStats(context.Background())
	require.NoError(t, err)

	assert.NotNil(t, stats)
	assert.Empty(t, stats)
}

func TestLedger_Record_AfterCloseFails(t *testing.T) {
	ledger, err := Open(filepath.Join(t.TempDir(), "audit.db"), nil)
	require.NoError(t, err)
	require.NoError(t, ledger.Close())

	err = ledger.Record(context.Background(), &Entry{
		ConversationID: "conv-1",
		CallID:         "call_1",
		Tool:           "calculate",
		Status:         "ok",
	})
	assert.Error(t, err)
}
