package history

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentiomcp/internal/db"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.Open(context.Background(), filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return NewStore(database)
}

func TestStore_RecordAndGet(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	run := &Run{
		Model:      "openai:gpt-4.1",
		Query:      "list all the coins and their price?",
		Servers:    []string{"sentio"},
		Response:   json.RawMessage(`{"output":"ETH"}`),
		StartedAt:  start,
		FinishedAt: start.Add(1500 * time.Millisecond),
	}
	require.NoError(t, s.Record(ctx, run))
	require.NotEmpty(t, run.ID)

	got, err := s.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.Model, got.Model)
	assert.Equal(t, run.Query, got.Query)
	assert.Equal(t, []string{"sentio"}, got.Servers)
	assert.JSONEq(t, `{"output":"ETH"}`, string(got.Response))
	assert.Empty(t, got.Error)
	assert.True(t, start.Equal(got.StartedAt))
	assert.Equal(t, 1500*time.Millisecond, got.Duration())

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_ListNewestFirst(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		started := base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, s.Record(ctx, &Run{
			ID:         string(rune('a' + i)),
			Model:      "m",
			Query:      "q",
			Error:      "boom",
			StartedAt:  started,
			FinishedAt: started.Add(time.Second),
		}))
	}

	runs, err := s.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "c", runs[0].ID)
	assert.Equal(t, "b", runs[1].ID)
	assert.Equal(t, "boom", runs[0].Error)
	assert.Empty(t, runs[0].Servers)
	assert.Nil(t, runs[0].Response)

	all, err := s.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestStore_DuplicateID(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, s.Record(ctx, &Run{ID: "x", Model: "m", Query: "q", StartedAt: now, FinishedAt: now}))
	err := s.Record(ctx, &Run{ID: "x", Model: "m", Query: "q", StartedAt: now, FinishedAt: now})
	assert.ErrorContains(t, err, "recording run x")
}
