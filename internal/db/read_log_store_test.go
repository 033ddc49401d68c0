package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewReadLogStore_Nil(t *testing.T) {
	assert.Nil(t, NewReadLogStore(nil))

	var rs *ReadLogStore
	assert.Error(t, rs.Record(context.Background(), ReadLogEntry{ThreadID: "t"}))
	_, err := rs.Recent(context.Background(), 5)
	assert.Error(t, err)
}

func TestReadLogStore_RecordAndRecent(t *testing.T) {
	ctx := context.Background()
	rs := NewReadLogStore(openTestStore(t))
	base := time.Date(2025, time.January, 2, 14, 5, 0, 0, time.UTC)

	require.NoError(t, rs.Record(ctx, ReadLogEntry{
		ThreadID: "t1", Subject: "Facture", Sender: "Alice", Success: true, MarkedAt: base,
	}))
	require.NoError(t, rs.Record(ctx, ReadLogEntry{
		ThreadID: "t2", Subject: "Réunion", Sender: "Bob", Success: false, Error: "quota exceeded", MarkedAt: base.Add(time.Minute),
	}))
	require.NoError(t, rs.Record(ctx, ReadLogEntry{
		ThreadID: "t3", MarkedAt: base.Add(2 * time.Minute), Success: true,
	}))

	entries, err := rs.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "t3", entries[0].ThreadID)
	assert.Equal(t, "t2", entries[1].ThreadID)
	assert.False(t, entries[1].Success)
	assert.Equal(t, "quota exceeded", entries[1].Error)
	assert.Equal(t, "Réunion", entries[1].Subject)
	assert.True(t, base.Add(time.Minute).Equal(entries[1].MarkedAt))
}

func TestReadLogStore_Validation(t *testing.T) {
	rs := NewReadLogStore(openTestStore(t))
	assert.ErrorContains(t, rs.Record(context.Background(), ReadLogEntry{ThreadID: "  "}), "thread id")
}

func TestReadLogStore_DefaultTimeAndLimit(t *testing.T) {
	ctx := context.Background()
	rs := NewReadLogStore(openTestStore(t))

	before := time.Now().Add(-time.Second)
	require.NoError(t, rs.Record(ctx, ReadLogEntry{ThreadID: "t1", Success: true}))

	entries, err := rs.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].MarkedAt.After(before))
}

func TestReadLogStore_WasMarked(t *testing.T) {
	ctx := context.Background()
	rs := NewReadLogStore(openTestStore(t))

	require.NoError(t, rs.Record(ctx, ReadLogEntry{ThreadID: "ok", Success: true}))
	require.NoError(t, rs.Record(ctx, ReadLogEntry{ThreadID: "failed", Success: false, Error: "boom"}))

	marked, err := rs.WasMarked(ctx, "ok")
	require.NoError(t, err)
	assert.True(t, marked)

	marked, err = rs.WasMarked(ctx, "failed")
	require.NoError(t, err)
	assert.False(t, marked)
}
