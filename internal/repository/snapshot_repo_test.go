package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"academic-period/backend/internal/model"
)

func TestSnapshotRepo_SaveAndGet(t *testing.T) {
	repo := NewSnapshotRepo(t.TempDir())
	ctx := context.Background()

	_, err := repo.Get(ctx, "C", first2025)
	assert.ErrorIs(t, err, ErrNotFound)

	snap := &model.Snapshot{
		SnapshotID: "snap-1",
		ClassID:    "C",
		Period:     "FIRST-2025",
		TakenAt:    time.Date(2025, 9, 15, 10, 0, 0, 0, time.UTC),
		TakenBy:    "admin",
		Algorithm:  "sha256",
		Checksum:   "abc",
		Payload:    json.RawMessage(`{"class_id":"C","students":[]}`),
	}
	require.NoError(t, repo.Save(ctx, snap))

	got, err := repo.Get(ctx, "C", first2025)
	require.NoError(t, err)
	assert.Equal(t, "snap-1", got.SnapshotID)
	assert.JSONEq(t, string(snap.Payload), string(got.Payload))
}

func TestSnapshotRepo_SaveRejectsBadPeriod(t *testing.T) {
	repo := NewSnapshotRepo(t.TempDir())
	err := repo.Save(context.Background(), &model.Snapshot{ClassID: "C", Period: "nope", Payload: json.RawMessage(`{}`)})
	assert.Error(t, err)
}

func TestSnapshotRepo_StageUndo(t *testing.T) {
	ctx := context.Background()
	newSnap := func(id, checksum string) *model.Snapshot {
		return &model.Snapshot{
			SnapshotID: id,
			ClassID:    "C",
			Period:     "FIRST-2025",
			Algorithm:  "sha256",
			Checksum:   checksum,
			Payload:    json.RawMessage(`{}`),
		}
	}

	t.Run("原本不存在则删除", func(t *testing.T) {
		repo := NewSnapshotRepo(t.TempDir())
		undo, err := repo.Stage(ctx, newSnap("snap-1", "aaa"))
		require.NoError(t, err)

		got, err := repo.Get(ctx, "C", first2025)
		require.NoError(t, err)
		assert.Equal(t, "aaa", got.Checksum)

		require.NoError(t, undo())
		_, err = repo.Get(ctx, "C", first2025)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("恢复旧快照", func(t *testing.T) {
		repo := NewSnapshotRepo(t.TempDir())
		require.NoError(t, repo.Save(ctx, newSnap("snap-1", "aaa")))

		undo, err := repo.Stage(ctx, newSnap("snap-2", "bbb"))
		require.NoError(t, err)
		require.NoError(t, undo())

		got, err := repo.Get(ctx, "C", first2025)
		require.NoError(t, err)
		assert.Equal(t, "snap-1", got.SnapshotID)
		assert.Equal(t, "aaa", got.Checksum)
	})
}
