package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"academic-period/backend/internal/model"
	pkgerrors "academic-period/backend/pkg/errors"
)

func TestActivePeriodRepo_DerivedWhenMissing(t *testing.T) {
	now := func() time.Time { return time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC) }
	repo := NewActivePeriodRepo(t.TempDir(), now)

	_, err := repo.Get(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)

	p, err := repo.ActivePeriod(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "SECOND-2025", p.Key())
}

func TestActivePeriodRepo_SaveAndRead(t *testing.T) {
	repo := NewActivePeriodRepo(t.TempDir(), nil)
	ctx := context.Background()

	meta := &model.GlobalMetadata{ActivePeriod: "FIRST-2026", UpdatedAt: time.Now().UTC(), UpdatedBy: "admin"}
	require.NoError(t, repo.Save(ctx, meta))

	p, err := repo.ActivePeriod(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.PeriodIdentity{Semester: model.SemesterFirst, CohortYear: 2026}, p)

	assert.Error(t, repo.Save(ctx, &model.GlobalMetadata{ActivePeriod: "bogus"}))
}

func TestActivePeriodRepo_Corrupted(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "metadata.json"), `{"activePeriod":"FALL-2025"}`)

	_, err := NewActivePeriodRepo(dir, nil).ActivePeriod(context.Background())
	assert.ErrorIs(t, err, pkgerrors.ErrStorageCorrupted)
}
