package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"academic-period/backend/internal/dto"
	"academic-period/backend/internal/model"
)

func TestSnapshot_CollectScope(t *testing.T) {
	env := newTestEnv(t)

	payload, err := env.snapshots.Collect(context.Background(), testClass, first2025)
	require.NoError(t, err)

	ids := func(n int, f func(i int) string) []string {
		out := make([]string, n)
		for i := range out {
			out[i] = f(i)
		}
		return out
	}
	assert.Equal(t, []string{"s1", "s2"}, ids(len(payload.Students), func(i int) string { return payload.Students[i].StudentID }))
	assert.Equal(t, []string{"a1", "a2"}, ids(len(payload.Activities), func(i int) string { return payload.Activities[i].ActivityID }))
	assert.Equal(t, []string{"r1", "r2"}, ids(len(payload.Registrations), func(i int) string { return payload.Registrations[i].RegistrationID }))
	assert.Equal(t, []string{"t1"}, ids(len(payload.Attendance), func(i int) string { return payload.Attendance[i].AttendanceID }))
}

func TestSnapshot_EmptyScopeStillProducesPayload(t *testing.T) {
	env := newTestEnv(t)

	payload, err := env.snapshots.Collect(context.Background(), "EMPTY", first2025)
	require.NoError(t, err)
	assert.Empty(t, payload.Students)
	assert.NotNil(t, payload.Registrations)

	raw, _, err := encodePayload(payload)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"registrations":[]`)
}

func TestSnapshot_ChecksumIsDeterministic(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, err := env.snapshots.Snapshot(ctx, testClass, first2025, testAdmin)
	require.NoError(t, err)

	// 数据源返回顺序变化不影响摘要
	src := env.source
	src.students[0], src.students[1] = src.students[1], src.students[0]
	src.regs[0], src.regs[1] = src.regs[1], src.regs[0]

	env.clock.Advance(time.Hour)
	second, err := env.snapshots.Snapshot(ctx, testClass, first2025, "admin-2")
	require.NoError(t, err)

	assert.Equal(t, first.Checksum, second.Checksum)
	assert.NotEqual(t, first.SnapshotID, second.SnapshotID)
	assert.Equal(t, 2, second.Students)
	assert.Equal(t, 2, second.Activities)
}

func TestSnapshot_RecomputedDigestMatchesRecord(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	rec, err := env.lifecycle.SoftLock(ctx, testClass, "FIRST-2025", &dto.SoftLockRequest{GraceHours: 1}, testAdmin)
	require.NoError(t, err)
	require.NotNil(t, rec.SnapshotChecksum)

	snap, err := env.repo.Snapshot.Get(ctx, testClass, first2025)
	require.NoError(t, err)
	assert.Equal(t, "sha256", snap.Algorithm)
	assert.Equal(t, *rec.SnapshotChecksum, snap.Checksum)

	// 按载荷重新序列化后再计算
	var payload model.SnapshotPayload
	require.NoError(t, json.Unmarshal(snap.Payload, &payload))
	raw, err := json.Marshal(&payload)
	require.NoError(t, err)
	sum := sha256.Sum256(raw)
	assert.Equal(t, *rec.SnapshotChecksum, hex.EncodeToString(sum[:]))
}

func TestSnapshot_Verify(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.snapshots.Verify(ctx, testClass, "FIRST-2025")
	require.ErrorIs(t, err, ErrSnapshotNotFound)

	_, err = env.lifecycle.SoftLock(ctx, testClass, "FIRST-2025", nil, testAdmin)
	require.NoError(t, err)

	res, err := env.snapshots.Verify(ctx, testClass, "FIRST-2025")
	require.NoError(t, err)
	assert.True(t, res.Intact)
	assert.False(t, res.Drifted)
	assert.Equal(t, res.StoredChecksum, res.RecomputedChecksum)
	assert.Equal(t, res.StoredChecksum, res.RecordChecksum)
	assert.Equal(t, res.StoredChecksum, res.LiveChecksum)

	// 锁定后数据漂移：只有主动对账才能发现
	env.source.addAttendance(model.Attendance{
		AttendanceID: "t2", StudentID: "s2", ActivityID: "a2", Status: "late",
		RecordedAt: time.Date(2025, 9, 20, 8, 0, 0, 0, time.UTC),
	})
	res, err = env.snapshots.Verify(ctx, testClass, "FIRST-2025")
	require.NoError(t, err)
	assert.True(t, res.Intact)
	assert.True(t, res.Drifted)
	assert.NotEqual(t, res.StoredChecksum, res.LiveChecksum)
}

func TestSnapshot_VerifyDetectsTamperedFile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.lifecycle.SoftLock(ctx, testClass, "FIRST-2025", nil, testAdmin)
	require.NoError(t, err)

	path := filepath.Join(env.dir, testClass, "FIRST-2025", "snapshot.json")
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	tampered := bytes.Replace(raw, []byte(`"approved"`), []byte(`"rejected"`), 1)
	require.NotEqual(t, raw, tampered)
	require.NoError(t, os.WriteFile(path, tampered, 0o644))

	res, err := env.snapshots.Verify(ctx, testClass, "FIRST-2025")
	require.NoError(t, err)
	assert.False(t, res.Intact)
	assert.NotEqual(t, res.StoredChecksum, res.RecomputedChecksum)
}

func TestSnapshot_PendingRegistrations(t *testing.T) {
	env := newTestEnv(t)
	env.source.setRegistrationStatus("r1", model.RegistrationPending)
	env.source.setRegistrationStatus("r2", model.RegistrationUnresolved)

	pending, err := env.snapshots.PendingRegistrations(context.Background(), testClass, first2025)
	require.NoError(t, err)
	assert.Len(t, pending, 2)
}
