package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"academic-period/backend/internal/model"
	"academic-period/backend/internal/repository"
)

// ═══════════════════════════════════════════════════════════
// 内存版学业数据源
// ═══════════════════════════════════════════════════════════

type memAcademic struct {
	mu         sync.Mutex
	students   []model.Student
	activities []model.Activity
	regs       []model.Registration
	attendance []model.Attendance
	teachers   map[string]string // user_id -> class_id
	err        error
	lookups    int
}

func newMemAcademic() *memAcademic {
	return &memAcademic{teachers: make(map[string]string)}
}

func (m *memAcademic) ListRoster(_ context.Context, classID string) ([]model.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := []model.Student{}
	for _, s := range m.students {
		if s.ClassID == classID && s.Enrolled {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memAcademic) ListActivitiesByPeriod(_ context.Context, periodKey string) ([]model.Activity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Activity{}
	for _, a := range m.activities {
		if a.PeriodKey == periodKey {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memAcademic) ListRegistrations(_ context.Context, studentIDs, activityIDs []string) ([]model.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ac := toSet(studentIDs), toSet(activityIDs)
	out := []model.Registration{}
	for _, r := range m.regs {
		if st[r.StudentID] && ac[r.ActivityID] {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memAcademic) ListAttendance(_ context.Context, studentIDs, activityIDs []string) ([]model.Attendance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ac := toSet(studentIDs), toSet(activityIDs)
	out := []model.Attendance{}
	for _, a := range m.attendance {
		if st[a.StudentID] && ac[a.ActivityID] {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memAcademic) FindClassByUser(_ context.Context, userID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups++
	for _, s := range m.students {
		if s.UserID == userID {
			return s.ClassID, nil
		}
	}
	if classID, ok := m.teachers[userID]; ok {
		return classID, nil
	}
	return "", repository.ErrNotFound
}

func (m *memAcademic) setRegistrationStatus(id, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.regs {
		if m.regs[i].RegistrationID == id {
			m.regs[i].Status = status
		}
	}
}

func (m *memAcademic) addAttendance(a model.Attendance) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attendance = append(m.attendance, a)
}

func toSet(ids []string) map[string]bool {
	s := make(map[string]bool, len(ids))
	for _, id := range ids {
		s[id] = true
	}
	return s
}

// ── 固定全局学期 / 可控时钟 ──

type fixedActive struct {
	period model.PeriodIdentity
}

func (f fixedActive) ActivePeriod(context.Context) (model.PeriodIdentity, error) {
	return f.period, nil
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{now: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// ═══════════════════════════════════════════════════════════
// 测试环境
// ═══════════════════════════════════════════════════════════

const (
	testClass = "C"
	testAdmin = "admin-1"
)

var (
	first2025  = model.PeriodIdentity{Semester: model.SemesterFirst, CohortYear: 2025}
	second2024 = model.PeriodIdentity{Semester: model.SemesterSecond, CohortYear: 2024}
)

type testEnv struct {
	dir       string
	clock     *fakeClock
	source    *memAcademic
	repo      *repository.Repository
	resolver  *PeriodResolver
	snapshots SnapshotService
	lifecycle LifecycleService
	gate      WriteGate
}

// newTestEnv 全局当前学期固定为 FIRST-2025，时钟为 2025-09-15 10:00 UTC
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dir := t.TempDir()
	clock := newFakeClock(time.Date(2025, 9, 15, 10, 0, 0, 0, time.UTC))
	src := seedAcademic()
	active := fixedActive{period: first2025}

	repo := &repository.Repository{
		Lifecycle:    repository.NewLifecycleRepo(dir, active, true),
		Snapshot:     repository.NewSnapshotRepo(dir),
		ActivePeriod: repository.NewActivePeriodRepo(dir, clock.Now),
		Academic:     src,
	}
	resolver := NewPeriodResolver(clock.Now)
	logger := zap.NewNop()

	snapshots := NewSnapshotService(repo, src, resolver, clock.Now, logger)
	lifecycle := NewLifecycleService(repo, active, snapshots, resolver, LifecycleOptions{Now: clock.Now}, logger)
	gate := NewWriteGate(repo, active, src, resolver, logger)

	return &testEnv{
		dir:       dir,
		clock:     clock,
		source:    src,
		repo:      repo,
		resolver:  resolver,
		snapshots: snapshots,
		lifecycle: lifecycle,
		gate:      gate,
	}
}

// seedAcademic 班级 C：学生 s1/s2（s9 已退学）；班级 D：学生 s3
// FIRST-2025 活动 a1/a2，SECOND-2024 活动 old1；所有报名均已处理
func seedAcademic() *memAcademic {
	m := newMemAcademic()
	ts := time.Date(2025, 9, 10, 8, 0, 0, 0, time.UTC)
	m.students = []model.Student{
		{StudentID: "s2", UserID: "u-s2", ClassID: testClass, Name: "李四", Enrolled: true},
		{StudentID: "s1", UserID: "u-s1", ClassID: testClass, Name: "张三", Enrolled: true},
		{StudentID: "s9", UserID: "u-s9", ClassID: testClass, Name: "退学生", Enrolled: false},
		{StudentID: "s3", UserID: "u-s3", ClassID: "D", Name: "王五", Enrolled: true},
	}
	m.activities = []model.Activity{
		{ActivityID: "a2", Title: "运动会", PeriodKey: "FIRST-2025", CreatedAt: ts},
		{ActivityID: "a1", Title: "迎新晚会", PeriodKey: "FIRST-2025", CreatedAt: ts},
		{ActivityID: "old1", Title: "春季植树", PeriodKey: "SECOND-2024", CreatedAt: ts},
	}
	m.regs = []model.Registration{
		{RegistrationID: "r2", StudentID: "s2", ActivityID: "a1", Status: model.RegistrationRejected, CreatedAt: ts},
		{RegistrationID: "r1", StudentID: "s1", ActivityID: "a1", Status: model.RegistrationApproved, CreatedAt: ts},
		// 其他班级 / 其他学期的待处理报名不在软锁检查范围内
		{RegistrationID: "r3", StudentID: "s3", ActivityID: "a1", Status: model.RegistrationPending, CreatedAt: ts},
		{RegistrationID: "r4", StudentID: "s1", ActivityID: "old1", Status: model.RegistrationPending, CreatedAt: ts},
	}
	m.attendance = []model.Attendance{
		{AttendanceID: "t1", StudentID: "s1", ActivityID: "a1", Status: "present", RecordedAt: ts},
	}
	m.teachers["u-teacher"] = testClass
	return m
}
