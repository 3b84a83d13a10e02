package service

import (
	"context"

	"academic-period/backend/internal/model"
)

// ── 外部协作方接口 ──
// 默认实现为 repository.AcademicRepository（PostgreSQL 只读）

// ActivePeriodProvider 全局当前学期提供方，独立于班级状态机，可单独替换
type ActivePeriodProvider interface {
	ActivePeriod(ctx context.Context) (model.PeriodIdentity, error)
}

// RosterProvider 班级在册学生
type RosterProvider interface {
	ListRoster(ctx context.Context, classID string) ([]model.Student, error)
}

// ActivityProvider 按学期查询活动
type ActivityProvider interface {
	ListActivitiesByPeriod(ctx context.Context, periodKey string) ([]model.Activity, error)
}

// RegistrationProvider 按 学生集合 × 活动集合 查询报名
type RegistrationProvider interface {
	ListRegistrations(ctx context.Context, studentIDs, activityIDs []string) ([]model.Registration, error)
}

// AttendanceProvider 按 学生集合 × 活动集合 查询考勤
type AttendanceProvider interface {
	ListAttendance(ctx context.Context, studentIDs, activityIDs []string) ([]model.Attendance, error)
}

// AcademicSource 快照与软锁检查清单所需的全部只读数据源
type AcademicSource interface {
	RosterProvider
	ActivityProvider
	RegistrationProvider
	AttendanceProvider
}

// ActorClassResolver 根据操作人解析其所属班级；无归属时返回 repository.ErrNotFound
type ActorClassResolver interface {
	FindClassByUser(ctx context.Context, userID string) (string, error)
}
