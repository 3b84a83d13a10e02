package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"academic-period/backend/internal/model"
)

// AcademicRepository 学业记录只读数据访问接口
// 本服务不负责这些记录的增删改，仅用于快照与软锁检查清单
type AcademicRepository interface {
	ListRoster(ctx context.Context, classID string) ([]model.Student, error)
	ListActivitiesByPeriod(ctx context.Context, periodKey string) ([]model.Activity, error)
	ListRegistrations(ctx context.Context, studentIDs, activityIDs []string) ([]model.Registration, error)
	ListAttendance(ctx context.Context, studentIDs, activityIDs []string) ([]model.Attendance, error)
	// FindClassByUser 学生或教师所属班级；无归属返回 ErrNotFound
	FindClassByUser(ctx context.Context, userID string) (string, error)
}

type academicRepo struct {
	db *gorm.DB
}

// NewAcademicRepo 创建 AcademicRepository 实例
func NewAcademicRepo(db *gorm.DB) AcademicRepository {
	return &academicRepo{db: db}
}

func (r *academicRepo) ListRoster(ctx context.Context, classID string) ([]model.Student, error) {
	var students []model.Student
	err := r.db.WithContext(ctx).
		Where("class_id = ? AND enrolled = ?", classID, true).
		Order("student_id ASC").
		Find(&students).Error
	return students, err
}

func (r *academicRepo) ListActivitiesByPeriod(ctx context.Context, periodKey string) ([]model.Activity, error) {
	var activities []model.Activity
	err := r.db.WithContext(ctx).
		Where("period_key = ?", periodKey).
		Order("activity_id ASC").
		Find(&activities).Error
	return activities, err
}

func (r *academicRepo) ListRegistrations(ctx context.Context, studentIDs, activityIDs []string) ([]model.Registration, error) {
	if len(studentIDs) == 0 || len(activityIDs) == 0 {
		return []model.Registration{}, nil
	}
	var regs []model.Registration
	err := r.db.WithContext(ctx).
		Where("student_id IN ? AND activity_id IN ?", studentIDs, activityIDs).
		Order("registration_id ASC").
		Find(&regs).Error
	return regs, err
}

func (r *academicRepo) ListAttendance(ctx context.Context, studentIDs, activityIDs []string) ([]model.Attendance, error) {
	if len(studentIDs) == 0 || len(activityIDs) == 0 {
		return []model.Attendance{}, nil
	}
	var rows []model.Attendance
	err := r.db.WithContext(ctx).
		Where("student_id IN ? AND activity_id IN ?", studentIDs, activityIDs).
		Order("attendance_id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *academicRepo) FindClassByUser(ctx context.Context, userID string) (string, error) {
	var student model.Student
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND enrolled = ?", userID, true).
		First(&student).Error
	if err == nil {
		return student.ClassID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	var teacher model.ClassTeacher
	err = r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&teacher).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrNotFound
		}
		return "", err
	}
	return teacher.ClassID, nil
}
