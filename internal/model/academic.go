package model

import "time"

// ── 被门控的学业记录（只读视图，由外部系统维护）──

// 报名状态
const (
	RegistrationPending    = "pending"
	RegistrationUnresolved = "unresolved"
	RegistrationApproved   = "approved"
	RegistrationRejected   = "rejected"
)

// Student 班级在册学生 — 对应 students
type Student struct {
	StudentID string `gorm:"type:varchar(64);primaryKey"  json:"student_id"`
	UserID    string `gorm:"type:varchar(64);index"       json:"user_id"`
	ClassID   string `gorm:"type:varchar(64);not null;index" json:"class_id"`
	Name      string `gorm:"type:varchar(100);not null"   json:"name"`
	Enrolled  bool   `gorm:"not null;default:true"        json:"enrolled"`
}

func (Student) TableName() string { return "students" }

// ClassTeacher 班主任/任课教师归属 — 对应 class_teachers
type ClassTeacher struct {
	UserID  string `gorm:"type:varchar(64);primaryKey" json:"user_id"`
	ClassID string `gorm:"type:varchar(64);not null"   json:"class_id"`
}

func (ClassTeacher) TableName() string { return "class_teachers" }

// Activity 学期活动 — 对应 activities
type Activity struct {
	ActivityID string    `gorm:"type:varchar(64);primaryKey"          json:"activity_id"`
	Title      string    `gorm:"type:varchar(200);not null"           json:"title"`
	PeriodKey  string    `gorm:"type:varchar(20);not null;index"      json:"period_key"` // 如 FIRST-2025
	CreatedBy  string    `gorm:"type:varchar(64)"                     json:"created_by"`
	CreatedAt  time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"   json:"created_at"`
}

func (Activity) TableName() string { return "activities" }

// Registration 活动报名 — 对应 registrations
type Registration struct {
	RegistrationID string    `gorm:"type:varchar(64);primaryKey"        json:"registration_id"`
	StudentID      string    `gorm:"type:varchar(64);not null;index"    json:"student_id"`
	ActivityID     string    `gorm:"type:varchar(64);not null;index"    json:"activity_id"`
	Status         string    `gorm:"type:varchar(20);not null"          json:"status"` // pending | unresolved | approved | rejected
	CreatedAt      time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Registration) TableName() string { return "registrations" }

// Unresolved 是否处于待处理状态（软锁检查清单）
func (r Registration) Unresolved() bool {
	return r.Status == RegistrationPending || r.Status == RegistrationUnresolved
}

// Attendance 考勤记录 — 对应 attendance
type Attendance struct {
	AttendanceID string    `gorm:"type:varchar(64);primaryKey"     json:"attendance_id"`
	StudentID    string    `gorm:"type:varchar(64);not null;index" json:"student_id"`
	ActivityID   string    `gorm:"type:varchar(64);not null;index" json:"activity_id"`
	Status       string    `gorm:"type:varchar(20);not null"       json:"status"` // present | absent | late | excused
	RecordedAt   time.Time `gorm:"not null"                        json:"recorded_at"`
}

func (Attendance) TableName() string { return "attendance" }
