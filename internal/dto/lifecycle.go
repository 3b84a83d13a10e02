package dto

import "time"

// ── 学期生命周期模块 DTO ──

// TransitionRequest 状态流转请求（提议结转 / 回滚 / 硬锁）
type TransitionRequest struct {
	Reason string `json:"reason" binding:"omitempty,max=500"`
}

// SoftLockRequest 软锁请求
type SoftLockRequest struct {
	GraceHours int    `json:"grace_hours" binding:"omitempty,min=1,max=720"` // 缺省使用配置值（72h）
	Reason     string `json:"reason"      binding:"omitempty,max=500"`
}

// TransitionEntryResponse 状态流转历史项
type TransitionEntryResponse struct {
	State     string    `json:"state"`
	Timestamp time.Time `json:"timestamp"`
	Actor     string    `json:"actor"`
	Reason    string    `json:"reason,omitempty"`
}

// LifecycleResponse 生命周期状态响应
type LifecycleResponse struct {
	ClassID          string                    `json:"class_id"`
	Period           string                    `json:"period"`
	AcademicYear     string                    `json:"academic_year"`
	State            string                    `json:"state"`
	Writable         bool                      `json:"writable"`
	LockLevel        *string                   `json:"lock_level"`
	ProposedBy       *string                   `json:"proposed_by"`
	ClosedBy         *string                   `json:"closed_by"`
	ClosedAt         *time.Time                `json:"closed_at"`
	GraceUntil       *time.Time                `json:"grace_until"`
	Version          int                       `json:"version"`
	SnapshotChecksum *string                   `json:"snapshot_checksum"`
	History          []TransitionEntryResponse `json:"history"`
}

// WritableResponse 写入门控检查结果
type WritableResponse struct {
	Writable bool   `json:"writable"`
	ClassID  string `json:"class_id,omitempty"`
	Period   string `json:"period"`
	State    string `json:"state,omitempty"`
	Decision string `json:"decision"` // global_active | state | unscoped_actor
}

// WriteCheckRequest 业务系统提交写入前的门控校验
// class_id 与 user_id 二选一；period 为空表示全局当前学期
type WriteCheckRequest struct {
	ClassID string `json:"class_id" binding:"required_without=UserID"`
	UserID  string `json:"user_id"  binding:"required_without=ClassID"`
	Period  string `json:"period"   binding:"omitempty,period_key"`
}

// ── 全局当前学期 ──

// SetActivePeriodRequest 设置全局当前学期请求
type SetActivePeriodRequest struct {
	Period string `json:"period" binding:"required,period_key"`
}

// ActivePeriodResponse 全局当前学期响应
type ActivePeriodResponse struct {
	ActivePeriod string     `json:"active_period"`
	AcademicYear string     `json:"academic_year"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
	UpdatedBy    string     `json:"updated_by,omitempty"`
	Derived      bool       `json:"derived"` // metadata 不存在，按当前日期推导
}

// PeriodResolveResponse 学期解析结果
type PeriodResolveResponse struct {
	Valid        bool   `json:"valid"`
	Input        string `json:"input"`
	Period       string `json:"period,omitempty"`
	SemesterCode string `json:"semester_code,omitempty"`
	CohortYear   int    `json:"cohort_year,omitempty"`
	AcademicYear string `json:"academic_year,omitempty"`
}

// ── 快照 ──

// SnapshotResponse 快照生成结果
type SnapshotResponse struct {
	SnapshotID string    `json:"snapshot_id"`
	ClassID    string    `json:"class_id"`
	Period     string    `json:"period"`
	Checksum   string    `json:"checksum"`
	TakenAt    time.Time `json:"taken_at"`
	Students   int       `json:"students"`
	Activities int       `json:"activities"`
}

// SnapshotVerifyResponse 快照对账结果
type SnapshotVerifyResponse struct {
	ClassID            string    `json:"class_id"`
	Period             string    `json:"period"`
	TakenAt            time.Time `json:"taken_at"`
	StoredChecksum     string    `json:"stored_checksum"`      // snapshot.json 内嵌摘要
	RecordChecksum     string    `json:"record_checksum"`      // state.json 中的 snapshot_checksum
	RecomputedChecksum string    `json:"recomputed_checksum"`  // 对快照载荷重算
	LiveChecksum       string    `json:"live_checksum"`        // 对当前数据重新导出
	Intact             bool      `json:"intact"`               // 快照文件未被篡改
	Drifted            bool      `json:"drifted"`              // 锁定后数据发生漂移
}
