package model

import "time"

// LifecycleState 学期生命周期状态
type LifecycleState string

const (
	StateActive     LifecycleState = "ACTIVE"      // 默认，可写
	StateClosing    LifecycleState = "CLOSING"     // 待结转，仍可写
	StateLockedSoft LifecycleState = "LOCKED_SOFT" // 软锁，宽限期内可回滚
	StateLockedHard LifecycleState = "LOCKED_HARD" // 硬锁，终态
)

// Writable 该状态下是否允许普通写操作
func (s LifecycleState) Writable() bool {
	return s == StateActive || s == StateClosing
}

// Terminal 是否为终态
func (s LifecycleState) Terminal() bool {
	return s == StateLockedHard
}

// LockLevel 锁级别
type LockLevel string

const (
	LockSoft LockLevel = "SOFT"
	LockHard LockLevel = "HARD"
)

// TransitionEntry 状态流转历史（只追加）
type TransitionEntry struct {
	State     LifecycleState `json:"state"`
	Timestamp time.Time      `json:"timestamp"`
	Actor     string         `json:"actor"`
	Reason    string         `json:"reason,omitempty"`
}

// LifecycleRecord 班级 × 学期 的生命周期记录 — 对应 <root>/<class>/<period>/state.json
type LifecycleRecord struct {
	ClassID          string            `json:"class_id"`
	Period           PeriodIdentity    `json:"period"`
	State            LifecycleState    `json:"state"`
	LockLevel        *LockLevel        `json:"lock_level"`
	ProposedBy       *string           `json:"proposed_by"`
	ClosedBy         *string           `json:"closed_by"`
	ClosedAt         *time.Time        `json:"closed_at"`
	GraceUntil       *time.Time        `json:"grace_until"`
	Version          int               `json:"version"`
	SnapshotChecksum *string           `json:"snapshot_checksum"`
	History          []TransitionEntry `json:"history"`
}

// NewDefaultRecord 构造惰性默认记录：当前全局学期为 ACTIVE，其余为 LOCKED_HARD
func NewDefaultRecord(classID string, period PeriodIdentity, activePeriod PeriodIdentity) *LifecycleRecord {
	rec := &LifecycleRecord{
		ClassID: classID,
		Period:  period,
		State:   StateLockedHard,
		Version: 1,
		History: []TransitionEntry{},
	}
	if period == activePeriod {
		rec.State = StateActive
		return rec
	}
	hard := LockHard
	rec.LockLevel = &hard
	return rec
}

// Clone 深拷贝，避免在失败路径上污染调用方持有的记录
func (r *LifecycleRecord) Clone() *LifecycleRecord {
	if r == nil {
		return nil
	}
	c := *r
	c.LockLevel = clonePtr(r.LockLevel)
	c.ProposedBy = clonePtr(r.ProposedBy)
	c.ClosedBy = clonePtr(r.ClosedBy)
	c.ClosedAt = clonePtr(r.ClosedAt)
	c.GraceUntil = clonePtr(r.GraceUntil)
	c.SnapshotChecksum = clonePtr(r.SnapshotChecksum)
	c.History = append([]TransitionEntry(nil), r.History...)
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// GlobalMetadata 全局元数据 — 对应 <root>/metadata.json
type GlobalMetadata struct {
	ActivePeriod string    `json:"activePeriod"`
	UpdatedAt    time.Time `json:"updatedAt"`
	UpdatedBy    string    `json:"updatedBy"`
}
