package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"academic-period/backend/internal/dto"
	"academic-period/backend/internal/model"
	"academic-period/backend/internal/repository"
	pkgerrors "academic-period/backend/pkg/errors"
)

// ── 学期生命周期模块业务错误 ──

var (
	// 输入错误
	ErrClassIDRequired = errors.New("班级ID不能为空")
	ErrPeriodInvalid   = errors.New("学期标识无效")
	ErrClassIDInvalid  = repository.ErrInvalidClassID

	// 非法状态流转
	ErrAlreadyLocked        = errors.New("该学期已锁定")
	ErrPendingRegistrations = errors.New("存在未处理的报名，无法软锁")
	ErrGraceExpired         = errors.New("宽限期已过，无法回滚")
	ErrNotSoftLocked        = errors.New("当前状态不可回滚")

	// 存储损坏（致命，需要人工介入）
	ErrStateCorrupted = pkgerrors.ErrStorageCorrupted
)

// DefaultGraceHours 软锁默认宽限期（小时）
const DefaultGraceHours = 72

// LifecycleService 学期生命周期状态机接口
//
// 状态图：
//
//	ACTIVE ──proposeClose──▶ CLOSING ──softLock──▶ LOCKED_SOFT ──hardLock──▶ LOCKED_HARD
//	  │ ▲                     │  ▲                   │                          (终态)
//	  │ └─────rollback────────┘  └───proposeClose────┤
//	  │ ▲                                            │
//	  │ └──────────rollback (宽限期内)───────────────┘
//	  └──softLock / hardLock（任意非终态均可硬锁）
type LifecycleService interface {
	GetStatus(ctx context.Context, classID, period string) (*dto.LifecycleResponse, error)
	ProposeClose(ctx context.Context, classID, period string, req *dto.TransitionRequest, callerID string) (*dto.LifecycleResponse, error)
	SoftLock(ctx context.Context, classID, period string, req *dto.SoftLockRequest, callerID string) (*dto.LifecycleResponse, error)
	Rollback(ctx context.Context, classID, period string, req *dto.TransitionRequest, callerID string) (*dto.LifecycleResponse, error)
	HardLock(ctx context.Context, classID, period string, req *dto.TransitionRequest, callerID string) (*dto.LifecycleResponse, error)
}

// LifecycleOptions 状态机可选参数
type LifecycleOptions struct {
	DefaultGraceHours int
	Now               func() time.Time
}

type lifecycleService struct {
	repo       *repository.Repository
	active     ActivePeriodProvider
	snapshots  SnapshotService
	resolver   *PeriodResolver
	locks      *keyedMutex
	graceHours int
	now        func() time.Time
	logger     *zap.Logger
}

// NewLifecycleService 创建 LifecycleService 实例
func NewLifecycleService(
	repo *repository.Repository,
	active ActivePeriodProvider,
	snapshots SnapshotService,
	resolver *PeriodResolver,
	opts LifecycleOptions,
	logger *zap.Logger,
) LifecycleService {
	if opts.DefaultGraceHours <= 0 {
		opts.DefaultGraceHours = DefaultGraceHours
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &lifecycleService{
		repo:       repo,
		active:     active,
		snapshots:  snapshots,
		resolver:   resolver,
		locks:      newKeyedMutex(),
		graceHours: opts.DefaultGraceHours,
		now:        opts.Now,
		logger:     logger,
	}
}

// ────────────────────── GetStatus ──────────────────────

func (s *lifecycleService) GetStatus(ctx context.Context, classID, period string) (*dto.LifecycleResponse, error) {
	if classID == "" {
		return nil, ErrClassIDRequired
	}

	var p model.PeriodIdentity
	if period == "" {
		active, err := s.active.ActivePeriod(ctx)
		if err != nil {
			s.logger.Error("读取全局当前学期失败", zap.Error(err))
			return nil, err
		}
		p = active
	} else {
		res := s.resolver.Resolve(period)
		if !res.Valid {
			return nil, ErrPeriodInvalid
		}
		p = res.Period
	}

	rec, err := s.repo.Lifecycle.Get(ctx, classID, p)
	if err != nil {
		s.logStoreError(classID, p, err)
		return nil, err
	}
	return toLifecycleResponse(rec), nil
}

// ────────────────────── ProposeClose ──────────────────────

func (s *lifecycleService) ProposeClose(ctx context.Context, classID, period string, req *dto.TransitionRequest, callerID string) (*dto.LifecycleResponse, error) {
	return s.transition(ctx, "propose_close", classID, period, callerID, reasonOf(req),
		func(rec *model.LifecycleRecord, now time.Time) (bool, error) {
			switch rec.State {
			case model.StateClosing:
				return false, nil // 幂等
			case model.StateLockedHard:
				return false, ErrAlreadyLocked
			case model.StateLockedSoft:
				// 宽限期已过：不得经 CLOSING 绕回 ACTIVE
				if rec.GraceUntil == nil || !now.Before(*rec.GraceUntil) {
					return false, ErrGraceExpired
				}
			}
			// ACTIVE | 宽限期内的 LOCKED_SOFT
			rec.State = model.StateClosing
			rec.ProposedBy = &callerID
			clearLock(rec)
			return true, nil
		})
}

// ────────────────────── SoftLock ──────────────────────

func (s *lifecycleService) SoftLock(ctx context.Context, classID, period string, req *dto.SoftLockRequest, callerID string) (*dto.LifecycleResponse, error) {
	graceHours := s.graceHours
	reason := ""
	if req != nil {
		if req.GraceHours > 0 {
			graceHours = req.GraceHours
		}
		reason = req.Reason
	}

	// 快照先于记录落盘；记录写入失败时恢复旧快照
	var undoSnapshot func() error
	return s.transitionWithUndo(ctx, "soft_lock", classID, period, callerID, reason, &undoSnapshot,
		func(rec *model.LifecycleRecord, now time.Time) (bool, error) {
			if rec.State != model.StateActive && rec.State != model.StateClosing {
				return false, ErrAlreadyLocked
			}

			// 检查清单：不得存在待处理报名
			pending, err := s.snapshots.PendingRegistrations(ctx, classID, rec.Period)
			if err != nil {
				return false, err
			}
			if len(pending) > 0 {
				return false, fmt.Errorf("%w: %d 条待处理", ErrPendingRegistrations, len(pending))
			}

			snap, undo, err := s.snapshots.Stage(ctx, classID, rec.Period, callerID)
			if err != nil {
				return false, err
			}
			undoSnapshot = undo

			soft := model.LockSoft
			graceUntil := now.Add(time.Duration(graceHours) * time.Hour)
			rec.State = model.StateLockedSoft
			rec.LockLevel = &soft
			rec.GraceUntil = &graceUntil
			rec.ClosedBy = &callerID
			rec.ClosedAt = &now
			rec.SnapshotChecksum = &snap.Checksum
			return true, nil
		})
}

// ────────────────────── Rollback ──────────────────────

func (s *lifecycleService) Rollback(ctx context.Context, classID, period string, req *dto.TransitionRequest, callerID string) (*dto.LifecycleResponse, error) {
	return s.transition(ctx, "rollback", classID, period, callerID, reasonOf(req),
		func(rec *model.LifecycleRecord, now time.Time) (bool, error) {
			switch rec.State {
			case model.StateClosing:
				// 管理员兜底：CLOSING 可无条件回到 ACTIVE
			case model.StateLockedSoft:
				if rec.GraceUntil == nil || !now.Before(*rec.GraceUntil) {
					return false, ErrGraceExpired
				}
			default:
				return false, ErrNotSoftLocked
			}
			rec.State = model.StateActive
			clearLock(rec)
			return true, nil
		})
}

// ────────────────────── HardLock ──────────────────────

func (s *lifecycleService) HardLock(ctx context.Context, classID, period string, req *dto.TransitionRequest, callerID string) (*dto.LifecycleResponse, error) {
	return s.transition(ctx, "hard_lock", classID, period, callerID, reasonOf(req),
		func(rec *model.LifecycleRecord, now time.Time) (bool, error) {
			if rec.State.Terminal() {
				return false, ErrAlreadyLocked
			}
			hard := model.LockHard
			rec.State = model.StateLockedHard
			rec.LockLevel = &hard
			rec.GraceUntil = nil
			if rec.ClosedBy == nil {
				rec.ClosedBy = &callerID
				rec.ClosedAt = &now
			}
			return true, nil
		})
}

// ── 内部辅助方法 ──

// mutateFunc 在记录副本上执行状态变更；changed=false 表示无需落盘（幂等）
type mutateFunc func(rec *model.LifecycleRecord, now time.Time) (changed bool, err error)

// transition 状态流转公共骨架：加锁 → 读取 → 变更副本 → 版本 +1 → 条件写入
// 任何失败都不会写盘，版本保持不变
func (s *lifecycleService) transition(ctx context.Context, op, classID, period, actor, reason string, mutate mutateFunc) (*dto.LifecycleResponse, error) {
	return s.transitionWithUndo(ctx, op, classID, period, actor, reason, nil, mutate)
}

// transitionWithUndo mutate 可通过 undo 登记已落盘的副作用，记录写入失败时在同一把锁内撤销
func (s *lifecycleService) transitionWithUndo(ctx context.Context, op, classID, period, actor, reason string, undo *func() error, mutate mutateFunc) (*dto.LifecycleResponse, error) {
	if classID == "" {
		return nil, ErrClassIDRequired
	}
	res := s.resolver.Resolve(period)
	if !res.Valid {
		return nil, ErrPeriodInvalid
	}
	p := res.Period

	unlock := s.locks.Lock(classID + "/" + p.Key())
	defer unlock()

	current, err := s.repo.Lifecycle.Get(ctx, classID, p)
	if err != nil {
		s.logStoreError(classID, p, err)
		return nil, err
	}

	now := s.now()
	next := current.Clone()
	changed, err := mutate(next, now)
	if err != nil {
		s.logger.Info("状态流转被拒绝",
			zap.String("op", op),
			zap.String("class_id", classID),
			zap.String("period", p.Key()),
			zap.String("state", string(current.State)),
			zap.String("actor", actor),
			zap.Error(err),
		)
		return nil, err
	}
	if !changed {
		return toLifecycleResponse(current), nil
	}

	next.Version = current.Version + 1
	next.History = append(next.History, model.TransitionEntry{
		State:     next.State,
		Timestamp: now,
		Actor:     actor,
		Reason:    reason,
	})

	if err := s.repo.Lifecycle.PutIfVersion(ctx, classID, p, next, current.Version); err != nil {
		s.logger.Error("写入生命周期记录失败",
			zap.String("op", op),
			zap.String("class_id", classID),
			zap.String("period", p.Key()),
			zap.Error(err),
		)
		if undo != nil && *undo != nil {
			if uerr := (*undo)(); uerr != nil {
				s.logger.Error("撤销已落盘的副作用失败，需要人工处理",
					zap.String("op", op),
					zap.String("class_id", classID),
					zap.String("period", p.Key()),
					zap.Error(uerr),
				)
			}
		}
		return nil, err
	}

	s.logger.Info("状态流转完成",
		zap.String("op", op),
		zap.String("class_id", classID),
		zap.String("period", p.Key()),
		zap.String("from", string(current.State)),
		zap.String("to", string(next.State)),
		zap.Int("version", next.Version),
		zap.String("actor", actor),
	)
	return toLifecycleResponse(next), nil
}

func (s *lifecycleService) logStoreError(classID string, p model.PeriodIdentity, err error) {
	if errors.Is(err, ErrStateCorrupted) {
		s.logger.Error("生命周期记录已损坏，需要人工处理",
			zap.String("class_id", classID), zap.String("period", p.Key()), zap.Error(err))
		return
	}
	s.logger.Error("读取生命周期记录失败",
		zap.String("class_id", classID), zap.String("period", p.Key()), zap.Error(err))
}

// clearLock 清除锁相关字段（graceUntil 只在 SOFT 期间存在）
func clearLock(rec *model.LifecycleRecord) {
	rec.LockLevel = nil
	rec.GraceUntil = nil
	rec.ClosedBy = nil
	rec.ClosedAt = nil
}

func reasonOf(req *dto.TransitionRequest) string {
	if req == nil {
		return ""
	}
	return req.Reason
}

func toLifecycleResponse(rec *model.LifecycleRecord) *dto.LifecycleResponse {
	resp := &dto.LifecycleResponse{
		ClassID:          rec.ClassID,
		Period:           rec.Period.Key(),
		AcademicYear:     rec.Period.AcademicYear(),
		State:            string(rec.State),
		Writable:         rec.State.Writable(),
		ProposedBy:       rec.ProposedBy,
		ClosedBy:         rec.ClosedBy,
		ClosedAt:         rec.ClosedAt,
		GraceUntil:       rec.GraceUntil,
		Version:          rec.Version,
		SnapshotChecksum: rec.SnapshotChecksum,
		History:          make([]dto.TransitionEntryResponse, 0, len(rec.History)),
	}
	if rec.LockLevel != nil {
		level := string(*rec.LockLevel)
		resp.LockLevel = &level
	}
	for _, h := range rec.History {
		resp.History = append(resp.History, dto.TransitionEntryResponse{
			State:     string(h.State),
			Timestamp: h.Timestamp,
			Actor:     h.Actor,
			Reason:    h.Reason,
		})
	}
	return resp
}
