package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"academic-period/backend/internal/dto"
	"academic-period/backend/internal/model"
	"academic-period/backend/internal/repository"
)

// ErrPeriodLocked 写入被拒绝：学期已锁定
// 所有被门控的写操作都应以 errors.Is(err, ErrPeriodLocked) 作为一等分支处理
var ErrPeriodLocked = errors.New("该学期已关闭，禁止写入")

// 门控决策来源
const (
	DecisionGlobalActive  = "global_active"
	DecisionState         = "state"
	DecisionUnscopedActor = "unscoped_actor"
)

// LockedError 结构化的写入拒绝信息
type LockedError struct {
	ClassID     string
	PeriodLabel string
	State       model.LifecycleState
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("%s: class=%s period=%s state=%s", ErrPeriodLocked.Error(), e.ClassID, e.PeriodLabel, e.State)
}

// Is 使 errors.Is(err, ErrPeriodLocked) 成立
func (e *LockedError) Is(target error) bool {
	return target == ErrPeriodLocked
}

// WriteScope 门控范围：显式班级，或由操作人解析班级
type WriteScope struct {
	classID string
	userID  string
	period  string
	byActor bool
}

// ForClass 管理员针对已知班级操作
func ForClass(classID, period string) WriteScope {
	return WriteScope{classID: classID, period: period}
}

// ForActor 由操作人所属班级决定范围；period 为空表示全局当前学期
func ForActor(userID, period string) WriteScope {
	return WriteScope{userID: userID, period: period, byActor: true}
}

// WriteGate 写入门控：所有被门控的写操作提交前必须调用
type WriteGate interface {
	// CheckWritable 允许返回 nil；拒绝返回 *LockedError
	CheckWritable(ctx context.Context, scope WriteScope) error
	// Evaluate 返回完整决策，供查询接口使用
	Evaluate(ctx context.Context, scope WriteScope) (*dto.WritableResponse, error)
}

type writeGate struct {
	repo     *repository.Repository
	active   ActivePeriodProvider
	actors   ActorClassResolver
	resolver *PeriodResolver
	logger   *zap.Logger
}

// NewWriteGate 创建 WriteGate 实例
func NewWriteGate(repo *repository.Repository, active ActivePeriodProvider, actors ActorClassResolver, resolver *PeriodResolver, logger *zap.Logger) WriteGate {
	return &writeGate{repo: repo, active: active, actors: actors, resolver: resolver, logger: logger}
}

func (g *writeGate) CheckWritable(ctx context.Context, scope WriteScope) error {
	decision, err := g.Evaluate(ctx, scope)
	if err != nil {
		return err
	}
	if decision.Writable {
		return nil
	}
	g.logger.Debug("写入被门控拒绝",
		zap.String("class_id", decision.ClassID),
		zap.String("period", decision.Period),
		zap.String("state", decision.State),
	)
	return &LockedError{
		ClassID:     decision.ClassID,
		PeriodLabel: decision.Period,
		State:       model.LifecycleState(decision.State),
	}
}

// Evaluate 决策顺序：
//  1. 目标学期等于全局当前学期 → 无条件放行（覆盖班级级锁）
//  2. 操作人无班级归属 → 放行（不在本系统管辖范围）
//  3. ACTIVE / CLOSING 放行，LOCKED_SOFT / LOCKED_HARD 拒绝
func (g *writeGate) Evaluate(ctx context.Context, scope WriteScope) (*dto.WritableResponse, error) {
	if !scope.byActor && scope.classID == "" {
		return nil, ErrClassIDRequired
	}

	active, err := g.active.ActivePeriod(ctx)
	if err != nil {
		g.logger.Error("读取全局当前学期失败", zap.Error(err))
		return nil, err
	}

	target := active
	if scope.period != "" {
		res := g.resolver.Resolve(scope.period)
		if !res.Valid {
			return nil, ErrPeriodInvalid
		}
		target = res.Period
	}

	if target == active {
		return &dto.WritableResponse{
			Writable: true,
			ClassID:  scope.classID,
			Period:   target.Key(),
			Decision: DecisionGlobalActive,
		}, nil
	}

	classID := scope.classID
	if scope.byActor {
		classID, err = g.actors.FindClassByUser(ctx, scope.userID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return &dto.WritableResponse{
					Writable: true,
					Period:   target.Key(),
					Decision: DecisionUnscopedActor,
				}, nil
			}
			g.logger.Error("解析操作人班级失败", zap.String("user_id", scope.userID), zap.Error(err))
			return nil, err
		}
	}

	rec, err := g.repo.Lifecycle.Get(ctx, classID, target)
	if err != nil {
		if errors.Is(err, ErrStateCorrupted) {
			g.logger.Error("生命周期记录已损坏，需要人工处理",
				zap.String("class_id", classID), zap.String("period", target.Key()), zap.Error(err))
		}
		return nil, err
	}

	return &dto.WritableResponse{
		Writable: rec.State.Writable(),
		ClassID:  classID,
		Period:   target.Key(),
		State:    string(rec.State),
		Decision: DecisionState,
	}, nil
}
