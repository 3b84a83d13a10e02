package repository

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"academic-period/backend/internal/model"
	pkgerrors "academic-period/backend/pkg/errors"
)

// ActivePeriodSource 全局当前学期来源（惰性默认值依赖它）
type ActivePeriodSource interface {
	ActivePeriod(ctx context.Context) (model.PeriodIdentity, error)
}

// LifecycleRepository 学期生命周期状态存储接口
type LifecycleRepository interface {
	// Get 读取记录；文件不存在时返回惰性默认记录，文件损坏返回 ErrStorageCorrupted
	Get(ctx context.Context, classID string, period model.PeriodIdentity) (*model.LifecycleRecord, error)
	// Put 无条件写入规范路径
	Put(ctx context.Context, classID string, period model.PeriodIdentity, rec *model.LifecycleRecord) error
	// PutIfVersion 条件写入：磁盘上的版本必须仍为 expectedVersion，否则返回 ErrOptimisticLock
	PutIfVersion(ctx context.Context, classID string, period model.PeriodIdentity, rec *model.LifecycleRecord, expectedVersion int) error
}

type lifecycleRepo struct {
	fs          *fileStore
	active      ActivePeriodSource
	legacyProbe bool
}

// NewLifecycleRepo 创建 LifecycleRepository 实例
func NewLifecycleRepo(rootDir string, active ActivePeriodSource, legacyProbe bool) LifecycleRepository {
	return &lifecycleRepo{fs: newFileStore(rootDir), active: active, legacyProbe: legacyProbe}
}

func (r *lifecycleRepo) statePath(classID string, period model.PeriodIdentity) (string, error) {
	dir, err := r.fs.periodDir(classID, period.Key())
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, stateFileName), nil
}

// load 按 规范键 → 历史键 顺序读取；均不存在时 found=false
func (r *lifecycleRepo) load(classID string, period model.PeriodIdentity) (rec *model.LifecycleRecord, found bool, err error) {
	path, err := r.statePath(classID, period)
	if err != nil {
		return nil, false, err
	}

	candidates := []string{path}
	if r.legacyProbe {
		candidates = append(candidates, filepath.Join(r.fs.root, classID, period.LegacyKey(), stateFileName))
	}

	for _, p := range candidates {
		var stored model.LifecycleRecord
		err := r.fs.readJSON(p, &stored)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, false, err
		}
		if !validState(stored.State) {
			return nil, false, fmt.Errorf("%w: %s: 未知状态 %q", pkgerrors.ErrStorageCorrupted, p, stored.State)
		}
		// 历史文件可能缺少身份字段
		stored.ClassID = classID
		stored.Period = period
		if stored.History == nil {
			stored.History = []model.TransitionEntry{}
		}
		return &stored, true, nil
	}
	return nil, false, nil
}

func validState(s model.LifecycleState) bool {
	switch s {
	case model.StateActive, model.StateClosing, model.StateLockedSoft, model.StateLockedHard:
		return true
	}
	return false
}

func (r *lifecycleRepo) Get(ctx context.Context, classID string, period model.PeriodIdentity) (*model.LifecycleRecord, error) {
	rec, found, err := r.load(classID, period)
	if err != nil {
		return nil, err
	}
	if found {
		return rec, nil
	}

	active, err := r.active.ActivePeriod(ctx)
	if err != nil {
		return nil, fmt.Errorf("读取全局当前学期失败: %w", err)
	}
	return model.NewDefaultRecord(classID, period, active), nil
}

func (r *lifecycleRepo) Put(_ context.Context, classID string, period model.PeriodIdentity, rec *model.LifecycleRecord) error {
	path, err := r.statePath(classID, period)
	if err != nil {
		return err
	}
	unlock := r.fs.lock(path)
	defer unlock()
	return r.fs.writeJSON(path, rec)
}

func (r *lifecycleRepo) PutIfVersion(ctx context.Context, classID string, period model.PeriodIdentity, rec *model.LifecycleRecord, expectedVersion int) error {
	path, err := r.statePath(classID, period)
	if err != nil {
		return err
	}
	unlock := r.fs.lock(path)
	defer unlock()

	current, found, err := r.load(classID, period)
	if err != nil {
		return err
	}
	onDisk := 1 // 惰性默认记录的版本
	if found {
		onDisk = current.Version
	}
	if onDisk != expectedVersion {
		return pkgerrors.ErrOptimisticLock
	}
	return r.fs.writeJSON(path, rec)
}
