package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"academic-period/backend/internal/model"
)

// SnapshotRepository 快照文档数据访问接口
type SnapshotRepository interface {
	// Save 覆盖写入快照（再次软锁时替换旧快照）
	Save(ctx context.Context, snap *model.Snapshot) error
	// Stage 写入快照并返回撤销函数：撤销时恢复写入前的文件内容，原本不存在则删除
	Stage(ctx context.Context, snap *model.Snapshot) (undo func() error, err error)
	Get(ctx context.Context, classID string, period model.PeriodIdentity) (*model.Snapshot, error)
}

type snapshotRepo struct {
	fs *fileStore
}

// NewSnapshotRepo 创建 SnapshotRepository 实例
func NewSnapshotRepo(rootDir string) SnapshotRepository {
	return &snapshotRepo{fs: newFileStore(rootDir)}
}

func (r *snapshotRepo) path(classID string, period model.PeriodIdentity) (string, error) {
	dir, err := r.fs.periodDir(classID, period.Key())
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, snapshotFileName), nil
}

func (r *snapshotRepo) snapshotPath(snap *model.Snapshot) (string, error) {
	period, ok := model.ParsePeriodKey(snap.Period)
	if !ok {
		return "", fmt.Errorf("非法的学期标识 %q", snap.Period)
	}
	return r.path(snap.ClassID, period)
}

func (r *snapshotRepo) Save(_ context.Context, snap *model.Snapshot) error {
	path, err := r.snapshotPath(snap)
	if err != nil {
		return err
	}
	unlock := r.fs.lock(path)
	defer unlock()
	return r.fs.writeJSON(path, snap)
}

func (r *snapshotRepo) Stage(_ context.Context, snap *model.Snapshot) (func() error, error) {
	path, err := r.snapshotPath(snap)
	if err != nil {
		return nil, err
	}
	unlock := r.fs.lock(path)
	defer unlock()

	// 原样保留旧文件字节，损坏的旧快照也能恢复
	prev, err := os.ReadFile(path)
	existed := err == nil
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("读取旧快照 %s 失败: %w", path, err)
	}

	if err := r.fs.writeJSON(path, snap); err != nil {
		return nil, err
	}

	undo := func() error {
		unlock := r.fs.lock(path)
		defer unlock()
		if existed {
			return r.fs.writeBytes(path, prev)
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("删除快照 %s 失败: %w", path, err)
		}
		return nil
	}
	return undo, nil
}

func (r *snapshotRepo) Get(_ context.Context, classID string, period model.PeriodIdentity) (*model.Snapshot, error) {
	path, err := r.path(classID, period)
	if err != nil {
		return nil, err
	}
	var snap model.Snapshot
	if err := r.fs.readJSON(path, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}
