package repository

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"academic-period/backend/internal/model"
	pkgerrors "academic-period/backend/pkg/errors"
)

// ActivePeriodRepository 全局当前学期（metadata.json）数据访问接口
type ActivePeriodRepository interface {
	Get(ctx context.Context) (*model.GlobalMetadata, error)
	Save(ctx context.Context, meta *model.GlobalMetadata) error
	// ActivePeriod 返回当前全局学期；metadata 不存在时按当前日期推导
	ActivePeriod(ctx context.Context) (model.PeriodIdentity, error)
}

type activePeriodRepo struct {
	fs  *fileStore
	now func() time.Time
}

// NewActivePeriodRepo 创建 ActivePeriodRepository 实例
func NewActivePeriodRepo(rootDir string, now func() time.Time) ActivePeriodRepository {
	if now == nil {
		now = time.Now
	}
	return &activePeriodRepo{fs: newFileStore(rootDir), now: now}
}

func (r *activePeriodRepo) path() string {
	return filepath.Join(r.fs.root, metadataFileName)
}

func (r *activePeriodRepo) Get(_ context.Context) (*model.GlobalMetadata, error) {
	var meta model.GlobalMetadata
	if err := r.fs.readJSON(r.path(), &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (r *activePeriodRepo) Save(_ context.Context, meta *model.GlobalMetadata) error {
	if _, ok := model.ParsePeriodKey(meta.ActivePeriod); !ok {
		return fmt.Errorf("非法的学期标识 %q", meta.ActivePeriod)
	}
	unlock := r.fs.lock(r.path())
	defer unlock()
	return r.fs.writeJSON(r.path(), meta)
}

func (r *activePeriodRepo) ActivePeriod(ctx context.Context) (model.PeriodIdentity, error) {
	meta, err := r.Get(ctx)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return model.PeriodFromDate(r.now()), nil
		}
		return model.PeriodIdentity{}, err
	}
	p, ok := model.ParsePeriodKey(meta.ActivePeriod)
	if !ok {
		return model.PeriodIdentity{}, fmt.Errorf("metadata.json 中 activePeriod=%q 无法解析: %w", meta.ActivePeriod, pkgerrors.ErrStorageCorrupted)
	}
	return p, nil
}
