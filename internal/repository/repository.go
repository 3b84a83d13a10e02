package repository

import (
	"time"

	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	Lifecycle    LifecycleRepository
	Snapshot     SnapshotRepository
	ActivePeriod ActivePeriodRepository
	Academic     AcademicRepository
}

// Options 文件存储相关选项
type Options struct {
	RootDir        string
	LegacyKeyProbe bool
	Now            func() time.Time
}

// NewRepository 创建 Repository 聚合
// 生命周期状态/快照/全局学期走本地文件，学业记录走 PostgreSQL
func NewRepository(db *gorm.DB, opts Options) *Repository {
	active := NewActivePeriodRepo(opts.RootDir, opts.Now)
	return &Repository{
		Lifecycle:    NewLifecycleRepo(opts.RootDir, active, opts.LegacyKeyProbe),
		Snapshot:     NewSnapshotRepo(opts.RootDir),
		ActivePeriod: active,
		Academic:     NewAcademicRepo(db),
	}
}
