package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"academic-period/backend/internal/dto"
	"academic-period/backend/internal/model"
	"academic-period/backend/internal/repository"
)

// ── 快照模块业务错误 ──

var (
	ErrSnapshotNotFound = errors.New("该班级学期尚无快照")
	ErrSnapshotFailed   = errors.New("生成快照失败")
)

const snapshotAlgorithm = "sha256"

// SnapshotService 快照引擎接口
//
// 设计说明：
//   - 软锁前必须生成快照，摘要写入生命周期记录
//   - 序列化顺序稳定（各集合按主键排序），同样的数据必然得到同样的摘要
//   - 漂移检测只在调用 Verify 时发生，不存在后台巡检
type SnapshotService interface {
	// Collect 汇总 班级 × 学期 范围内的全部记录
	Collect(ctx context.Context, classID string, period model.PeriodIdentity) (*model.SnapshotPayload, error)
	// PendingRegistrations 软锁检查清单：范围内仍处于待处理状态的报名
	PendingRegistrations(ctx context.Context, classID string, period model.PeriodIdentity) ([]model.Registration, error)
	// Snapshot 导出、计算摘要并持久化，返回摘要
	Snapshot(ctx context.Context, classID string, period model.PeriodIdentity, actor string) (*dto.SnapshotResponse, error)
	// Stage 同 Snapshot，额外返回撤销函数，供调用方在后续提交失败时恢复旧快照
	Stage(ctx context.Context, classID string, period model.PeriodIdentity, actor string) (*dto.SnapshotResponse, func() error, error)
	// Verify 对账：重算存量快照摘要并与当前数据比对
	Verify(ctx context.Context, classID, period string) (*dto.SnapshotVerifyResponse, error)
}

type snapshotService struct {
	repo     *repository.Repository
	source   AcademicSource
	resolver *PeriodResolver
	now      func() time.Time
	logger   *zap.Logger
}

// NewSnapshotService 创建 SnapshotService 实例
func NewSnapshotService(repo *repository.Repository, source AcademicSource, resolver *PeriodResolver, now func() time.Time, logger *zap.Logger) SnapshotService {
	if now == nil {
		now = time.Now
	}
	return &snapshotService{repo: repo, source: source, resolver: resolver, now: now, logger: logger}
}

// ────────────────────── Collect ──────────────────────

func (s *snapshotService) Collect(ctx context.Context, classID string, period model.PeriodIdentity) (*model.SnapshotPayload, error) {
	students, err := s.source.ListRoster(ctx, classID)
	if err != nil {
		return nil, fmt.Errorf("查询班级名单失败: %w", err)
	}
	activities, err := s.source.ListActivitiesByPeriod(ctx, period.Key())
	if err != nil {
		return nil, fmt.Errorf("查询学期活动失败: %w", err)
	}

	studentIDs := make([]string, 0, len(students))
	for _, st := range students {
		studentIDs = append(studentIDs, st.StudentID)
	}
	activityIDs := make([]string, 0, len(activities))
	for _, a := range activities {
		activityIDs = append(activityIDs, a.ActivityID)
	}

	var (
		regs       = []model.Registration{}
		attendance = []model.Attendance{}
	)
	if len(studentIDs) > 0 && len(activityIDs) > 0 {
		if regs, err = s.source.ListRegistrations(ctx, studentIDs, activityIDs); err != nil {
			return nil, fmt.Errorf("查询报名记录失败: %w", err)
		}
		if attendance, err = s.source.ListAttendance(ctx, studentIDs, activityIDs); err != nil {
			return nil, fmt.Errorf("查询考勤记录失败: %w", err)
		}
	}

	payload := &model.SnapshotPayload{
		ClassID:       classID,
		Period:        period.Key(),
		Students:      append([]model.Student{}, students...),
		Activities:    append([]model.Activity{}, activities...),
		Registrations: append([]model.Registration{}, regs...),
		Attendance:    append([]model.Attendance{}, attendance...),
	}
	sortPayload(payload)
	return payload, nil
}

func sortPayload(p *model.SnapshotPayload) {
	sort.Slice(p.Students, func(i, j int) bool { return p.Students[i].StudentID < p.Students[j].StudentID })
	sort.Slice(p.Activities, func(i, j int) bool { return p.Activities[i].ActivityID < p.Activities[j].ActivityID })
	sort.Slice(p.Registrations, func(i, j int) bool {
		return p.Registrations[i].RegistrationID < p.Registrations[j].RegistrationID
	})
	sort.Slice(p.Attendance, func(i, j int) bool { return p.Attendance[i].AttendanceID < p.Attendance[j].AttendanceID })
}

// ────────────────────── PendingRegistrations ──────────────────────

func (s *snapshotService) PendingRegistrations(ctx context.Context, classID string, period model.PeriodIdentity) ([]model.Registration, error) {
	payload, err := s.Collect(ctx, classID, period)
	if err != nil {
		return nil, err
	}
	pending := make([]model.Registration, 0)
	for _, r := range payload.Registrations {
		if r.Unresolved() {
			pending = append(pending, r)
		}
	}
	return pending, nil
}

// ────────────────────── Snapshot ──────────────────────

func (s *snapshotService) Snapshot(ctx context.Context, classID string, period model.PeriodIdentity, actor string) (*dto.SnapshotResponse, error) {
	return s.take(ctx, classID, period, actor, func(snap *model.Snapshot) error {
		return s.repo.Snapshot.Save(ctx, snap)
	})
}

func (s *snapshotService) Stage(ctx context.Context, classID string, period model.PeriodIdentity, actor string) (*dto.SnapshotResponse, func() error, error) {
	var undo func() error
	resp, err := s.take(ctx, classID, period, actor, func(snap *model.Snapshot) error {
		u, err := s.repo.Snapshot.Stage(ctx, snap)
		undo = u
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return resp, undo, nil
}

// take 汇总 → 序列化 → 摘要 → persist 落盘
func (s *snapshotService) take(ctx context.Context, classID string, period model.PeriodIdentity, actor string, persist func(*model.Snapshot) error) (*dto.SnapshotResponse, error) {
	payload, err := s.Collect(ctx, classID, period)
	if err != nil {
		s.logger.Error("汇总快照数据失败", zap.String("class_id", classID), zap.String("period", period.Key()), zap.Error(err))
		return nil, err
	}

	raw, checksum, err := encodePayload(payload)
	if err != nil {
		s.logger.Error("序列化快照失败", zap.Error(err))
		return nil, ErrSnapshotFailed
	}

	snap := &model.Snapshot{
		SnapshotID: uuid.New().String(),
		ClassID:    classID,
		Period:     period.Key(),
		TakenAt:    s.now().UTC(),
		TakenBy:    actor,
		Algorithm:  snapshotAlgorithm,
		Checksum:   checksum,
		Payload:    raw,
	}
	if err := persist(snap); err != nil {
		s.logger.Error("保存快照失败", zap.String("class_id", classID), zap.String("period", period.Key()), zap.Error(err))
		return nil, err
	}

	s.logger.Info("快照已生成",
		zap.String("class_id", classID),
		zap.String("period", period.Key()),
		zap.String("checksum", checksum),
		zap.Int("students", len(payload.Students)),
		zap.Int("activities", len(payload.Activities)),
	)

	return &dto.SnapshotResponse{
		SnapshotID: snap.SnapshotID,
		ClassID:    classID,
		Period:     snap.Period,
		Checksum:   checksum,
		TakenAt:    snap.TakenAt,
		Students:   len(payload.Students),
		Activities: len(payload.Activities),
	}, nil
}

// encodePayload 紧凑序列化并计算 SHA-256
func encodePayload(p *model.SnapshotPayload) ([]byte, string, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, "", err
	}
	return raw, digest(raw), nil
}

func digest(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// ────────────────────── Verify ──────────────────────

func (s *snapshotService) Verify(ctx context.Context, classID, period string) (*dto.SnapshotVerifyResponse, error) {
	if classID == "" {
		return nil, ErrClassIDRequired
	}
	res := s.resolver.Resolve(period)
	if !res.Valid {
		return nil, ErrPeriodInvalid
	}

	snap, err := s.repo.Snapshot.Get(ctx, classID, res.Period)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSnapshotNotFound
		}
		s.logger.Error("读取快照失败", zap.String("class_id", classID), zap.String("period", res.Period.Key()), zap.Error(err))
		return nil, err
	}

	rec, err := s.repo.Lifecycle.Get(ctx, classID, res.Period)
	if err != nil {
		s.logger.Error("读取生命周期记录失败", zap.String("class_id", classID), zap.Error(err))
		return nil, err
	}

	// 文件以缩进格式落盘，重算前先还原为紧凑形式
	var compact bytes.Buffer
	if err := json.Compact(&compact, snap.Payload); err != nil {
		return nil, fmt.Errorf("%w: 快照载荷无法解析", ErrStateCorrupted)
	}
	recomputed := digest(compact.Bytes())

	live, err := s.Collect(ctx, classID, res.Period)
	if err != nil {
		return nil, err
	}
	_, liveChecksum, err := encodePayload(live)
	if err != nil {
		return nil, ErrSnapshotFailed
	}

	recordChecksum := ""
	if rec.SnapshotChecksum != nil {
		recordChecksum = *rec.SnapshotChecksum
	}

	result := &dto.SnapshotVerifyResponse{
		ClassID:            classID,
		Period:             res.Period.Key(),
		TakenAt:            snap.TakenAt,
		StoredChecksum:     snap.Checksum,
		RecordChecksum:     recordChecksum,
		RecomputedChecksum: recomputed,
		LiveChecksum:       liveChecksum,
		Intact:             recomputed == snap.Checksum && recordChecksum == snap.Checksum,
		Drifted:            liveChecksum != snap.Checksum,
	}

	if !result.Intact || result.Drifted {
		s.logger.Warn("快照对账不一致",
			zap.String("class_id", classID),
			zap.String("period", res.Period.Key()),
			zap.Bool("intact", result.Intact),
			zap.Bool("drifted", result.Drifted),
		)
	}
	return result, nil
}
