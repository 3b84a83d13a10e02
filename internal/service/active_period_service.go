package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"academic-period/backend/internal/dto"
	"academic-period/backend/internal/model"
	"academic-period/backend/internal/repository"
)

// ActivePeriodService 全局当前学期业务接口
type ActivePeriodService interface {
	Get(ctx context.Context) (*dto.ActivePeriodResponse, error)
	Set(ctx context.Context, req *dto.SetActivePeriodRequest, callerID string) (*dto.ActivePeriodResponse, error)
	Resolve(input string) *dto.PeriodResolveResponse
}

type activePeriodService struct {
	repo     *repository.Repository
	resolver *PeriodResolver
	now      func() time.Time
	logger   *zap.Logger
}

// NewActivePeriodService 创建 ActivePeriodService 实例
func NewActivePeriodService(repo *repository.Repository, resolver *PeriodResolver, now func() time.Time, logger *zap.Logger) ActivePeriodService {
	if now == nil {
		now = time.Now
	}
	return &activePeriodService{repo: repo, resolver: resolver, now: now, logger: logger}
}

// ────────────────────── Get ──────────────────────

func (s *activePeriodService) Get(ctx context.Context) (*dto.ActivePeriodResponse, error) {
	meta, err := s.repo.ActivePeriod.Get(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			p := s.resolver.Resolve(CurrentPeriodInput).Period
			return &dto.ActivePeriodResponse{
				ActivePeriod: p.Key(),
				AcademicYear: p.AcademicYear(),
				Derived:      true,
			}, nil
		}
		s.logger.Error("读取全局当前学期失败", zap.Error(err))
		return nil, err
	}

	p, ok := model.ParsePeriodKey(meta.ActivePeriod)
	if !ok {
		s.logger.Error("metadata.json 中的学期标识无法解析", zap.String("active_period", meta.ActivePeriod))
		return nil, ErrStateCorrupted
	}
	updatedAt := meta.UpdatedAt
	return &dto.ActivePeriodResponse{
		ActivePeriod: p.Key(),
		AcademicYear: p.AcademicYear(),
		UpdatedAt:    &updatedAt,
		UpdatedBy:    meta.UpdatedBy,
	}, nil
}

// ────────────────────── Set ──────────────────────

func (s *activePeriodService) Set(ctx context.Context, req *dto.SetActivePeriodRequest, callerID string) (*dto.ActivePeriodResponse, error) {
	p, ok := model.ParsePeriodKey(req.Period)
	if !ok {
		return nil, ErrPeriodInvalid
	}

	meta := &model.GlobalMetadata{
		ActivePeriod: p.Key(),
		UpdatedAt:    s.now().UTC(),
		UpdatedBy:    callerID,
	}
	if err := s.repo.ActivePeriod.Save(ctx, meta); err != nil {
		s.logger.Error("保存全局当前学期失败", zap.String("period", p.Key()), zap.Error(err))
		return nil, err
	}

	s.logger.Info("全局当前学期已切换", zap.String("period", p.Key()), zap.String("actor", callerID))

	return &dto.ActivePeriodResponse{
		ActivePeriod: p.Key(),
		AcademicYear: p.AcademicYear(),
		UpdatedAt:    &meta.UpdatedAt,
		UpdatedBy:    callerID,
	}, nil
}

// ────────────────────── Resolve ──────────────────────

func (s *activePeriodService) Resolve(input string) *dto.PeriodResolveResponse {
	res := s.resolver.Resolve(input)
	if !res.Valid {
		return &dto.PeriodResolveResponse{Valid: false, Input: input}
	}
	return &dto.PeriodResolveResponse{
		Valid:        true,
		Input:        input,
		Period:       res.Period.Key(),
		SemesterCode: string(res.Period.Semester),
		CohortYear:   res.Period.CohortYear,
		AcademicYear: res.AcademicYear,
	}
}
