package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"academic-period/backend/internal/repository"
	"academic-period/backend/pkg/redis"
)

// actorClassCache 操作人班级缓存（由 pkg/redis.Client 实现）
type actorClassCache interface {
	GetActorClass(ctx context.Context, userID string) (string, bool, error)
	SetActorClass(ctx context.Context, userID, classID string, ttl time.Duration) error
}

type cachedActorResolver struct {
	inner  ActorClassResolver
	cache  actorClassCache
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedActorResolver 为 ActorClassResolver 增加 Redis 缓存
// rdb 为 nil 时直接返回 inner（降级运行）
func NewCachedActorResolver(inner ActorClassResolver, rdb *redis.Client, ttl time.Duration, logger *zap.Logger) ActorClassResolver {
	if rdb == nil {
		return inner
	}
	return newCachedActorResolver(inner, rdb, ttl, logger)
}

func newCachedActorResolver(inner ActorClassResolver, cache actorClassCache, ttl time.Duration, logger *zap.Logger) *cachedActorResolver {
	return &cachedActorResolver{inner: inner, cache: cache, ttl: ttl, logger: logger}
}

func (r *cachedActorResolver) FindClassByUser(ctx context.Context, userID string) (string, error) {
	classID, hasClass, err := r.cache.GetActorClass(ctx, userID)
	switch {
	case err == nil && hasClass:
		return classID, nil
	case err == nil:
		return "", repository.ErrNotFound
	case !errors.Is(err, redis.ErrCacheMiss):
		// Redis 出错时降级查库
		r.logger.Warn("读取操作人班级缓存失败", zap.String("user_id", userID), zap.Error(err))
	}

	classID, err = r.inner.FindClassByUser(ctx, userID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return "", err
	}
	if cerr := r.cache.SetActorClass(ctx, userID, classID, r.ttl); cerr != nil {
		r.logger.Warn("写入操作人班级缓存失败", zap.String("user_id", userID), zap.Error(cerr))
	}
	return classID, err
}
