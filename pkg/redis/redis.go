package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"academic-period/backend/config"
)

// Client Redis 客户端封装
// 当前用于操作人→班级缓存与接口限流
type Client struct {
	rdb    *goredis.Client
	logger *zap.Logger
}

// NewClient 创建 Redis 连接并执行 Ping 健康检查
func NewClient(cfg *config.RedisConfig, logger *zap.Logger) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("Redis 连接失败: %w", err)
	}

	logger.Info("Redis 连接成功", zap.String("addr", cfg.Addr))

	return &Client{rdb: rdb, logger: logger}, nil
}

// NewFromClient 包装已有连接（测试或共享连接池场景）
func NewFromClient(rdb *goredis.Client, logger *zap.Logger) *Client {
	return &Client{rdb: rdb, logger: logger}
}

// ── 操作人班级缓存 ──

const actorClassPrefix = "lifecycle:actor_class:"

// noClassMarker 负缓存标记：操作人无班级归属
const noClassMarker = "-"

// ErrCacheMiss 缓存未命中
var ErrCacheMiss = errors.New("缓存未命中")

// GetActorClass 读取缓存；hasClass=false 表示已缓存“无归属”
func (c *Client) GetActorClass(ctx context.Context, userID string) (classID string, hasClass bool, err error) {
	v, err := c.rdb.Get(ctx, actorClassPrefix+userID).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return "", false, ErrCacheMiss
		}
		return "", false, err
	}
	if v == noClassMarker {
		return "", false, nil
	}
	return v, true, nil
}

// SetActorClass 写入缓存；classID 为空时写入负缓存
func (c *Client) SetActorClass(ctx context.Context, userID, classID string, ttl time.Duration) error {
	if classID == "" {
		classID = noClassMarker
	}
	return c.rdb.Set(ctx, actorClassPrefix+userID, classID, ttl).Err()
}

// ── 限流 ──

// CheckRateLimit 滑动窗口限流，返回是否允许本次请求
func (c *Client) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now()
	member := fmt.Sprintf("%d", now.UnixNano())
	minScore := fmt.Sprintf("%d", now.Add(-window).UnixNano())

	pipe := c.rdb.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", minScore)
	card := pipe.ZCard(ctx, key)
	pipe.ZAdd(ctx, key, goredis.Z{Score: float64(now.UnixNano()), Member: member})
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	return card.Val() < int64(limit), nil
}

// Close 关闭 Redis 连接
func (c *Client) Close() error {
	return c.rdb.Close()
}
