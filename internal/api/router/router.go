package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"academic-period/backend/config"
	"academic-period/backend/internal/api/handler"
	"academic-period/backend/internal/api/middleware"
	"academic-period/backend/pkg/jwt"
	"academic-period/backend/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	v1.Use(middleware.JWTAuth(jwtMgr))
	v1.Use(middleware.RateLimit(rdb, cfg.RateLimit.Limit, cfg.RateLimit.Window, logger))
	{
		// 学期解析 / 全局当前学期
		v1.GET("/periods/resolve", h.ActivePeriod.ResolvePeriod)
		v1.GET("/active-period", h.ActivePeriod.GetActivePeriod)
		v1.PUT("/active-period", middleware.RoleAuth(jwt.RoleAdmin), h.ActivePeriod.SetActivePeriod)

		// 写入门控
		v1.GET("/me/writable", h.WriteGate.MyWritable)
		v1.POST("/write-gate/check", h.WriteGate.Check)

		// 班级学期生命周期
		classes := v1.Group("/classes/:class_id")
		{
			classes.GET("/lifecycle", h.Lifecycle.GetStatus)

			periods := classes.Group("/periods/:period")
			{
				periods.GET("/writable", h.WriteGate.ClassWritable)

				periods.POST("/propose-close", middleware.RoleAuth(jwt.RoleAdmin, jwt.RoleTeacher), h.Lifecycle.ProposeClose)
				periods.POST("/soft-lock", middleware.RoleAuth(jwt.RoleAdmin), h.Lifecycle.SoftLock)
				periods.POST("/rollback", middleware.RoleAuth(jwt.RoleAdmin), h.Lifecycle.Rollback)
				periods.POST("/hard-lock", middleware.RoleAuth(jwt.RoleAdmin), h.Lifecycle.HardLock)

				periods.GET("/snapshot/verify", middleware.RoleAuth(jwt.RoleAdmin, jwt.RoleTeacher), h.Snapshot.Verify)
				periods.GET("/snapshot/export", middleware.RoleAuth(jwt.RoleAdmin), h.Snapshot.Export)
			}
		}
	}

	return r
}
