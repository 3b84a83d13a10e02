package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"academic-period/backend/internal/api/middleware"
	"academic-period/backend/internal/dto"
	"academic-period/backend/internal/service"
	pkgerrors "academic-period/backend/pkg/errors"
	"academic-period/backend/pkg/response"
)

// LifecycleHandler 学期生命周期模块 HTTP 处理器
type LifecycleHandler struct {
	lifecycleSvc service.LifecycleService
}

// NewLifecycleHandler 创建 LifecycleHandler
func NewLifecycleHandler(lifecycleSvc service.LifecycleService) *LifecycleHandler {
	return &LifecycleHandler{lifecycleSvc: lifecycleSvc}
}

// GetStatus 查询班级学期生命周期状态（含流转历史）
// GET /api/v1/classes/:class_id/lifecycle?period=FIRST-2025
// period 为空时取全局当前学期
func (h *LifecycleHandler) GetStatus(c *gin.Context) {
	resp, err := h.lifecycleSvc.GetStatus(c.Request.Context(), c.Param("class_id"), c.Query("period"))
	if err != nil {
		handleLifecycleError(c, err)
		return
	}
	response.OK(c, resp)
}

// ProposeClose 提议结转
// POST /api/v1/classes/:class_id/periods/:period/propose-close
func (h *LifecycleHandler) ProposeClose(c *gin.Context) {
	h.simpleTransition(c, h.lifecycleSvc.ProposeClose)
}

// Rollback 回滚到 ACTIVE（CLOSING 无条件；LOCKED_SOFT 须在宽限期内）
// POST /api/v1/classes/:class_id/periods/:period/rollback
func (h *LifecycleHandler) Rollback(c *gin.Context) {
	h.simpleTransition(c, h.lifecycleSvc.Rollback)
}

// HardLock 硬锁（终态）
// POST /api/v1/classes/:class_id/periods/:period/hard-lock
func (h *LifecycleHandler) HardLock(c *gin.Context) {
	h.simpleTransition(c, h.lifecycleSvc.HardLock)
}

// SoftLock 软锁：检查清单 → 快照 → 进入宽限期
// POST /api/v1/classes/:class_id/periods/:period/soft-lock
func (h *LifecycleHandler) SoftLock(c *gin.Context) {
	var req dto.SoftLockRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	resp, err := h.lifecycleSvc.SoftLock(c.Request.Context(), c.Param("class_id"), c.Param("period"), &req, callerID)
	if err != nil {
		handleLifecycleError(c, err)
		return
	}
	response.OK(c, resp)
}

type transitionFunc func(ctx context.Context, classID, period string, req *dto.TransitionRequest, callerID string) (*dto.LifecycleResponse, error)

func (h *LifecycleHandler) simpleTransition(c *gin.Context, fn transitionFunc) {
	var req dto.TransitionRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	resp, err := fn(c.Request.Context(), c.Param("class_id"), c.Param("period"), &req, callerID)
	if err != nil {
		handleLifecycleError(c, err)
		return
	}
	response.OK(c, resp)
}

// bindOptionalJSON 请求体可省略；存在时必须合法
func bindOptionalJSON(c *gin.Context, obj any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(obj); err != nil {
		respondBindError(c, 10001, "参数校验失败", err)
		return false
	}
	return true
}

// respondBindError 请求体超限返回 413，其余按参数错误处理
func respondBindError(c *gin.Context, code int, message string, err error) {
	if middleware.IsBodyTooLarge(err) {
		response.Error(c, http.StatusRequestEntityTooLarge, 10005, "请求体过大")
		return
	}
	response.BadRequest(c, code, message)
}

// handleLifecycleError 生命周期 / 门控 / 快照错误统一映射
// 15xxx 状态机，16xxx 写入门控，17xxx 快照与全局学期
func handleLifecycleError(c *gin.Context, err error) {
	var locked *service.LockedError
	switch {
	case errors.Is(err, service.ErrClassIDRequired), errors.Is(err, service.ErrClassIDInvalid):
		response.BadRequest(c, 15001, "班级ID为空或非法")
	case errors.Is(err, service.ErrPeriodInvalid):
		response.BadRequest(c, 15002, "学期标识无效")
	case errors.Is(err, service.ErrAlreadyLocked):
		response.Error(c, http.StatusConflict, 15003, "该学期已锁定")
	case errors.Is(err, service.ErrPendingRegistrations):
		response.ErrorWithDetails(c, http.StatusConflict, 15004, "存在未处理的报名，无法软锁", err.Error())
	case errors.Is(err, service.ErrGraceExpired):
		response.Error(c, http.StatusConflict, 15005, "宽限期已过，无法回滚")
	case errors.Is(err, service.ErrNotSoftLocked):
		response.Error(c, http.StatusConflict, 15006, "当前状态不可回滚")
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Error(c, http.StatusConflict, 15007, "数据已被其他操作修改，请刷新后重试")
	case errors.As(err, &locked):
		response.Locked(c, 16001, "该学期已关闭，禁止写入", gin.H{
			"class_id": locked.ClassID,
			"period":   locked.PeriodLabel,
			"state":    locked.State,
		})
	case errors.Is(err, service.ErrSnapshotNotFound):
		response.NotFound(c, 17001, "该班级学期尚无快照")
	case errors.Is(err, service.ErrStateCorrupted):
		response.Error(c, http.StatusInternalServerError, 17002, "存储文件已损坏，请联系管理员处理")
	default:
		response.InternalError(c)
	}
}
