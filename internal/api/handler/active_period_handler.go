package handler

import (
	"github.com/gin-gonic/gin"

	"academic-period/backend/internal/dto"
	"academic-period/backend/internal/service"
	"academic-period/backend/pkg/response"
)

// ActivePeriodHandler 全局当前学期 HTTP 处理器
type ActivePeriodHandler struct {
	activeSvc service.ActivePeriodService
}

// NewActivePeriodHandler 创建 ActivePeriodHandler
func NewActivePeriodHandler(activeSvc service.ActivePeriodService) *ActivePeriodHandler {
	return &ActivePeriodHandler{activeSvc: activeSvc}
}

// GetActivePeriod 获取全局当前学期
// GET /api/v1/active-period
func (h *ActivePeriodHandler) GetActivePeriod(c *gin.Context) {
	resp, err := h.activeSvc.Get(c.Request.Context())
	if err != nil {
		handleLifecycleError(c, err)
		return
	}
	response.OK(c, resp)
}

// SetActivePeriod 切换全局当前学期
// PUT /api/v1/active-period
func (h *ActivePeriodHandler) SetActivePeriod(c *gin.Context) {
	var req dto.SetActivePeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, 17101, "学期标识无效，应形如 FIRST-2025", err)
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	resp, err := h.activeSvc.Set(c.Request.Context(), &req, callerID)
	if err != nil {
		handleLifecycleError(c, err)
		return
	}
	response.OK(c, resp)
}

// ResolvePeriod 学期解析（字面量 / 日期 / current）
// GET /api/v1/periods/resolve?input=2025-09-01
func (h *ActivePeriodHandler) ResolvePeriod(c *gin.Context) {
	input := c.DefaultQuery("input", "current")
	response.OK(c, h.activeSvc.Resolve(input))
}
