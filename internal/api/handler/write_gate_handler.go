package handler

import (
	"github.com/gin-gonic/gin"

	"academic-period/backend/internal/dto"
	"academic-period/backend/internal/service"
	"academic-period/backend/pkg/response"
)

// WriteGateHandler 写入门控 HTTP 处理器
type WriteGateHandler struct {
	gate service.WriteGate
}

// NewWriteGateHandler 创建 WriteGateHandler
func NewWriteGateHandler(gate service.WriteGate) *WriteGateHandler {
	return &WriteGateHandler{gate: gate}
}

// ClassWritable 查询指定班级学期是否可写
// GET /api/v1/classes/:class_id/periods/:period/writable
func (h *WriteGateHandler) ClassWritable(c *gin.Context) {
	resp, err := h.gate.Evaluate(c.Request.Context(), service.ForClass(c.Param("class_id"), c.Param("period")))
	if err != nil {
		handleLifecycleError(c, err)
		return
	}
	response.OK(c, resp)
}

// MyWritable 查询当前操作人所属班级在指定学期是否可写
// GET /api/v1/me/writable?period=FIRST-2025
func (h *WriteGateHandler) MyWritable(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	resp, err := h.gate.Evaluate(c.Request.Context(), service.ForActor(userID, c.Query("period")))
	if err != nil {
		handleLifecycleError(c, err)
		return
	}
	response.OK(c, resp)
}

// Check 业务系统写入前调用；拒绝时返回 423
// POST /api/v1/write-gate/check
func (h *WriteGateHandler) Check(c *gin.Context) {
	var req dto.WriteCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, 10001, "参数校验失败", err)
		return
	}

	scope := service.ForClass(req.ClassID, req.Period)
	if req.ClassID == "" {
		scope = service.ForActor(req.UserID, req.Period)
	}

	if err := h.gate.CheckWritable(c.Request.Context(), scope); err != nil {
		handleLifecycleError(c, err)
		return
	}
	response.OK(c, gin.H{"writable": true})
}
