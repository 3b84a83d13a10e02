package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"academic-period/backend/internal/service"
	"academic-period/backend/pkg/response"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// SnapshotHandler 快照对账与导出 HTTP 处理器
type SnapshotHandler struct {
	snapshotSvc service.SnapshotService
	exportSvc   service.ExportService
}

// NewSnapshotHandler 创建 SnapshotHandler
func NewSnapshotHandler(snapshotSvc service.SnapshotService, exportSvc service.ExportService) *SnapshotHandler {
	return &SnapshotHandler{snapshotSvc: snapshotSvc, exportSvc: exportSvc}
}

// Verify 快照对账：重算摘要并与当前数据比对
// GET /api/v1/classes/:class_id/periods/:period/snapshot/verify
func (h *SnapshotHandler) Verify(c *gin.Context) {
	resp, err := h.snapshotSvc.Verify(c.Request.Context(), c.Param("class_id"), c.Param("period"))
	if err != nil {
		handleLifecycleError(c, err)
		return
	}
	response.OK(c, resp)
}

// Export 导出快照为 Excel
// GET /api/v1/classes/:class_id/periods/:period/snapshot/export
func (h *SnapshotHandler) Export(c *gin.Context) {
	buf, filename, err := h.exportSvc.ExportSnapshot(c.Request.Context(), c.Param("class_id"), c.Param("period"))
	if err != nil {
		if errors.Is(err, service.ErrExportGenerateFail) {
			response.InternalError(c)
			return
		}
		handleLifecycleError(c, err)
		return
	}

	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.PathEscape(filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
