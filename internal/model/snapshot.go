package model

import (
	"encoding/json"
	"time"
)

// SnapshotPayload 软锁时刻的去规范化导出
// 各切片按主键排序，保证序列化结果稳定
type SnapshotPayload struct {
	ClassID       string         `json:"class_id"`
	Period        string         `json:"period"`
	Students      []Student      `json:"students"`
	Activities    []Activity     `json:"activities"`
	Registrations []Registration `json:"registrations"`
	Attendance    []Attendance   `json:"attendance"`
}

// Snapshot 快照文档 — 对应 <root>/<class>/<period>/snapshot.json
// Payload 保留原始字节，校验时直接对其重算摘要
type Snapshot struct {
	SnapshotID string          `json:"snapshot_id"`
	ClassID    string          `json:"class_id"`
	Period     string          `json:"period"`
	TakenAt    time.Time       `json:"taken_at"`
	TakenBy    string          `json:"taken_by"`
	Algorithm  string          `json:"algorithm"` // sha256
	Checksum   string          `json:"checksum"`
	Payload    json.RawMessage `json:"payload"`
}
