package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"academic-period/backend/internal/model"
	"academic-period/backend/internal/repository"
)

// ── 导出模块业务错误 ──

var ErrExportGenerateFail = errors.New("生成 Excel 文件失败")

// ExportService 导出业务接口
//
// 设计说明：
//   - 导出的是软锁时刻持久化的快照，而不是当前数据
//   - 以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response
//   - Sheet：概要 / 学生 / 活动 / 报名 / 考勤
type ExportService interface {
	// ExportSnapshot 导出快照为 Excel
	ExportSnapshot(ctx context.Context, classID, period string) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo     *repository.Repository
	resolver *PeriodResolver
	logger   *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, resolver *PeriodResolver, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, resolver: resolver, logger: logger}
}

const (
	sheetSummary       = "概要"
	sheetStudents      = "学生"
	sheetActivities    = "活动"
	sheetRegistrations = "报名"
	sheetAttendance    = "考勤"
)

func (s *exportService) ExportSnapshot(ctx context.Context, classID, period string) (*bytes.Buffer, string, error) {
	if classID == "" {
		return nil, "", ErrClassIDRequired
	}
	res := s.resolver.Resolve(period)
	if !res.Valid {
		return nil, "", ErrPeriodInvalid
	}

	snap, err := s.repo.Snapshot.Get(ctx, classID, res.Period)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", ErrSnapshotNotFound
		}
		s.logger.Error("读取快照失败", zap.String("class_id", classID), zap.Error(err))
		return nil, "", err
	}

	var payload model.SnapshotPayload
	if err := json.Unmarshal(snap.Payload, &payload); err != nil {
		return nil, "", fmt.Errorf("%w: 快照载荷无法解析", ErrStateCorrupted)
	}

	f := excelize.NewFile()
	defer f.Close()

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	// 概要
	summary := [][]any{
		{"班级", snap.ClassID},
		{"学期", snap.Period},
		{"学年", res.AcademicYear},
		{"快照时间", snap.TakenAt.Format("2006-01-02 15:04:05")},
		{"快照人", snap.TakenBy},
		{"摘要算法", snap.Algorithm},
		{"摘要", snap.Checksum},
	}
	f.SetSheetName("Sheet1", sheetSummary)
	f.SetColWidth(sheetSummary, "A", "A", 12)
	f.SetColWidth(sheetSummary, "B", "B", 70)
	for i, r := range summary {
		f.SetSheetRow(sheetSummary, cell("A", i+1), &r)
	}

	students := make([][]any, 0, len(payload.Students))
	for _, st := range payload.Students {
		students = append(students, []any{st.StudentID, st.Name, st.UserID, yesNo(st.Enrolled)})
	}
	activities := make([][]any, 0, len(payload.Activities))
	for _, a := range payload.Activities {
		activities = append(activities, []any{a.ActivityID, a.Title, a.PeriodKey, a.CreatedBy})
	}
	regs := make([][]any, 0, len(payload.Registrations))
	for _, r := range payload.Registrations {
		regs = append(regs, []any{r.RegistrationID, r.StudentID, r.ActivityID, r.Status})
	}
	attendance := make([][]any, 0, len(payload.Attendance))
	for _, a := range payload.Attendance {
		attendance = append(attendance, []any{a.AttendanceID, a.StudentID, a.ActivityID, a.Status, a.RecordedAt.Format("2006-01-02 15:04")})
	}

	sheets := []struct {
		name   string
		header []any
		rows   [][]any
	}{
		{sheetStudents, []any{"学号", "姓名", "用户ID", "在册"}, students},
		{sheetActivities, []any{"活动ID", "标题", "学期", "创建人"}, activities},
		{sheetRegistrations, []any{"报名ID", "学号", "活动ID", "状态"}, regs},
		{sheetAttendance, []any{"考勤ID", "学号", "活动ID", "状态", "记录时间"}, attendance},
	}
	for _, sh := range sheets {
		if err := writeSheet(f, sh.name, sh.header, sh.rows, headerStyle); err != nil {
			s.logger.Error("写入 Sheet 失败", zap.String("sheet", sh.name), zap.Error(err))
			return nil, "", ErrExportGenerateFail
		}
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("学期快照_%s_%s.xlsx", classID, res.Period.Key())
	return buf, filename, nil
}

// ── 辅助函数 ──

func writeSheet(f *excelize.File, name string, header []any, rows [][]any, headerStyle int) error {
	if _, err := f.NewSheet(name); err != nil {
		return err
	}
	if err := f.SetSheetRow(name, "A1", &header); err != nil {
		return err
	}
	last := colName(len(header) - 1)
	f.SetCellStyle(name, "A1", cell(last, 1), headerStyle)
	f.SetColWidth(name, "A", last, 20)
	for i := range rows {
		if err := f.SetSheetRow(name, cell("A", i+2), &rows[i]); err != nil {
			return err
		}
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "是"
	}
	return "否"
}

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
