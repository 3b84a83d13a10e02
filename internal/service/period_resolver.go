package service

import (
	"strings"
	"time"

	"academic-period/backend/internal/model"
)

// CurrentPeriodInput 表示“按当前时间推导”的哨兵输入
const CurrentPeriodInput = "current"

// PeriodResolution 学期解析结果
// Valid=false 表示输入非法，此时 Period 为零值
type PeriodResolution struct {
	Period       model.PeriodIdentity
	AcademicYear string
	Valid        bool
}

// PeriodResolver 学期解析器：字面量 / 日历日期 / "current" → 学期标识
// 纯函数映射，仅依赖注入的时钟
type PeriodResolver struct {
	now func() time.Time
}

// NewPeriodResolver 创建 PeriodResolver；now 为 nil 时使用 time.Now
func NewPeriodResolver(now func() time.Time) *PeriodResolver {
	if now == nil {
		now = time.Now
	}
	return &PeriodResolver{now: now}
}

// Resolve 解析输入，不会 panic；非法输入返回 Valid=false
func (r *PeriodResolver) Resolve(input string) PeriodResolution {
	in := strings.TrimSpace(input)
	if in == "" {
		return PeriodResolution{}
	}
	if strings.EqualFold(in, CurrentPeriodInput) {
		return r.ResolveDate(r.now())
	}
	if p, ok := model.ParsePeriodKey(in); ok {
		return resolved(p)
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, in); err == nil {
			return r.ResolveDate(t)
		}
	}
	return PeriodResolution{}
}

// ResolveDate 按日历日期推导学期
func (r *PeriodResolver) ResolveDate(t time.Time) PeriodResolution {
	return resolved(model.PeriodFromDate(t))
}

func resolved(p model.PeriodIdentity) PeriodResolution {
	return PeriodResolution{Period: p, AcademicYear: p.AcademicYear(), Valid: true}
}
