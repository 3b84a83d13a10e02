package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SemesterCode 学期代码
type SemesterCode string

const (
	SemesterFirst  SemesterCode = "FIRST"  // 第一学期（7-11 月）
	SemesterSecond SemesterCode = "SECOND" // 第二学期（12 月 - 次年 4 月）
)

// PeriodIdentity 学期标识（值类型，不可变）
// CohortYear 为学年起始年份：SECOND-2025 覆盖 2025-12 ~ 2026-04
type PeriodIdentity struct {
	Semester   SemesterCode `json:"semester_code"`
	CohortYear int          `json:"cohort_year"`
}

// Key 规范存储键，如 FIRST-2025
func (p PeriodIdentity) Key() string {
	return fmt.Sprintf("%s-%d", p.Semester, p.CohortYear)
}

// LegacyKey 历史版本使用的目录命名，如 2025-FIRST
func (p PeriodIdentity) LegacyKey() string {
	return fmt.Sprintf("%d-%s", p.CohortYear, p.Semester)
}

// AcademicYear 学年标签，如 2025-2026
func (p PeriodIdentity) AcademicYear() string {
	return fmt.Sprintf("%d-%d", p.CohortYear, p.CohortYear+1)
}

// IsZero 是否为零值
func (p PeriodIdentity) IsZero() bool {
	return p.Semester == "" && p.CohortYear == 0
}

func (p PeriodIdentity) String() string { return p.Key() }

// ParsePeriodKey 解析 {FIRST|SECOND}-{4 位年份} 字面量
func ParsePeriodKey(s string) (PeriodIdentity, bool) {
	parts := strings.Split(strings.ToUpper(strings.TrimSpace(s)), "-")
	if len(parts) != 2 {
		return PeriodIdentity{}, false
	}
	code := SemesterCode(parts[0])
	if code != SemesterFirst && code != SemesterSecond {
		return PeriodIdentity{}, false
	}
	if len(parts[1]) != 4 {
		return PeriodIdentity{}, false
	}
	year, err := strconv.Atoi(parts[1])
	if err != nil || year < 1000 {
		return PeriodIdentity{}, false
	}
	return PeriodIdentity{Semester: code, CohortYear: year}, true
}

// PeriodFromDate 按月份区间推导学期
//
//	7-11 月 → 当年 FIRST
//	12 月   → 当年 SECOND
//	1-4 月  → 上一年 SECOND
//	5-6 月  → 假期，默认当年 FIRST
func PeriodFromDate(t time.Time) PeriodIdentity {
	year := t.Year()
	switch m := t.Month(); {
	case m >= time.July && m <= time.November:
		return PeriodIdentity{Semester: SemesterFirst, CohortYear: year}
	case m == time.December:
		return PeriodIdentity{Semester: SemesterSecond, CohortYear: year}
	case m >= time.January && m <= time.April:
		return PeriodIdentity{Semester: SemesterSecond, CohortYear: year - 1}
	default:
		return PeriodIdentity{Semester: SemesterFirst, CohortYear: year}
	}
}
