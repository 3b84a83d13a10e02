package service

import (
	"testing"
	"time"

	"academic-period/backend/internal/model"
)

func TestPeriodResolver_Resolve(t *testing.T) {
	clock := func() time.Time { return time.Date(2026, 1, 20, 9, 0, 0, 0, time.UTC) }
	r := NewPeriodResolver(clock)

	tests := []struct {
		input     string
		wantValid bool
		wantKey   string
		wantYear  string
	}{
		// 字面量
		{"FIRST-2025", true, "FIRST-2025", "2025-2026"},
		{"SECOND-2024", true, "SECOND-2024", "2024-2025"},
		{" second-2025 ", true, "SECOND-2025", "2025-2026"},
		// 日期：7-11 → 当年 FIRST
		{"2025-07-01", true, "FIRST-2025", "2025-2026"},
		{"2025-11-30", true, "FIRST-2025", "2025-2026"},
		// 12 → 当年 SECOND
		{"2025-12-01", true, "SECOND-2025", "2025-2026"},
		// 1-4 → 上一年 SECOND
		{"2026-01-01", true, "SECOND-2025", "2025-2026"},
		{"2026-04-30", true, "SECOND-2025", "2025-2026"},
		// 5-6 假期 → 当年 FIRST
		{"2026-05-01", true, "FIRST-2026", "2026-2027"},
		{"2026-06-30", true, "FIRST-2026", "2026-2027"},
		{"2025-09-01T08:00:00+08:00", true, "FIRST-2025", "2025-2026"},
		// current 走注入时钟
		{"current", true, "SECOND-2025", "2025-2026"},
		{"CURRENT", true, "SECOND-2025", "2025-2026"},
		// 非法输入
		{"", false, "", ""},
		{"THIRD-2025", false, "", ""},
		{"FIRST-25", false, "", ""},
		{"FIRST-20255", false, "", ""},
		{"FIRST-2025-1", false, "", ""},
		{"FIRST_2025", false, "", ""},
		{"2025-FIRST", false, "", ""},
		{"2025-13-01", false, "", ""},
		{"next semester", false, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := r.Resolve(tt.input)
			if got.Valid != tt.wantValid {
				t.Fatalf("Resolve(%q).Valid = %v，期望 %v", tt.input, got.Valid, tt.wantValid)
			}
			if !tt.wantValid {
				if !got.Period.IsZero() {
					t.Errorf("非法输入应返回零值学期，实际=%v", got.Period)
				}
				return
			}
			if got.Period.Key() != tt.wantKey {
				t.Errorf("Resolve(%q) = %s，期望 %s", tt.input, got.Period.Key(), tt.wantKey)
			}
			if got.AcademicYear != tt.wantYear {
				t.Errorf("Resolve(%q) 学年 = %s，期望 %s", tt.input, got.AcademicYear, tt.wantYear)
			}
		})
	}
}

func TestPeriodResolver_EveryMonth(t *testing.T) {
	want := map[time.Month]model.PeriodIdentity{
		time.January:   {Semester: model.SemesterSecond, CohortYear: 2024},
		time.February:  {Semester: model.SemesterSecond, CohortYear: 2024},
		time.March:     {Semester: model.SemesterSecond, CohortYear: 2024},
		time.April:     {Semester: model.SemesterSecond, CohortYear: 2024},
		time.May:       {Semester: model.SemesterFirst, CohortYear: 2025},
		time.June:      {Semester: model.SemesterFirst, CohortYear: 2025},
		time.July:      {Semester: model.SemesterFirst, CohortYear: 2025},
		time.August:    {Semester: model.SemesterFirst, CohortYear: 2025},
		time.September: {Semester: model.SemesterFirst, CohortYear: 2025},
		time.October:   {Semester: model.SemesterFirst, CohortYear: 2025},
		time.November:  {Semester: model.SemesterFirst, CohortYear: 2025},
		time.December:  {Semester: model.SemesterSecond, CohortYear: 2025},
	}

	r := NewPeriodResolver(nil)
	for m, p := range want {
		got := r.ResolveDate(time.Date(2025, m, 15, 0, 0, 0, 0, time.UTC))
		if !got.Valid || got.Period != p {
			t.Errorf("%s: 期望 %s，实际 %s", m, p, got.Period)
		}
	}
}
