package mleave

import (
	"testing"
	"time"

	"kyri56xcaesar/opscrm/internal/utils"
)

func date(t *testing.T, s string) utils.Date {
	t.Helper()
	d, err := utils.ParseDate(s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return utils.NewDate(d)
}

func request(t *testing.T, from, to string, lt LeaveType, cat Category, st Status) LeaveRequest {
	t.Helper()
	return LeaveRequest{
		StaffID:   1,
		LeaveType: lt,
		Category:  cat,
		LeaveDate: date(t, from),
		EndDate:   date(t, to),
		Status:    st,
	}
}

func TestDayCredit(t *testing.T) {
	if DayCredit(TypeFullDay) != 1 || DayCredit(TypeMorning) != 0.5 || DayCredit(TypeAfternoon) != 0.5 {
		t.Fatal("unexpected day credits")
	}
}

func TestSummarizeMultiDayFullDay(t *testing.T) {
	reqs := []LeaveRequest{
		request(t, "2025-03-10", "2025-03-12", TypeFullDay, CategoryLeave, StatusApprove),
	}

	s := Summarize(1, "Ana", 2025, reqs, Allocation{AllocatedLeaves: 12, AllocatedWFH: 24})
	if got := s.MonthlySummary[2].Leave; got != 3 {
		t.Fatalf("march leave = %v, want 3", got)
	}
	if s.TotalLeave != 3 || s.TotalWFH != 0 {
		t.Fatalf("totals = %v/%v", s.TotalLeave, s.TotalWFH)
	}
	if s.AllocatedLeaves != 12 || s.AllocatedWFH != 24 {
		t.Fatalf("allocations changed: %+v", s)
	}
	if s.RemainingLeaves() != 9 {
		t.Fatalf("remaining = %v", s.RemainingLeaves())
	}
}

func TestSummarizeEmptyYear(t *testing.T) {
	s := Summarize(1, "Ana", 2025, nil, Allocation{})
	if s.TotalLeave != 0 || s.TotalWFH != 0 {
		t.Fatalf("totals = %v/%v", s.TotalLeave, s.TotalWFH)
	}
	if len(s.MonthlySummary) != 12 {
		t.Fatalf("months = %d", len(s.MonthlySummary))
	}
	for i, m := range s.MonthlySummary {
		if m.Month != i+1 || m.Leave != 0 || m.WFH != 0 {
			t.Fatalf("month %d = %+v", i+1, m)
		}
	}
}

func TestSummarizeIgnoresUndecidedRequests(t *testing.T) {
	reqs := []LeaveRequest{
		request(t, "2025-05-05", "2025-05-06", TypeFullDay, CategoryLeave, StatusPending),
		request(t, "2025-05-07", "2025-05-07", TypeFullDay, CategoryLeave, StatusReject),
		request(t, "2025-05-08", "2025-05-08", TypeMorning, CategoryWFH, StatusPending),
		request(t, "2025-05-09", "2025-05-09", TypeAfternoon, CategoryWFH, StatusApprove),
	}

	s := Summarize(1, "Ana", 2025, reqs, Allocation{})
	if s.TotalLeave != 0 {
		t.Fatalf("leave = %v, want 0", s.TotalLeave)
	}
	if s.TotalWFH != 0.5 {
		t.Fatalf("wfh = %v, want 0.5", s.TotalWFH)
	}
}

func TestSummarizeSplitsAcrossMonthsAndYears(t *testing.T) {
	reqs := []LeaveRequest{
		request(t, "2025-01-30", "2025-02-02", TypeFullDay, CategoryLeave, StatusApprove),
		request(t, "2025-12-30", "2026-01-02", TypeMorning, CategoryWFH, StatusApprove),
	}

	s := Summarize(1, "Ana", 2025, reqs, Allocation{})
	if s.MonthlySummary[0].Leave != 2 || s.MonthlySummary[1].Leave != 2 {
		t.Fatalf("jan/feb = %v/%v", s.MonthlySummary[0].Leave, s.MonthlySummary[1].Leave)
	}
	if s.MonthlySummary[11].WFH != 1 {
		t.Fatalf("december wfh = %v, want 1", s.MonthlySummary[11].WFH)
	}

	leave, wfh := Totals(2026, reqs)
	if leave != 0 || wfh != 1 {
		t.Fatalf("2026 totals = %v/%v", leave, wfh)
	}
}

func TestExpandVisitsEveryDay(t *testing.T) {
	r := request(t, "2024-02-27", "2024-03-01", TypeAfternoon, CategoryLeave, StatusApprove)

	var days []time.Time
	var sum float64
	first, last := yearBounds(2024)
	Expand(r, first, last, func(d time.Time, credit float64) {
		days = append(days, d)
		sum += credit
	})

	// 2024 is a leap year: 27, 28, 29 Feb and 1 Mar
	if len(days) != 4 || sum != 2 {
		t.Fatalf("days=%d sum=%v", len(days), sum)
	}
}

func TestExpandStaysInsideWindow(t *testing.T) {
	r := request(t, "2024-12-30", "2025-01-02", TypeFullDay, CategoryLeave, StatusApprove)

	var days []time.Time
	first, last := yearBounds(2025)
	Expand(r, first, last, func(d time.Time, _ float64) {
		days = append(days, d)
	})
	if len(days) != 2 || days[0].Year() != 2025 {
		t.Fatalf("days = %v", days)
	}

	visited := 0
	first, last = yearBounds(2030)
	Expand(r, first, last, func(time.Time, float64) { visited++ })
	if visited != 0 {
		t.Fatalf("request outside the window visited %d days", visited)
	}
}
