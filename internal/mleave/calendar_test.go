package mleave

import (
	"testing"
	"time"
)

func dayOf(t *testing.T, days []Day, s string) Day {
	t.Helper()
	want := date(t, s)
	for _, d := range days {
		if d.Date.Equal(want.Time) {
			return d
		}
	}
	t.Fatalf("day %s missing", s)
	return Day{}
}

func TestClassifyMaintenanceDominatesLeave(t *testing.T) {
	holidays := []Holiday{{ID: 1, Date: date(t, "2025-08-16"), Name: "Shutdown", Description: "Server Maintenance window"}}
	leaves := []LeaveRequest{request(t, "2025-08-16", "2025-08-16", TypeFullDay, CategoryLeave, StatusApprove)}

	days := Classify(2025, time.August, holidays, leaves, "maintenance")
	d := dayOf(t, days, "2025-08-16")
	if d.Kind != DayMaintenance {
		t.Fatalf("kind = %s, want maintenance", d.Kind)
	}
	if len(d.Leaves) != 1 {
		t.Fatalf("covering leaves = %d", len(d.Leaves))
	}

	// accounting is independent of the classification
	s := Summarize(1, "Ana", 2025, leaves, Allocation{})
	if s.MonthlySummary[7].Leave != 1 {
		t.Fatalf("august leave = %v, want 1", s.MonthlySummary[7].Leave)
	}
}

func TestClassifyPrecedence(t *testing.T) {
	holidays := []Holiday{
		{Date: date(t, "2025-03-03"), Name: "Clean Monday"},
	}
	leaves := []LeaveRequest{
		request(t, "2025-03-03", "2025-03-05", TypeFullDay, CategoryLeave, StatusApprove),
		request(t, "2025-03-05", "2025-03-06", TypeMorning, CategoryWFH, StatusApprove),
		request(t, "2025-03-07", "2025-03-07", TypeFullDay, CategoryLeave, StatusPending),
		request(t, "2025-03-09", "2025-03-09", TypeFullDay, CategoryLeave, StatusApprove),
	}

	days := Classify(2025, time.March, holidays, leaves, "maintenance")
	if len(days) != 31 {
		t.Fatalf("days = %d", len(days))
	}

	tests := map[string]DayKind{
		"2025-03-03": DayHoliday,
		"2025-03-04": DayFullDayLeave,
		"2025-03-05": DayFullDayLeave,
		"2025-03-06": DayHalfDayLeave,
		"2025-03-07": DayWorking,
		"2025-03-09": DaySunday,
		"2025-03-10": DayWorking,
	}
	for s, want := range tests {
		if got := dayOf(t, days, s).Kind; got != want {
			t.Errorf("%s = %s, want %s", s, got, want)
		}
	}

	if n := len(dayOf(t, days, "2025-03-05").Leaves); n != 2 {
		t.Errorf("2025-03-05 lists %d leaves, want 2", n)
	}
	if n := len(dayOf(t, days, "2025-03-07").Leaves); n != 1 {
		t.Errorf("pending leave not surfaced on 2025-03-07")
	}
}

func TestIsMaintenance(t *testing.T) {
	h := Holiday{Description: "MAINTENANCE day"}
	if !IsMaintenance(h, "maintenance") {
		t.Fatal("expected case-insensitive match")
	}
	if IsMaintenance(h, "") {
		t.Fatal("empty marker must not match")
	}
	if IsMaintenance(Holiday{Name: "Maintenance"}, "maintenance") {
		t.Fatal("only the description carries the marker")
	}
}
