package mleave

import (
	"time"

	"kyri56xcaesar/opscrm/internal/utils"
)

// DayCredit is the usage one calendar day of a request consumes.
func DayCredit(t LeaveType) float64 {
	if t.HalfDay() {
		return 0.5
	}
	return 1
}

// Expand walks every calendar day of r inside [from, to] and hands fn the day with its
// credit. Each day is credited on its own, so a range crossing a month boundary lands in
// both months.
func Expand(r LeaveRequest, from, to time.Time, fn func(day time.Time, credit float64)) {
	start, end := r.LeaveDate.Time, r.EndDate.Time
	if start.Before(from) {
		start = from
	}
	if end.After(to) {
		end = to
	}
	credit := DayCredit(r.LeaveType)
	utils.EachDay(start, end, func(day time.Time) {
		fn(day, credit)
	})
}

type MonthUsage struct {
	Month int     `json:"month"`
	Name  string  `json:"name"`
	Leave float64 `json:"leave"`
	WFH   float64 `json:"wfh"`
}

type Summary struct {
	StaffID         int64        `json:"staffId"`
	StaffName       string       `json:"staffName"`
	AllocationYear  int          `json:"allocationYear"`
	TotalLeave      float64      `json:"totalLeave"`
	AllocatedLeaves float64      `json:"allocatedLeaves"`
	TotalWFH        float64      `json:"totalWFH"`
	AllocatedWFH    float64      `json:"allocatedWFH"`
	MonthlySummary  []MonthUsage `json:"monthlySummary"`
}

// Monthly buckets the approved usage of requests into the 12 months of year.
// Days outside year are ignored.
func Monthly(year int, requests []LeaveRequest) []MonthUsage {
	months := make([]MonthUsage, 12)
	for i := range months {
		months[i] = MonthUsage{Month: i + 1, Name: time.Month(i + 1).String()}
	}

	first, last := yearBounds(year)

	approved := utils.Filter(requests, func(r LeaveRequest) bool { return r.Status == StatusApprove })
	for _, r := range approved {
		Expand(r, first, last, func(day time.Time, credit float64) {
			m := &months[day.Month()-1]
			switch r.Category {
			case CategoryLeave:
				m.Leave += credit
			case CategoryWFH:
				m.WFH += credit
			}
		})
	}

	return months
}

// Totals is the yearly usage, the sum of Monthly.
func Totals(year int, requests []LeaveRequest) (leave, wfh float64) {
	for _, m := range Monthly(year, requests) {
		leave += m.Leave
		wfh += m.WFH
	}
	return leave, wfh
}

// Summarize builds the yearly report of one staff member. Allocations are passed through
// untouched; usage comes from approved requests only.
func Summarize(staffID int64, staffName string, year int, requests []LeaveRequest, alloc Allocation) Summary {
	months := Monthly(year, requests)

	s := Summary{
		StaffID:         staffID,
		StaffName:       staffName,
		AllocationYear:  year,
		AllocatedLeaves: alloc.AllocatedLeaves,
		AllocatedWFH:    alloc.AllocatedWFH,
		MonthlySummary:  months,
	}
	for _, m := range months {
		s.TotalLeave += m.Leave
		s.TotalWFH += m.WFH
	}
	return s
}

// RemainingLeaves can go negative when usage exceeds the allocation.
func (s Summary) RemainingLeaves() float64 {
	return s.AllocatedLeaves - s.TotalLeave
}

func (s Summary) RemainingWFH() float64 {
	return s.AllocatedWFH - s.TotalWFH
}
