package mleave

import (
	"strings"
	"time"

	"kyri56xcaesar/opscrm/internal/utils"
)

type DayKind string

// Ordered by precedence, highest first.
const (
	DayMaintenance  DayKind = "maintenance"
	DayHoliday      DayKind = "holiday"
	DaySunday       DayKind = "sunday"
	DayFullDayLeave DayKind = "leave_fullday"
	DayHalfDayLeave DayKind = "leave_halfday"
	DayWorking      DayKind = "working"
)

type Day struct {
	Date    utils.Date     `json:"date"`
	Kind    DayKind        `json:"kind"`
	Holiday *Holiday       `json:"holiday,omitempty"`
	Leaves  []LeaveRequest `json:"leaves"`
}

// IsMaintenance reports whether the holiday's description carries marker, ignoring case.
func IsMaintenance(h Holiday, marker string) bool {
	marker = strings.TrimSpace(marker)
	if marker == "" {
		return false
	}
	return strings.Contains(strings.ToLower(h.Description), strings.ToLower(marker))
}

// Classify assigns every day of the month exactly one kind. Only approved leave decides
// the kind, but every request covering a day is listed on it.
func Classify(year int, month time.Month, holidays []Holiday, leaves []LeaveRequest, marker string) []Day {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(year, month, utils.DaysIn(year, month), 0, 0, 0, 0, time.UTC)

	byDate := make(map[time.Time][]Holiday, len(holidays))
	for _, h := range holidays {
		d := utils.Day(h.Date.Time)
		byDate[d] = append(byDate[d], h)
	}

	days := make([]Day, 0, utils.DaysIn(year, month))
	utils.EachDay(first, last, func(d time.Time) {
		day := Day{
			Date:   utils.NewDate(d),
			Leaves: utils.Filter(leaves, func(r LeaveRequest) bool { return r.Covers(d) }),
		}

		day.Kind, day.Holiday = classifyDay(d, byDate[d], day.Leaves, marker)
		days = append(days, day)
	})

	return days
}

func classifyDay(d time.Time, holidays []Holiday, covering []LeaveRequest, marker string) (DayKind, *Holiday) {
	for i := range holidays {
		if IsMaintenance(holidays[i], marker) {
			return DayMaintenance, &holidays[i]
		}
	}
	if len(holidays) > 0 {
		return DayHoliday, &holidays[0]
	}
	if d.Weekday() == time.Sunday {
		return DaySunday, nil
	}

	kind := DayWorking
	for _, r := range covering {
		if r.Status != StatusApprove {
			continue
		}
		if !r.LeaveType.HalfDay() {
			return DayFullDayLeave, nil
		}
		kind = DayHalfDayLeave
	}
	return kind, nil
}
