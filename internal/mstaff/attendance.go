package mstaff

import (
	"sort"
	"time"

	"kyri56xcaesar/opscrm/internal/apperr"
	"kyri56xcaesar/opscrm/internal/utils"
)

// CanPunchIn refuses a second entry while a pair of the same day is still open.
func CanPunchIn(today []Punch) error {
	for _, p := range today {
		if p.Open() {
			return apperr.Conflict("already punched in")
		}
	}
	return nil
}

// OpenPunch returns the pair a punch out closes.
func OpenPunch(today []Punch) (Punch, error) {
	for _, p := range today {
		if p.Open() {
			return p, nil
		}
	}
	return Punch{}, apperr.Conflict("not punched in")
}

// GroupByDay folds punches into per-day totals, oldest day first.
func GroupByDay(punches []Punch, now time.Time) []DayAttendance {
	byDay := map[time.Time]*DayAttendance{}
	for _, p := range punches {
		d := utils.Day(p.WorkDate.Time)
		day, ok := byDay[d]
		if !ok {
			day = &DayAttendance{Date: utils.NewDate(d)}
			byDay[d] = day
		}
		day.Punches = append(day.Punches, p)
		day.WorkedMinutes += int(p.Worked(now) / time.Minute)
	}

	out := make([]DayAttendance, 0, len(byDay))
	for _, d := range byDay {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date.Time) })
	return out
}
