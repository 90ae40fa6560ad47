package mstaff

import (
	"errors"
	"testing"
	"time"

	"kyri56xcaesar/opscrm/internal/apperr"
	"kyri56xcaesar/opscrm/internal/utils"
)

func at(day string, hour, min int) time.Time {
	d, err := utils.ParseDate(day)
	if err != nil {
		panic(err)
	}
	return d.Add(time.Duration(hour)*time.Hour + time.Duration(min)*time.Minute)
}

func closed(day string, in, out int) Punch {
	exit := at(day, out, 0)
	return Punch{WorkDate: utils.NewDate(at(day, 0, 0)), EntryAt: at(day, in, 0), ExitAt: &exit}
}

func TestPunchRules(t *testing.T) {
	open := Punch{ID: 7, EntryAt: at("2025-03-10", 14, 0)}

	if err := CanPunchIn(nil); err != nil {
		t.Fatalf("first punch of the day: %v", err)
	}
	if err := CanPunchIn([]Punch{closed("2025-03-10", 9, 12)}); err != nil {
		t.Fatalf("after a closed pair: %v", err)
	}
	if err := CanPunchIn([]Punch{closed("2025-03-10", 9, 12), open}); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("second entry while in: %v", err)
	}

	if _, err := OpenPunch([]Punch{closed("2025-03-10", 9, 12)}); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("punch out without entry: %v", err)
	}
	p, err := OpenPunch([]Punch{closed("2025-03-10", 9, 12), open})
	if err != nil || p.ID != 7 {
		t.Fatalf("OpenPunch = %+v, %v", p, err)
	}
}

func TestGroupByDay(t *testing.T) {
	now := at("2025-03-11", 11, 30)
	punches := []Punch{
		{WorkDate: utils.NewDate(at("2025-03-11", 0, 0)), EntryAt: at("2025-03-11", 9, 0)},
		closed("2025-03-10", 9, 12),
		closed("2025-03-10", 13, 17),
	}

	days := GroupByDay(punches, now)
	if len(days) != 2 {
		t.Fatalf("got %d days", len(days))
	}
	if got := utils.FormatDate(days[0].Date.Time); got != "2025-03-10" {
		t.Fatalf("first day = %s", got)
	}
	if days[0].WorkedMinutes != 7*60 || len(days[0].Punches) != 2 {
		t.Fatalf("2025-03-10 = %+v", days[0])
	}
	// still in: counted up to now
	if days[1].WorkedMinutes != 150 {
		t.Fatalf("open day worked %d minutes", days[1].WorkedMinutes)
	}
}

func TestWorkedNeverNegative(t *testing.T) {
	p := Punch{EntryAt: at("2025-03-10", 10, 0)}
	if got := p.Worked(at("2025-03-10", 9, 0)); got != 0 {
		t.Fatalf("Worked = %v", got)
	}
}
