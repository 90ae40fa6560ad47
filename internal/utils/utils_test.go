package utils

import (
	"encoding/json"
	"testing"
	"time"
)

func TestMapFilterReduce(t *testing.T) {
	in := []int{1, 2, 3, 4}

	doubled := Map(in, func(v int) int { return v * 2 })
	if doubled[3] != 8 {
		t.Fatalf("Map = %v", doubled)
	}

	even := Filter(in, func(v int) bool { return v%2 == 0 })
	if len(even) != 2 || even[0] != 2 {
		t.Fatalf("Filter = %v", even)
	}

	sum := Reduce(in, 0.5, func(acc float64, v int) float64 { return acc + float64(v) })
	if sum != 10.5 {
		t.Fatalf("Reduce = %v", sum)
	}
}

func TestDaysIn(t *testing.T) {
	cases := []struct {
		year  int
		month time.Month
		want  int
	}{
		{2025, time.February, 28},
		{2024, time.February, 29},
		{2025, time.December, 31},
		{2025, time.April, 30},
	}
	for _, tc := range cases {
		if got := DaysIn(tc.year, tc.month); got != tc.want {
			t.Errorf("DaysIn(%d, %s) = %d, want %d", tc.year, tc.month, got, tc.want)
		}
	}
}

func TestEachDay(t *testing.T) {
	from, _ := ParseDate("2025-01-30")
	to, _ := ParseDate("2025-02-02")

	var days []string
	EachDay(from, to, func(d time.Time) { days = append(days, FormatDate(d)) })

	want := []string{"2025-01-30", "2025-01-31", "2025-02-01", "2025-02-02"}
	if len(days) != len(want) {
		t.Fatalf("EachDay = %v", days)
	}
	for i := range want {
		if days[i] != want[i] {
			t.Fatalf("EachDay[%d] = %s, want %s", i, days[i], want[i])
		}
	}

	count := 0
	EachDay(to, from, func(time.Time) { count++ })
	if count != 0 {
		t.Fatalf("reversed range visited %d days", count)
	}
}

func TestOverlaps(t *testing.T) {
	d := func(s string) time.Time {
		v, err := ParseDate(s)
		if err != nil {
			t.Fatalf("parse %s: %v", s, err)
		}
		return v
	}

	if !Overlaps(d("2025-03-10"), d("2025-03-12"), d("2025-03-12"), d("2025-03-20")) {
		t.Error("touching ranges must overlap")
	}
	if Overlaps(d("2025-03-10"), d("2025-03-12"), d("2025-03-13"), d("2025-03-20")) {
		t.Error("disjoint ranges must not overlap")
	}
}

func TestGenerateRandomString(t *testing.T) {
	s, err := GenerateRandomString(24)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(s) != 24 {
		t.Fatalf("len = %d", len(s))
	}
}

func TestParseID(t *testing.T) {
	cases := map[string]bool{
		"1":    true,
		" 42 ": true,
		"0":    false,
		"-3":   false,
		"abc":  false,
		"":     false,
	}
	for in, want := range cases {
		if _, ok := ParseID(in); ok != want {
			t.Errorf("ParseID(%q) ok=%v, want %v", in, ok, want)
		}
	}
}

func TestDateJSON(t *testing.T) {
	d := NewDate(time.Date(2025, 8, 16, 15, 4, 0, 0, time.UTC))
	b, err := json.Marshal(d)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `"2025-08-16"` {
		t.Fatalf("marshal = %s", b)
	}

	var back Date
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatal(err)
	}
	if !back.Equal(d.Time) {
		t.Fatalf("round trip %v != %v", back, d)
	}

	if err := json.Unmarshal([]byte(`"16/08/2025"`), &back); err == nil {
		t.Fatal("expected error for malformed date")
	}
}

func TestParseQueryInt(t *testing.T) {
	cases := []struct {
		raw     string
		want    int
		wantErr bool
	}{
		{"", 50, false},
		{"  ", 50, false},
		{"20", 20, false},
		{" 7 ", 7, false},
		{"abc", 0, true},
		{"1.5", 0, true},
	}
	for _, c := range cases {
		got, err := ParseQueryInt(c.raw, 50)
		if (err != nil) != c.wantErr {
			t.Errorf("ParseQueryInt(%q) err=%v, wantErr %v", c.raw, err, c.wantErr)
			continue
		}
		if !c.wantErr && got != c.want {
			t.Errorf("ParseQueryInt(%q) = %d, want %d", c.raw, got, c.want)
		}
	}
}
