// Package utils provides small helpers shared by the service packages.
//
// Functional Programming Utilities:
//   - Map, Filter, Reduce: Generic implementations for slice processing.
//
// Parsing:
//   - ParseID: a positive int64 path or query id.
//   - ParseQueryInt: an optional integer query value.
//   - ParseDate, FormatDate: calendar dates in the API's YYYY-MM-DD form.
//
// Calendar arithmetic:
//   - DaysIn, EachDay, Overlaps: day level helpers on UTC midnight dates.
//   - Date: a calendar date that marshals as YYYY-MM-DD.
//
// Random:
//   - GenerateRandomString: temporary credentials.
package utils

import (
	"crypto/rand"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

/* some Functional Programming in Go */
// map
type mapFunc[E any, R any] func(E) R

// Map function definition of a functional programming "function"
func Map[S ~[]E, E any, R any](s S, f mapFunc[E, R]) []R {
	result := make([]R, len(s))
	for i, e := range s {
		result[i] = f(e)
	}

	return result
}

// filter
type keepFunc[E any] func(E) bool

// Filter function definition of a functional programming "function"
func Filter[S ~[]E, E any](s S, f keepFunc[E]) S {
	result := S{}
	for _, v := range s {
		if f(v) {
			result = append(result, v)
		}
	}

	return result
}

// reduce
type reduceFunc[E any, A any] func(acc A, next E) A

// Reduce function definition of a functional programming "function"
func Reduce[E any, A any](s []E, init A, f reduceFunc[E, A]) A {
	cur := init
	for _, v := range s {
		cur = f(cur, v)
	}

	return cur
}

// ParseID parses s as a positive id.
func ParseID(s string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// ParseQueryInt parses an optional integer query value; an empty raw yields def.
func ParseQueryInt(raw string, def int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

// DateLayout is the wire format of calendar dates.
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD date as UTC midnight.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, strings.TrimSpace(s), time.UTC)
}

// FormatDate renders t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// Date is a calendar date on the wire.
type Date struct {
	time.Time
}

func NewDate(t time.Time) Date {
	return Date{Day(t)}
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(FormatDate(d.Time))
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	t, err := ParseDate(s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

// Day truncates t to UTC midnight of its calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysIn returns the number of days of month in year.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// EachDay calls fn for every calendar day in [from, to], inclusive. Nothing happens when
// to precedes from.
func EachDay(from, to time.Time, fn func(day time.Time)) {
	from, to = Day(from), Day(to)
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		fn(d)
	}
}

// Overlaps reports whether the inclusive ranges [aFrom, aTo] and [bFrom, bTo] share a day.
func Overlaps(aFrom, aTo, bFrom, bTo time.Time) bool {
	return !Day(aFrom).After(Day(bTo)) && !Day(bFrom).After(Day(aTo))
}

func GenerateRandomString(length int) (string, error) {
	const chars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	bytes := make([]byte, length)
	random := make([]byte, length)
	_, err := rand.Read(random)
	if err != nil {
		return "", err
	}
	for i := 0; i < length; i++ {
		bytes[i] = chars[int(random[i])%len(chars)]
	}
	return string(bytes), nil
}
