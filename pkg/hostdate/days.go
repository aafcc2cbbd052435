package hostdate

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// DaysInMonth uses day 0 of the following month, which is the last day of this one.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// AddDays shifts t by a signed number of calendar days, keeping the wall clock time.
func AddDays(t time.Time, days int) time.Time {
	year, month, day := t.Date()
	day += days
	for day > DaysInMonth(year, month) {
		day -= DaysInMonth(year, month)
		month, year = next(month, year)
	}
	for day < 1 {
		month, year = prev(month, year)
		day += DaysInMonth(year, month)
	}
	return time.Date(year, month, day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func next(m time.Month, y int) (time.Month, int) {
	if m == time.December {
		return time.January, y + 1
	}
	return m + 1, y
}

func prev(m time.Month, y int) (time.Month, int) {
	if m == time.January {
		return time.December, y - 1
	}
	return m - 1, y
}

// Midnight truncates t to the start of its calendar day.
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// SameDay reports whether a and b fall on the same calendar day in a's location.
func SameDay(a, b time.Time) bool {
	b = b.In(a.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// WeekStart returns midnight of the first day of the week containing t.
func WeekStart(t time.Time, first time.Weekday) time.Time {
	offset := (int(t.Weekday()) - int(first) + 7) % 7
	return Midnight(AddDays(t, -offset))
}

// ToInputValue renders t as a yyyy-mm-dd date input value.
func ToInputValue(t time.Time) string {
	return fmt.Sprintf("%04d-%02d-%02d", t.Year(), int(t.Month()), t.Day())
}

var inputPattern = regexp.MustCompile(`^(\d{4,})-(\d{2})-(\d{2})$`)

// FromInputValue parses a yyyy-mm-dd value to local midnight.
func FromInputValue(value string) (time.Time, error) {
	m := inputPattern.FindStringSubmatch(value)
	if m == nil {
		return time.Time{}, fmt.Errorf("hostdate: invalid input value %q", value)
	}
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])
	if month < 1 || month > 12 || day < 1 || day > DaysInMonth(year, time.Month(month)) {
		return time.Time{}, fmt.Errorf("hostdate: input value out of range %q", value)
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.Local), nil
}
