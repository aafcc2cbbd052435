// Package hostdate converts between the host application's "M/D/YYYY h:mm AM" text dates
// and time.Time, and offers the calendar day arithmetic the week view relies on.
package hostdate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var hostPattern = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4}) (\d{1,2}):(\d{2}) ([AaPp][Mm])$`)

// Parse reads a host date string in the local time zone.
func Parse(text string) (time.Time, error) {
	return ParseIn(text, time.Local)
}

// ParseIn reads a host date string ("4/22/2024 11:59 PM") in loc.
func ParseIn(text string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	m := hostPattern.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return time.Time{}, fmt.Errorf("hostdate: unrecognized date %q", text)
	}

	month, _ := strconv.Atoi(m[1])
	day, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	hour, _ := strconv.Atoi(m[4])
	minute, _ := strconv.Atoi(m[5])
	meridiem := strings.ToUpper(m[6])

	if month < 1 || month > 12 || day < 1 || day > DaysInMonth(year, time.Month(month)) {
		return time.Time{}, fmt.Errorf("hostdate: date out of range %q", text)
	}
	if hour < 1 || hour > 12 || minute > 59 {
		return time.Time{}, fmt.Errorf("hostdate: time out of range %q", text)
	}

	return time.Date(year, time.Month(month), day, to24(hour, meridiem), minute, 0, 0, loc), nil
}

// Format is the inverse of Parse, lossless to the minute.
func Format(t time.Time) string {
	hour, meridiem := to12(t.Hour())
	return fmt.Sprintf("%d/%d/%d %d:%02d %s", int(t.Month()), t.Day(), t.Year(), hour, t.Minute(), meridiem)
}

func to24(hour int, meridiem string) int {
	switch {
	case hour == 12 && meridiem == "AM":
		return 0
	case hour == 12:
		return 12
	case meridiem == "PM":
		return hour + 12
	default:
		return hour
	}
}

func to12(hour int) (int, string) {
	meridiem := "AM"
	if hour >= 12 {
		meridiem = "PM"
	}
	h := hour % 12
	if h == 0 {
		h = 12
	}
	return h, meridiem
}
