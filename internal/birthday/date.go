package birthday

import (
	"errors"
	"time"
)

// ErrInvalidDate signals a token that does not parse as a birthday date.
// Callers re-prompt; this error never carries detail to the user.
var ErrInvalidDate = errors.New("invalid birthday date")

// Date is a parsed birthday. Year 0 means the year was not given.
// Advisory is set for Feb 29, which the bot accepts but asks the user to
// handle manually (store a nearby date and keep the real one in a note).
type Date struct {
	Day      int
	Month    int
	Year     int
	Advisory bool
}

// ParseDate validates a date token in DD.MM or DD.MM.YYYY form.
// today anchors the future-date rejection and the day/month validity probe.
func ParseDate(token string, today time.Time) (Date, error) {
	if len(token) != 5 && len(token) != 10 {
		return Date{}, ErrInvalidDate
	}
	if token[2] != '.' {
		return Date{}, ErrInvalidDate
	}

	day, ok := parseDigits(token[0:2])
	if !ok {
		return Date{}, ErrInvalidDate
	}
	month, ok := parseDigits(token[3:5])
	if !ok {
		return Date{}, ErrInvalidDate
	}

	d := Date{Day: day, Month: month}
	if day == 29 && month == 2 {
		d.Advisory = true
	}

	if len(token) == 10 {
		if token[5] != '.' {
			return Date{}, ErrInvalidDate
		}
		year, ok := parseDigits(token[6:10])
		if !ok {
			return Date{}, ErrInvalidDate
		}
		if !isCalendarDate(year, month, day) {
			return Date{}, ErrInvalidDate
		}
		if civil(year, month, day, today.Location()).After(civil(today.Year(), int(today.Month()), today.Day(), today.Location())) {
			return Date{}, ErrInvalidDate
		}
		d.Year = year
	}

	// Probe (day, month) against the current year. Feb 29 is exempt: it was
	// already flagged above and would fail the probe in non-leap years.
	if !d.Advisory && !isCalendarDate(today.Year(), month, day) {
		return Date{}, ErrInvalidDate
	}

	return d, nil
}

func parseDigits(s string) (int, bool) {
	n := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}

// isCalendarDate reports whether (year, month, day) names a real date.
// time.Date normalizes overflow, so a round trip detects impossible days.
func isCalendarDate(year, month, day int) bool {
	if month < 1 || month > 12 || day < 1 {
		return false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return t.Year() == year && int(t.Month()) == month && t.Day() == day
}

func civil(year, month, day int, loc *time.Location) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
}
