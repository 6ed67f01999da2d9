package venue

import (
	"fmt"
	"time"
)

// weekdayNames is indexed by time.Weekday (0 = Sunday). Day names are taken
// from this table rather than any locale-aware formatter so that the keys
// always match the stored openingHours fields.
var weekdayNames = [7]string{
	"sunday",
	"monday",
	"tuesday",
	"wednesday",
	"thursday",
	"friday",
	"saturday",
}

// WeekdayName returns the lowercase English name used as the openingHours key.
func WeekdayName(day time.Weekday) string {
	return weekdayNames[int(day)%7]
}

// PreviousDay returns the weekday before day.
func PreviousDay(day time.Weekday) time.Weekday {
	return (day + 6) % 7
}

// Clock is a time of day in minutes since midnight.
type Clock int

// ClockOf extracts the local time of day from t.
func ClockOf(t time.Time) Clock {
	return Clock(t.Hour()*60 + t.Minute())
}

// ParseClock parses a 24-hour "HH:MM" string.
func ParseClock(s string) (Clock, error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, fmt.Errorf("invalid time %q, want HH:MM", s)
	}
	h, okH := twoDigits(s[0], s[1])
	m, okM := twoDigits(s[3], s[4])
	if !okH || !okM || h > 23 || m > 59 {
		return 0, fmt.Errorf("invalid time %q, want HH:MM", s)
	}
	return Clock(h*60 + m), nil
}

func twoDigits(a, b byte) (int, bool) {
	if a < '0' || a > '9' || b < '0' || b > '9' {
		return 0, false
	}
	return int(a-'0')*10 + int(b-'0'), true
}

// String formats the clock as "HH:MM", the same shape as stored hours, so
// the two can be compared lexically.
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}
