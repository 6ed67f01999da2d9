package venue

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// DayHours is the opening window of a single weekday. Open and Close are
// 24-hour "HH:MM" strings.
type DayHours struct {
	Open  string `json:"open" bson:"open" validate:"required,hhmm"`
	Close string `json:"close" bson:"close" validate:"required,hhmm"`
}

// UnmarshalJSON accepts "HH:MM" strings as well as whole hours given as
// numbers (18 -> "18:00"), which some imported feeds use.
func (d *DayHours) UnmarshalJSON(data []byte) error {
	aux := struct {
		Open  interface{} `json:"open"`
		Close interface{} `json:"close"`
	}{}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var err error
	if d.Open, err = clockString(aux.Open); err != nil {
		return fmt.Errorf("open: %w", err)
	}
	if d.Close, err = clockString(aux.Close); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	return nil
}

func clockString(v interface{}) (string, error) {
	switch val := v.(type) {
	case nil:
		return "", nil
	case string:
		return val, nil
	case float64:
		if val < 0 || val > 24 || val != float64(int(val)) {
			return "", fmt.Errorf("invalid hour %v", val)
		}
		return fmt.Sprintf("%02d:00", int(val)%24), nil
	default:
		return "", fmt.Errorf("unsupported time value %T", v)
	}
}

// window parses both ends; ok is false when either is malformed.
func (d *DayHours) window() (opens, closes Clock, ok bool) {
	opens, err := ParseClock(d.Open)
	if err != nil {
		return 0, 0, false
	}
	closes, err = ParseClock(d.Close)
	if err != nil {
		return 0, 0, false
	}
	return opens, closes, true
}

// Overnight reports whether the window runs past midnight.
func (d *DayHours) Overnight() bool {
	opens, closes, ok := d.window()
	return ok && closes < opens
}

// ContainsSameDay reports whether t falls inside the part of the window that
// belongs to its own day. Both ends are inclusive.
func (d *DayHours) ContainsSameDay(t Clock) bool {
	opens, closes, ok := d.window()
	if !ok {
		return false
	}
	if closes < opens {
		return t >= opens
	}
	return opens <= t && t <= closes
}

// SpillsInto reports whether t falls inside the after-midnight tail of an
// overnight window that opened the previous day.
func (d *DayHours) SpillsInto(t Clock) bool {
	opens, closes, ok := d.window()
	if !ok {
		return false
	}
	return closes < opens && t <= closes
}

// OpeningHours maps each weekday to its window. A nil day is closed.
type OpeningHours struct {
	Monday    *DayHours `json:"monday,omitempty" bson:"monday,omitempty"`
	Tuesday   *DayHours `json:"tuesday,omitempty" bson:"tuesday,omitempty"`
	Wednesday *DayHours `json:"wednesday,omitempty" bson:"wednesday,omitempty"`
	Thursday  *DayHours `json:"thursday,omitempty" bson:"thursday,omitempty"`
	Friday    *DayHours `json:"friday,omitempty" bson:"friday,omitempty"`
	Saturday  *DayHours `json:"saturday,omitempty" bson:"saturday,omitempty"`
	Sunday    *DayHours `json:"sunday,omitempty" bson:"sunday,omitempty"`
}

// ForDay returns the window for day, or nil when closed.
func (h *OpeningHours) ForDay(day time.Weekday) *DayHours {
	switch day {
	case time.Sunday:
		return h.Sunday
	case time.Monday:
		return h.Monday
	case time.Tuesday:
		return h.Tuesday
	case time.Wednesday:
		return h.Wednesday
	case time.Thursday:
		return h.Thursday
	case time.Friday:
		return h.Friday
	case time.Saturday:
		return h.Saturday
	}
	return nil
}
