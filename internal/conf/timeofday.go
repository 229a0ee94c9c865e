package conf

import (
	"fmt"
	"time"
)

// TimeOfDay is a wall-clock time without a date, used for task active windows.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses a "HH:MM" string in 24-hour notation.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var t TimeOfDay
	if _, err := fmt.Sscanf(s, "%d:%d", &t.Hour, &t.Minute); err != nil {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	if t.Hour < 0 || t.Hour > 23 || t.Minute < 0 || t.Minute > 59 {
		return TimeOfDay{}, fmt.Errorf("time of day %q out of range", s)
	}
	return t, nil
}

// Minutes returns the time of day as minutes since midnight.
func (t TimeOfDay) Minutes() int {
	return t.Hour*60 + t.Minute
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// ActiveWindow is a daily time-of-day window during which a task runs.
// Windows may span midnight, e.g. 22:00 to 06:00.
type ActiveWindow struct {
	Start TimeOfDay
	End   TimeOfDay
}

// ParseActiveWindow builds an ActiveWindow from "HH:MM" strings. Both empty
// means always active and returns nil.
func ParseActiveWindow(start, end string) (*ActiveWindow, error) {
	if start == "" && end == "" {
		return nil, nil
	}
	if start == "" || end == "" {
		return nil, fmt.Errorf("time-of-day window requires both start and end, got start=%q end=%q", start, end)
	}
	s, err := ParseTimeOfDay(start)
	if err != nil {
		return nil, err
	}
	e, err := ParseTimeOfDay(end)
	if err != nil {
		return nil, err
	}
	return &ActiveWindow{Start: s, End: e}, nil
}

// Contains reports whether the given time falls inside the window.
// Start equal to End means the window is always active.
func (w *ActiveWindow) Contains(t time.Time) bool {
	now := t.Hour()*60 + t.Minute()
	start := w.Start.Minutes()
	end := w.End.Minutes()

	switch {
	case start == end:
		return true
	case start < end:
		return now >= start && now < end
	default:
		// Window spans midnight
		return now >= start || now < end
	}
}
