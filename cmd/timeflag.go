package cmd

import (
	"fmt"
	"strings"
	"time"
)

// Layouts accepted by time flags, tried in order.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// parseTimeFlag parses value in loc. A bare date yields midnight and
// dateOnly=true. An empty value returns the zero time.
func parseTimeFlag(value string, loc *time.Location) (t time.Time, dateOnly bool, err error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false, nil
	}
	if loc == nil {
		loc = time.Local
	}

	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, false, nil
		}
	}
	if t, err := time.ParseInLocation(time.DateOnly, value, loc); err == nil {
		return t, true, nil
	}
	return time.Time{}, false, fmt.Errorf("invalid time %q: use RFC 3339, YYYY-MM-DDTHH:MM or YYYY-MM-DD", value)
}

// eventWindow resolves the start and end of a new event. A missing end
// defaults to one hour after start, or one day for all-day events.
func eventWindow(startValue, endValue string, allDay bool, loc *time.Location) (time.Time, time.Time, bool, error) {
	start, startDate, err := parseTimeFlag(startValue, loc)
	if err != nil {
		return time.Time{}, time.Time{}, false, err
	}
	if start.IsZero() {
		return time.Time{}, time.Time{}, false, fmt.Errorf("--start is required")
	}

	end, _, err := parseTimeFlag(endValue, loc)
	if err != nil {
		return time.Time{}, time.Time{}, false, err
	}

	allDay = allDay || (startDate && endValue == "")
	if allDay {
		y, m, d := start.Date()
		start = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		if !end.IsZero() {
			y, m, d = end.Date()
			end = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		}
	}

	if end.IsZero() {
		if allDay {
			end = start.AddDate(0, 0, 1)
		} else {
			end = start.Add(time.Hour)
		}
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, false, fmt.Errorf("end %s is before start %s", end.Format(time.RFC3339), start.Format(time.RFC3339))
	}
	return start, end, allDay, nil
}
