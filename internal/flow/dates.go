package flow

import (
	"fmt"
	"time"
)

// DateLayout is the input and output date format.
const DateLayout = "2006-01-02"

// PlanDays returns the length of a study plan that runs from currentDate
// through examDate inclusive, on calendar days. It is never less than 1.
//
// Both values are reduced to their civil date in their own location, so an
// exam "today" is a one-day plan whatever the hour or time zone.
func PlanDays(examDate, currentDate time.Time) int {
	between := int(civil(examDate).Sub(civil(currentDate)).Hours() / 24)
	return max(1, between+1)
}

func civil(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	return t, nil
}
