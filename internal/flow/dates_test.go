package flow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPlanDays(t *testing.T) {
	today := time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)
	tests := []struct {
		name string
		exam time.Time
		want int
	}{
		{"exam today", today, 1},
		{"exam earlier today", time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC), 1},
		{"exam tomorrow", today.AddDate(0, 0, 1), 2},
		{"exam is the tenth day", today.AddDate(0, 0, 9), 10},
		{"exam in the past", today.AddDate(0, 0, -5), 1},
		{"exam long past", today.AddDate(-1, 0, 0), 1},
		{"across month end", time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC), 24},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PlanDays(tt.exam, today))
		})
	}
}

func TestPlanDays_CalendarNotElapsed(t *testing.T) {
	// 23:30 in Kolkata and 00:30 the same civil day elsewhere are both "today".
	kolkata := time.FixedZone("IST", 5*3600+1800)
	current := time.Date(2026, 3, 10, 23, 30, 0, 0, kolkata)
	exam := time.Date(2026, 3, 10, 0, 30, 0, 0, time.UTC)
	assert.Equal(t, 1, PlanDays(exam, current))

	// Less than 24 hours apart but on consecutive calendar days.
	current = time.Date(2026, 3, 10, 23, 0, 0, 0, time.UTC)
	exam = time.Date(2026, 3, 11, 1, 0, 0, 0, time.UTC)
	assert.Equal(t, 2, PlanDays(exam, current))
}

func TestPlanDays_DSTTransition(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tz database unavailable")
	}
	current := time.Date(2026, 3, 7, 12, 0, 0, 0, ny)
	exam := time.Date(2026, 3, 9, 12, 0, 0, 0, ny) // spans the spring-forward night
	assert.Equal(t, 3, PlanDays(exam, current))
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2026-02-28")
	assert.NoError(t, err)
	assert.Equal(t, time.February, d.Month())

	_, err = ParseDate("28/02/2026")
	assert.Error(t, err)
}
