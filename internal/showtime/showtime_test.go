package showtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		// legacy labels
		{"matinee", "14:00", true},
		{"Matinee", "14:00", true},
		{"EVENING", "19:00", true},
		{"noon", "12:00", true},
		{"midnight", "00:00", true},
		// spreadsheet serials (fraction of a day)
		{"0.5", "12:00", true},
		{"0.8125", "19:30", true},
		{"45123.8125", "19:30", true}, // whole-day part discarded
		{"0", "00:00", true},
		// 24-hour clock
		{"19:30", "19:30", true},
		{"7:05", "07:05", true},
		{"19:30:45", "19:30", true},
		{"23:59", "23:59", true},
		// 12-hour clock
		{"7:30 pm", "19:30", true},
		{"2:00 PM", "14:00", true},
		{"12:00 am", "00:00", true},
		{"12:15 pm", "12:15", true},
		// rejects
		{"", "", false},
		{"   ", "", false},
		{"25:00", "", false},
		{"opening night", "", false},
		{"13:00 pm", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, ok := Normalize(tc.in)
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.Equal(t, tc.want, got)
			}
		})
	}
}

func TestToHHMM(t *testing.T) {
	assert.Equal(t, "07:30", ToHHMM("7:30"))
	assert.Equal(t, "19:30", ToHHMM("19:30:00"))
	assert.Equal(t, "19:30", ToHHMM("19:30"))
}

func TestMoment(t *testing.T) {
	m, err := Moment("2026-03-14", "19:30")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 14, 19, 30, 0, 0, time.UTC), m)

	_, err = Moment("not-a-date", "19:30")
	assert.Error(t, err)
}

func TestDaysInclusive(t *testing.T) {
	d1, _ := ParseDate("2026-01-01")
	assert.Equal(t, 1, DaysInclusive(d1, d1))
	d2, _ := ParseDate("2026-12-31")
	assert.Equal(t, 365, DaysInclusive(d1, d2))
}

func TestWeekBounds(t *testing.T) {
	// 2026-08-26 is a Wednesday.
	d, _ := ParseDate("2026-08-26")

	start, end := WeekBounds(d, 0) // Sunday week
	assert.Equal(t, "2026-08-23", start)
	assert.Equal(t, "2026-08-29", end)

	start, end = WeekBounds(d, 1) // Monday week
	assert.Equal(t, "2026-08-24", start)
	assert.Equal(t, "2026-08-30", end)

	// A day that is itself the week start.
	mon, _ := ParseDate("2026-08-24")
	start, end = WeekBounds(mon, 1)
	assert.Equal(t, "2026-08-24", start)
	assert.Equal(t, "2026-08-30", end)
}
