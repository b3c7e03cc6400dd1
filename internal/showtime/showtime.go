// Package showtime normalizes the date and time values that flow through the
// scheduling surface.  Show times are stored as zero-padded "HH:MM" text and
// dates as "YYYY-MM-DD" text; keeping both as plain strings avoids timezone
// arithmetic on the natural key (organization, date, show_time).  Calendar
// imports arrive in several historical shapes — legacy text labels, Excel
// fractional-day serials, 24-hour and 12-hour clock strings — and this
// package owns the ladder that folds them all into canonical "HH:MM".
package showtime

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ShowTimeRegex validates a stored or submitted show time: HH:mm or HH:mm:ss.
var ShowTimeRegex = regexp.MustCompile(`^\d{1,2}:\d{2}(?::\d{2})?$`)

// DateRegex validates a date-only value in YYYY-MM-DD form.
var DateRegex = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

var re24h = regexp.MustCompile(`^(\d{1,2}):(\d{2})(?::(\d{2}))?$`)
var re12h = regexp.MustCompile(`^(?i)(\d{1,2}):(\d{2})\s*(am|pm)?$`)

// legacyLabels maps historical free-text schedule labels to fixed times.
var legacyLabels = map[string]string{
	"matinee":  "14:00",
	"evening":  "19:00",
	"noon":     "12:00",
	"midnight": "00:00",
}

// Normalize converts an imported time-like value to canonical "HH:MM".
// The forms are tried in a fixed order: legacy labels (case-insensitive),
// fractional-day spreadsheet serials, 24-hour clock, then 12-hour clock with
// an am/pm suffix.  The second return is false when the value matches none
// of the forms; callers drop such rows silently.
func Normalize(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}
	if t, ok := legacyLabels[strings.ToLower(s)]; ok {
		return t, true
	}
	// Spreadsheet serials carry the time of day in the fractional part; a
	// whole-day component, if any, is discarded.  A value containing a colon
	// is never a serial.
	if !strings.Contains(s, ":") {
		if v, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(v) {
			frac := v
			if v >= 1 {
				frac = math.Mod(v, 1)
			}
			if frac >= 0 && frac < 1 {
				total := int(math.Round(frac*24*60)) % (24 * 60)
				return fmt.Sprintf("%02d:%02d", total/60, total%60), true
			}
		}
		return "", false
	}
	if m := re24h.FindStringSubmatch(s); m != nil {
		h, _ := strconv.Atoi(m[1])
		if h >= 0 && h <= 23 {
			return fmt.Sprintf("%02d:%s", h, m[2]), true
		}
		return "", false
	}
	if m := re12h.FindStringSubmatch(s); m != nil {
		h, _ := strconv.Atoi(m[1])
		ampm := strings.ToLower(m[3])
		if ampm == "pm" && h < 12 {
			h += 12
		}
		if ampm == "am" && h == 12 {
			h = 0
		}
		if h >= 0 && h <= 23 {
			return fmt.Sprintf("%02d:%s", h, m[2]), true
		}
	}
	return "", false
}

// ToHHMM canonicalizes an already validated HH:mm[:ss] string: the hour is
// zero padded and a seconds component is dropped.
func ToHHMM(s string) string {
	m := re24h.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return s
	}
	h, _ := strconv.Atoi(m[1])
	return fmt.Sprintf("%02d:%s", h, m[2])
}

// ParseDate parses a YYYY-MM-DD string into a UTC time at midnight.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", s, time.UTC)
}

// FormatDate renders a time as a YYYY-MM-DD string.
func FormatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

// FormatHHMM renders a time's clock component as zero-padded HH:MM.
func FormatHHMM(t time.Time) string {
	return t.Format("15:04")
}

// Moment combines a stored date and show time into a single UTC timestamp.
// Show times always carry minute precision, so the composed moment does too.
func Moment(date, showTime string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02 15:04", date+" "+ToHHMM(showTime), time.UTC)
}

// DaysInclusive returns the number of calendar days covered by [start, end],
// counting both endpoints.
func DaysInclusive(start, end time.Time) int {
	return int(end.Sub(start).Hours()/24) + 1
}

// WeekBounds returns the first and last date of the week containing d when
// the week starts on the given weekday (0=Sunday … 6=Saturday).  Both bounds
// are returned as date-only strings.
func WeekBounds(d time.Time, weekStartsOn int) (string, string) {
	diff := (int(d.Weekday()) - weekStartsOn + 7) % 7
	start := d.AddDate(0, 0, -diff)
	end := start.AddDate(0, 0, 6)
	return FormatDate(start), FormatDate(end)
}
