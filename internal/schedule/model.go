package schedule

import (
	"fmt"
	"strings"
	"time"
)

// Wire formats for dates and times-of-day.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// Schedule is an administrator-defined attendance session: a location and
// room booked for a date and time window, targeting a branch/year cohort.
type Schedule struct {
	ID            string
	Location      string
	RoomNo        string
	Date          time.Time
	FromTime      time.Time
	ToTime        time.Time
	StudentBranch string
	Year          string
	Mark          bool
	CreatedAt     time.Time
}

// StudentDetails is the read-only student lookup record.
type StudentDetails struct {
	ID     string
	Email  string
	Name   string
	Branch string
	Year   string
}

// StudentAttendance is one roster row owned by a schedule. Date, FromTime
// and ToTime are denormalized copies of the owning schedule's values and
// are re-stamped whenever the schedule changes.
type StudentAttendance struct {
	ID         string
	ScheduleID string
	Email      string
	Date       time.Time
	FromTime   time.Time
	ToTime     time.Time
	Present    bool
}

// DefaultYearLabels maps roman-numeral year codes to the ordinal labels
// stored on schedules and student records. Codes outside the map resolve
// to an empty year.
var DefaultYearLabels = map[string]string{
	"I":   "first",
	"II":  "second",
	"III": "third",
	"IV":  "fourth",
}

// ParseDate parses a calendar date in YYYY-MM-DD form.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q", ErrInvalidFormat, s)
	}
	return d, nil
}

// ParseTimeOfDay parses a time-of-day in HH:MM form.
func ParseTimeOfDay(s string) (time.Time, error) {
	t, err := time.Parse(TimeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: time %q", ErrInvalidFormat, s)
	}
	return t, nil
}

// SplitBranches breaks a comma-separated branch list into trimmed,
// non-empty codes, order preserved.
func SplitBranches(s string) []string {
	var out []string
	for _, tok := range strings.Split(s, ",") {
		tok = strings.TrimSpace(tok)
		if tok != "" {
			out = append(out, tok)
		}
	}
	return out
}
