package calendar

import (
	"fmt"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

var weekdayNames = [7]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

// Clock resolves civil dates in the clinic's time zone. Dates are carried as
// UTC midnight of the civil day so that equal days compare equal in storage.
type Clock struct {
	loc *time.Location
	now func() time.Time
}

func NewClock(loc *time.Location, now func() time.Time) *Clock {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &Clock{loc: loc, now: now}
}

func (c *Clock) Location() *time.Location {
	return c.loc
}

// StartOfDay returns UTC midnight of t's civil date as seen in the clinic zone.
func (c *Clock) StartOfDay(t time.Time) time.Time {
	y, m, d := t.In(c.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (c *Clock) Today() time.Time {
	return c.StartOfDay(c.now())
}

// ParseDate accepts "2006-01-02" or an RFC3339 timestamp and discards the time of day.
func (c *Clock) ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("date is required")
	}
	if d, err := time.ParseInLocation(DateLayout, value, c.loc); err == nil {
		return c.StartOfDay(d), nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD or RFC3339", value)
	}
	return c.StartOfDay(t), nil
}

func (c *Clock) IsPast(day time.Time) bool {
	return Normalize(day).Before(c.Today())
}

// Normalize truncates an already-canonical date to UTC midnight.
func Normalize(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Weekday of a canonical date, 0 = Sunday.
func Weekday(day time.Time) int {
	return int(Normalize(day).Weekday())
}

func WeekdayName(day int) string {
	if day < 0 || day > 6 {
		return ""
	}
	return weekdayNames[day]
}

// ParseWeekday accepts a full English day name (case-insensitive) or its
// three-letter abbreviation.
func ParseWeekday(value string) (int, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	for i, name := range weekdayNames {
		lower := strings.ToLower(name)
		if v == lower || v == lower[:3] {
			return i, nil
		}
	}
	return 0, fmt.Errorf("invalid weekday %q", value)
}
