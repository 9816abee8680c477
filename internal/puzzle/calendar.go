package puzzle

import (
	"fmt"
	"time"
)

// Date is a calendar day, independent of time of day and zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the calendar day of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses a YYYY-MM-DD key.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// String returns the YYYY-MM-DD key used in storage.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Seed concatenates the date's digits as an integer: 2026-10-17 → 20261017.
func (d Date) Seed() uint64 {
	return uint64(d.Year)*10000 + uint64(d.Month)*100 + uint64(d.Day)
}

// IsZero reports whether d is unset.
func (d Date) IsZero() bool { return d == Date{} }

// Calendar answers "what day is it" for the game. Now and Location are
// injectable so tests can simulate day rollovers.
type Calendar struct {
	Now      func() time.Time
	Location *time.Location
}

// NewCalendar returns a wall-clock calendar in loc (time.Local when nil).
func NewCalendar(loc *time.Location) Calendar {
	if loc == nil {
		loc = time.Local
	}
	return Calendar{Now: time.Now, Location: loc}
}

func (c Calendar) now() time.Time {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	loc := c.Location
	if loc == nil {
		loc = time.Local
	}
	return now().In(loc)
}

// Today returns the current calendar day.
func (c Calendar) Today() Date { return DateOf(c.now()) }

// UntilMidnight returns the duration until the next local midnight.
func (c Calendar) UntilMidnight() time.Duration {
	now := c.now()
	y, m, d := now.Date()
	next := time.Date(y, m, d+1, 0, 0, 0, 0, now.Location())
	return next.Sub(now)
}
