package schedule

import (
	"time"
)

// =============================================================================
// DAY - UTC-midnight-normalized calendar day
// =============================================================================

// Day is a calendar day, normalized to UTC midnight. All scheduling logic in
// this package operates on Days, never on raw timestamps, so local-timezone
// drift can never shift an occurrence across a date boundary.
type Day struct {
	t time.Time
}

// Constructors
func NewDay(year int, month time.Month, day int) Day {
	return Day{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DayOf normalizes an arbitrary timestamp to its UTC calendar day.
func DayOf(t time.Time) Day {
	u := t.UTC()
	return NewDay(u.Year(), u.Month(), u.Day())
}

// ParseDay parses a YYYY-MM-DD key back into a Day.
func ParseDay(s string) (Day, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Day{}, err
	}
	return DayOf(t), nil
}

// Comparison
func (d Day) Before(other Day) bool { return d.t.Before(other.t) }
func (d Day) After(other Day) bool  { return d.t.After(other.t) }
func (d Day) Equal(other Day) bool  { return d.t.Equal(other.t) }
func (d Day) IsZero() bool          { return d.t.IsZero() }

// Arithmetic
func (d Day) AddDays(n int) Day   { return Day{t: d.t.AddDate(0, 0, n)} }
func (d Day) AddMonths(n int) Day { return Day{t: d.t.AddDate(0, n, 0)} }

// Properties
func (d Day) Year() int             { return d.t.Year() }
func (d Day) Month() time.Month     { return d.t.Month() }
func (d Day) DayOfMonth() int       { return d.t.Day() }
func (d Day) Weekday() time.Weekday { return d.t.Weekday() }
func (d Day) Time() time.Time       { return d.t }

// Key returns the YYYY-MM-DD string form. Days are compared and deduplicated
// by this key everywhere persistence is involved.
func (d Day) Key() string    { return d.t.Format("2006-01-02") }
func (d Day) String() string { return d.Key() }

// DaysBetween returns the number of whole calendar days from one Day to
// another. Negative when to precedes from.
func DaysBetween(from, to Day) int {
	return int(to.t.Sub(from.t).Hours() / 24)
}

// =============================================================================
// DAY SET - Set of calendar days keyed by YYYY-MM-DD
// =============================================================================

type DaySet map[string]struct{}

func NewDaySet(days ...Day) DaySet {
	s := make(DaySet, len(days))
	for _, d := range days {
		s.Add(d)
	}
	return s
}

func (s DaySet) Add(d Day)               { s[d.Key()] = struct{}{} }
func (s DaySet) AddKey(key string)       { s[key] = struct{}{} }
func (s DaySet) Contains(d Day) bool     { _, ok := s[d.Key()]; return ok }
func (s DaySet) ContainsKey(k string) bool { _, ok := s[k]; return ok }
func (s DaySet) Len() int                { return len(s) }

// =============================================================================
// CLOCK - Injected source of "today"
// =============================================================================

// Clock supplies the current calendar day. It is injected rather than read
// directly so tests can pin "today".
type Clock interface {
	Today() Day
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Today() Day { return DayOf(time.Now()) }

// FixedClock always reports the same day. For tests and replays.
type FixedClock struct {
	Day Day
}

func (c FixedClock) Today() Day { return c.Day }
