package schedule_test

import (
	"testing"
	"time"

	"github.com/warp/schedule-engine/schedule"
)

func TestDay_NormalizesToUTCMidnight(t *testing.T) {
	// A late-evening local timestamp east of UTC must land on its UTC day.
	loc := time.FixedZone("UTC+11", 11*3600)
	local := time.Date(2024, time.March, 10, 1, 30, 0, 0, loc)

	d := schedule.DayOf(local)
	if d.Key() != "2024-03-09" {
		t.Errorf("expected UTC day 2024-03-09, got %s", d.Key())
	}
}

func TestDay_KeyRoundTrip(t *testing.T) {
	d := schedule.NewDay(2024, time.February, 29)
	parsed, err := schedule.ParseDay(d.Key())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !parsed.Equal(d) {
		t.Errorf("round trip changed the day: %s != %s", parsed, d)
	}
}

func TestParseDay_RejectsMalformedKeys(t *testing.T) {
	for _, s := range []string{"", "2024-13-01", "March 10", "2024/03/10"} {
		if _, err := schedule.ParseDay(s); err == nil {
			t.Errorf("expected error for %q", s)
		}
	}
}

func TestDaysBetween_SignedWholeDays(t *testing.T) {
	a := schedule.NewDay(2024, time.January, 1)
	b := schedule.NewDay(2024, time.January, 10)

	if got := schedule.DaysBetween(a, b); got != 9 {
		t.Errorf("expected 9, got %d", got)
	}
	if got := schedule.DaysBetween(b, a); got != -9 {
		t.Errorf("expected -9, got %d", got)
	}
}

func TestAddMonths_OverflowNormalizes(t *testing.T) {
	// Jan 31 + 1 month normalizes forward; the expander relies on this
	// matching time.AddDate semantics rather than clamping.
	d := schedule.NewDay(2024, time.January, 31).AddMonths(1)
	if d.Key() != "2024-03-02" {
		t.Errorf("expected 2024-03-02, got %s", d.Key())
	}
}

func TestDaySet_KeyedByDateString(t *testing.T) {
	s := schedule.NewDaySet()
	s.Add(schedule.NewDay(2024, time.March, 10))

	if !s.ContainsKey("2024-03-10") {
		t.Error("expected key membership")
	}
	if !s.Contains(schedule.NewDay(2024, time.March, 10)) {
		t.Error("expected day membership")
	}
	if s.Contains(schedule.NewDay(2024, time.March, 11)) {
		t.Error("unexpected membership")
	}

	// Adding the same day twice keeps set semantics.
	s.Add(schedule.NewDay(2024, time.March, 10))
	if s.Len() != 1 {
		t.Errorf("expected 1 entry, got %d", s.Len())
	}
}

func TestFixedClock_PinsToday(t *testing.T) {
	c := schedule.FixedClock{Day: schedule.NewDay(2024, time.March, 10)}
	if c.Today().Key() != "2024-03-10" {
		t.Errorf("expected pinned day, got %s", c.Today())
	}
}
