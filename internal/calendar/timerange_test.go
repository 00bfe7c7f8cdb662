package calendar

import (
	"testing"
	"time"
)

func mustTime(t *testing.T, year int, month time.Month, day, hour, min int) time.Time {
	t.Helper()
	return time.Date(year, month, day, hour, min, 0, 0, time.UTC)
}

func equalTimeRange(a, b TimeRange) bool {
	return a.Start.Equal(b.Start) && a.End.Equal(b.End)
}

func equalTimeRangeSlices(a, b []TimeRange) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !equalTimeRange(a[i], b[i]) {
			return false
		}
	}
	return true
}

func TestNewTimeRange_RejectsEmptyAndReversed(t *testing.T) {
	start := mustTime(t, 2025, 1, 1, 10, 0)

	if _, err := NewTimeRange(start, start); err != ErrInvalidTimeRange {
		t.Fatalf("expected ErrInvalidTimeRange for empty range, got %v", err)
	}
	if _, err := NewTimeRange(start, start.Add(-time.Hour)); err != ErrInvalidTimeRange {
		t.Fatalf("expected ErrInvalidTimeRange for reversed range, got %v", err)
	}
	if _, err := NewTimeRange(time.Time{}, start); err != ErrInvalidTimeRange {
		t.Fatalf("expected ErrInvalidTimeRange for zero start, got %v", err)
	}

	tr, err := NewTimeRange(start, start.Add(90*time.Minute))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if tr.Minutes() != 90 {
		t.Fatalf("expected 90 minutes, got %d", tr.Minutes())
	}
}

func TestOnDay_BuildsRangeFromOffsets(t *testing.T) {
	day := mustTime(t, 2025, 3, 14, 17, 45)

	tr := OnDay(day, 10*time.Hour, 11*time.Hour+30*time.Minute)

	want := TimeRange{Start: mustTime(t, 2025, 3, 14, 10, 0), End: mustTime(t, 2025, 3, 14, 11, 30)}
	if !equalTimeRange(tr, want) {
		t.Fatalf("expected %v, got %v", want, tr)
	}
}

func TestSplitToTimeSlots_DropsTail(t *testing.T) {
	tr := TimeRange{Start: mustTime(t, 2025, 1, 1, 8, 0), End: mustTime(t, 2025, 1, 1, 10, 30)}

	slots, err := SplitToTimeSlots(tr, time.Hour)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	want := []TimeRange{
		{Start: mustTime(t, 2025, 1, 1, 8, 0), End: mustTime(t, 2025, 1, 1, 9, 0)},
		{Start: mustTime(t, 2025, 1, 1, 9, 0), End: mustTime(t, 2025, 1, 1, 10, 0)},
	}
	if !equalTimeRangeSlices(slots, want) {
		t.Fatalf("expected %v, got %v", want, slots)
	}
}

func TestSplitToTimeSlots_InvalidDuration(t *testing.T) {
	tr := TimeRange{Start: mustTime(t, 2025, 1, 1, 8, 0), End: mustTime(t, 2025, 1, 1, 10, 0)}
	if _, err := SplitToTimeSlots(tr, 0); err != ErrSlotDuration {
		t.Fatalf("expected ErrSlotDuration, got %v", err)
	}
}

func TestHasOverlap_HalfOpen(t *testing.T) {
	existing := []TimeRange{
		{Start: mustTime(t, 2025, 1, 1, 10, 0), End: mustTime(t, 2025, 1, 1, 11, 0)},
	}

	overlapping := TimeRange{Start: mustTime(t, 2025, 1, 1, 10, 30), End: mustTime(t, 2025, 1, 1, 11, 30)}
	ok, conflicts := HasOverlap(overlapping, existing, false)
	if !ok || len(conflicts) != 1 {
		t.Fatalf("expected one conflict, got ok=%v conflicts=%v", ok, conflicts)
	}

	touching := TimeRange{Start: mustTime(t, 2025, 1, 1, 11, 0), End: mustTime(t, 2025, 1, 1, 12, 0)}
	if ok, _ := HasOverlap(touching, existing, false); ok {
		t.Fatalf("touching ranges must not overlap in half-open mode")
	}
	if ok, _ := HasOverlap(touching, existing, true); !ok {
		t.Fatalf("touching ranges must overlap in inclusive mode")
	}
}

func TestHasOverlap_Containment(t *testing.T) {
	outer := TimeRange{Start: mustTime(t, 2025, 1, 1, 9, 0), End: mustTime(t, 2025, 1, 1, 12, 0)}
	inner := TimeRange{Start: mustTime(t, 2025, 1, 1, 10, 0), End: mustTime(t, 2025, 1, 1, 10, 30)}
	a, _ := HasOverlap(outer, []TimeRange{inner}, false)
	b, _ := HasOverlap(inner, []TimeRange{outer}, false)
	if !a || !b {
		t.Fatalf("containment must be reported as overlap in both directions")
	}
}

func TestOpeningHoursViolation(t *testing.T) {
	if reason := OpeningHoursViolation(8*time.Hour, 22*time.Hour, 8, 22); reason != "" {
		t.Fatalf("boundary range must be accepted, got %q", reason)
	}
	// Минуты внутри граничного часа не проверяются.
	if reason := OpeningHoursViolation(8*time.Hour, 22*time.Hour+30*time.Minute, 8, 22); reason != "" {
		t.Fatalf("minutes within closing hour must be accepted, got %q", reason)
	}
	if reason := OpeningHoursViolation(7*time.Hour, 9*time.Hour, 8, 22); reason == "" {
		t.Fatalf("expected violation for start before opening")
	}
	if reason := OpeningHoursViolation(21*time.Hour, 23*time.Hour, 8, 22); reason == "" {
		t.Fatalf("expected violation for end after closing")
	}
	if reason := OpeningHoursViolation(5*time.Hour, 6*time.Hour, 8, 22); reason == "" {
		t.Fatalf("expected violation for range entirely outside")
	}
}

func TestCancellationAllowed(t *testing.T) {
	now := mustTime(t, 2025, 6, 1, 12, 0)
	window := 3 * time.Hour

	if CancellationAllowed(now, now.Add(2*time.Hour), window) {
		t.Fatalf("start in 2h must not be cancellable")
	}
	if !CancellationAllowed(now, now.Add(4*time.Hour), window) {
		t.Fatalf("start in 4h must be cancellable")
	}
	if !CancellationAllowed(now, now.Add(3*time.Hour), window) {
		t.Fatalf("start exactly at the window edge must be cancellable")
	}
}

func TestInLocation_UsesCalendarDate(t *testing.T) {
	loc := time.FixedZone("UTC+1", 3600)
	day := mustTime(t, 2025, 6, 1, 0, 0)

	got := InLocation(day, 10*time.Hour, loc)
	want := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestFormatSlotForUser(t *testing.T) {
	tr := TimeRange{Start: mustTime(t, 2025, 1, 6, 10, 0), End: mustTime(t, 2025, 1, 6, 11, 30)}
	got := FormatSlotForUser(tr)
	want := "Lundi, 06/01/2025, 10:00–11:30"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestUTCDate_KeepsCalendarDay(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	// 02:00 по местному времени — это ещё предыдущий день в UTC,
	// но календарная дата должна остаться местной.
	local := time.Date(2025, 3, 10, 2, 0, 0, 0, loc)

	got := UTCDate(local)
	want := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) || got.Location() != time.UTC {
		t.Fatalf("expected %v, got %v", want, got)
	}
}
