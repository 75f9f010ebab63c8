package period

import (
	"testing"
	"time"
)

func TestParseKind(t *testing.T) {
	cases := map[string]Kind{
		"day":     Day,
		"daily":   Day,
		"Week":    Week,
		"weekly":  Week,
		"month":   Month,
		"MONTHLY": Month,
	}
	for input, want := range cases {
		got, err := ParseKind(input)
		if err != nil {
			t.Fatalf("ParseKind(%q) returned error: %v", input, err)
		}
		if got != want {
			t.Fatalf("ParseKind(%q) = %v, want %v", input, got, want)
		}
	}

	if _, err := ParseKind("fortnight"); err == nil {
		t.Fatal("ParseKind should reject unknown kinds")
	}
}

func TestPreviousDay(t *testing.T) {
	now := time.Date(2024, time.March, 14, 9, 30, 0, 0, time.UTC)

	win, err := Previous(now, Day, time.UTC)
	if err != nil {
		t.Fatalf("Previous returned error: %v", err)
	}

	wantStart := time.Date(2024, time.March, 13, 0, 0, 0, 0, time.UTC)
	wantEnd := time.Date(2024, time.March, 13, 23, 59, 59, 999999999, time.UTC)

	if !win.Start.Equal(wantStart) {
		t.Fatalf("start = %v, want %v", win.Start, wantStart)
	}
	if !win.End.Equal(wantEnd) {
		t.Fatalf("end = %v, want %v", win.End, wantEnd)
	}
	if win.Key != "2024-03-13" {
		t.Fatalf("key = %q, want 2024-03-13", win.Key)
	}
}

func TestPreviousDayAcrossMonthStart(t *testing.T) {
	now := time.Date(2024, time.March, 1, 0, 5, 0, 0, time.UTC)

	win, err := Previous(now, Day, time.UTC)
	if err != nil {
		t.Fatalf("Previous returned error: %v", err)
	}

	// 2024 is a leap year.
	if win.Key != "2024-02-29" {
		t.Fatalf("key = %q, want 2024-02-29", win.Key)
	}
}

func TestPreviousWeek(t *testing.T) {
	now := time.Date(2024, time.March, 14, 12, 0, 0, 0, time.UTC)

	win, err := Previous(now, Week, time.UTC)
	if err != nil {
		t.Fatalf("Previous returned error: %v", err)
	}

	wantStart := time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)
	wantEnd := time.Date(2024, time.March, 10, 23, 59, 59, 999999999, time.UTC)

	if !win.Start.Equal(wantStart) {
		t.Fatalf("start = %v, want %v", win.Start, wantStart)
	}
	if !win.End.Equal(wantEnd) {
		t.Fatalf("end = %v, want %v", win.End, wantEnd)
	}
	if win.Key != "2024-W10" {
		t.Fatalf("key = %q, want 2024-W10", win.Key)
	}
}

func TestPreviousWeekFromMonday(t *testing.T) {
	// Running on a Monday must target the week that just ended, not the
	// week before it.
	now := time.Date(2024, time.March, 11, 6, 0, 0, 0, time.UTC)

	win, err := Previous(now, Week, time.UTC)
	if err != nil {
		t.Fatalf("Previous returned error: %v", err)
	}

	wantStart := time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)
	if !win.Start.Equal(wantStart) {
		t.Fatalf("start = %v, want %v", win.Start, wantStart)
	}
}

func TestPreviousWeekAcrossISOYear(t *testing.T) {
	// First ISO week of 2024: the previous week belongs to ISO year 2023.
	now := time.Date(2024, time.January, 5, 8, 0, 0, 0, time.UTC)

	win, err := Previous(now, Week, time.UTC)
	if err != nil {
		t.Fatalf("Previous returned error: %v", err)
	}

	wantStart := time.Date(2023, time.December, 25, 0, 0, 0, 0, time.UTC)
	wantEnd := time.Date(2023, time.December, 31, 23, 59, 59, 999999999, time.UTC)

	if !win.Start.Equal(wantStart) {
		t.Fatalf("start = %v, want %v", win.Start, wantStart)
	}
	if !win.End.Equal(wantEnd) {
		t.Fatalf("end = %v, want %v", win.End, wantEnd)
	}
	if win.Key != "2023-W52" {
		t.Fatalf("key = %q, want 2023-W52", win.Key)
	}
}

func TestPreviousMonth(t *testing.T) {
	now := time.Date(2024, time.March, 14, 12, 0, 0, 0, time.UTC)

	win, err := Previous(now, Month, time.UTC)
	if err != nil {
		t.Fatalf("Previous returned error: %v", err)
	}

	wantStart := time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)
	wantEnd := time.Date(2024, time.February, 29, 23, 59, 59, 999999999, time.UTC)

	if !win.Start.Equal(wantStart) {
		t.Fatalf("start = %v, want %v", win.Start, wantStart)
	}
	if !win.End.Equal(wantEnd) {
		t.Fatalf("end = %v, want %v", win.End, wantEnd)
	}
	if win.Key != "2024-02" {
		t.Fatalf("key = %q, want 2024-02", win.Key)
	}
}

func TestPreviousMonthAcrossYear(t *testing.T) {
	now := time.Date(2024, time.January, 3, 12, 0, 0, 0, time.UTC)

	win, err := Previous(now, Month, time.UTC)
	if err != nil {
		t.Fatalf("Previous returned error: %v", err)
	}

	wantStart := time.Date(2023, time.December, 1, 0, 0, 0, 0, time.UTC)
	wantEnd := time.Date(2023, time.December, 31, 23, 59, 59, 999999999, time.UTC)

	if !win.Start.Equal(wantStart) {
		t.Fatalf("start = %v, want %v", win.Start, wantStart)
	}
	if !win.End.Equal(wantEnd) {
		t.Fatalf("end = %v, want %v", win.End, wantEnd)
	}
	if win.Key != "2023-12" {
		t.Fatalf("key = %q, want 2023-12", win.Key)
	}
}

func TestPreviousIsDeterministic(t *testing.T) {
	now := time.Date(2024, time.June, 18, 23, 45, 0, 0, time.UTC)

	for _, kind := range []Kind{Day, Week, Month} {
		first, err := Previous(now, kind, time.UTC)
		if err != nil {
			t.Fatalf("Previous(%v) returned error: %v", kind, err)
		}
		second, err := Previous(now, kind, time.UTC)
		if err != nil {
			t.Fatalf("Previous(%v) returned error: %v", kind, err)
		}
		if !first.Start.Equal(second.Start) || !first.End.Equal(second.End) || first.Key != second.Key {
			t.Fatalf("Previous(%v) not deterministic: %+v vs %+v", kind, first, second)
		}
	}
}

func TestPreviousUsesReportingTimezone(t *testing.T) {
	// 23:30 UTC on March 13 is already March 14 in UTC+2, so "yesterday"
	// differs between the two zones.
	now := time.Date(2024, time.March, 13, 23, 30, 0, 0, time.UTC)
	plusTwo := time.FixedZone("UTC+2", 2*3600)

	utcWin, err := Previous(now, Day, time.UTC)
	if err != nil {
		t.Fatalf("Previous returned error: %v", err)
	}
	zonedWin, err := Previous(now, Day, plusTwo)
	if err != nil {
		t.Fatalf("Previous returned error: %v", err)
	}

	if utcWin.Key != "2024-03-12" {
		t.Fatalf("utc key = %q, want 2024-03-12", utcWin.Key)
	}
	if zonedWin.Key != "2024-03-13" {
		t.Fatalf("zoned key = %q, want 2024-03-13", zonedWin.Key)
	}
}
