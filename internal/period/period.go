// Package period derives reporting windows for consumption rollups.
//
// A window always covers the period immediately preceding the one that
// contains the reference instant: yesterday, last ISO week (Monday to
// Sunday), or last calendar month. Every window carries a canonical string
// key used as the aggregate's storage identity, so re-running a rollup for
// the same instant always targets the same record.
package period

import (
	"fmt"
	"strings"
	"time"
)

// Kind selects the rollup granularity.
type Kind int

const (
	Day Kind = iota
	Week
	Month
)

// String returns the canonical lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case Day:
		return "day"
	case Week:
		return "week"
	case Month:
		return "month"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind converts a command-line argument into a Kind.
func ParseKind(value string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "day", "daily":
		return Day, nil
	case "week", "weekly":
		return Week, nil
	case "month", "monthly":
		return Month, nil
	default:
		return 0, fmt.Errorf("unknown period kind %q (want day, week, or month)", value)
	}
}

// Window is one inclusive [Start, End] aggregation range plus its key.
type Window struct {
	Start time.Time
	End   time.Time
	Key   string
}

// Previous computes the window of the period immediately before the one
// containing now, in the given reporting timezone. It is a pure function of
// its arguments.
func Previous(now time.Time, kind Kind, loc *time.Location) (Window, error) {
	if loc == nil {
		loc = time.Local
	}
	local := now.In(loc)

	switch kind {
	case Day:
		return previousDay(local, loc), nil
	case Week:
		return previousWeek(local, loc), nil
	case Month:
		return previousMonth(local, loc), nil
	default:
		return Window{}, fmt.Errorf("unknown period kind %d", int(kind))
	}
}

func previousDay(local time.Time, loc *time.Location) Window {
	year, month, day := local.Date()
	start := time.Date(year, month, day-1, 0, 0, 0, 0, loc)
	end := time.Date(year, month, day, 0, 0, 0, 0, loc).Add(-time.Nanosecond)
	return Window{
		Start: start,
		End:   end,
		Key:   start.Format("2006-01-02"),
	}
}

func previousWeek(local time.Time, loc *time.Location) Window {
	// Monday-based offset: Monday=0 .. Sunday=6.
	offset := (int(local.Weekday()) + 6) % 7
	year, month, day := local.Date()
	thisMonday := time.Date(year, month, day-offset, 0, 0, 0, 0, loc)

	start := thisMonday.AddDate(0, 0, -7)
	end := thisMonday.Add(-time.Nanosecond)

	isoYear, isoWeek := start.ISOWeek()
	return Window{
		Start: start,
		End:   end,
		Key:   fmt.Sprintf("%d-W%02d", isoYear, isoWeek),
	}
}

func previousMonth(local time.Time, loc *time.Location) Window {
	year, month, _ := local.Date()
	firstOfCurrent := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	start := firstOfCurrent.AddDate(0, -1, 0)
	end := firstOfCurrent.Add(-time.Nanosecond)
	return Window{
		Start: start,
		End:   end,
		Key:   start.Format("2006-01"),
	}
}
