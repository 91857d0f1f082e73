package booking

import (
	"fmt"
	"strings"

	"github.com/scheddev/sched-go/internal/scheduler"
	"github.com/scheddev/sched-go/internal/slots"
)

// RangePolicy decides which days an availability fetch covers. Every policy
// covers the selected date.
type RangePolicy int

const (
	// RangeMonth loads today through one month ahead, rebased on the selected
	// date when that date falls outside it.
	RangeMonth RangePolicy = iota
	// RangeSingleDay loads only the selected day.
	RangeSingleDay
)

// ParseRangePolicy accepts "month" (the default for "") and "day".
func ParseRangePolicy(s string) (RangePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "month":
		return RangeMonth, nil
	case "day", "single-day", "single_day":
		return RangeSingleDay, nil
	}
	return RangeMonth, fmt.Errorf("%w: unknown range policy %q", scheduler.ErrConfig, s)
}

func (p RangePolicy) String() string {
	if p == RangeSingleDay {
		return "day"
	}
	return "month"
}

// Range returns the days [start, end) to fetch.
func (p RangePolicy) Range(today, selected slots.Date) (slots.Date, slots.Date) {
	if p == RangeSingleDay {
		return selected, selected.AddDays(1)
	}
	start := today
	end := today.AddMonths(1).AddDays(1)
	if selected.Before(start) || !selected.Before(end) {
		start = selected
		end = selected.AddMonths(1).AddDays(1)
	}
	return start, end
}
