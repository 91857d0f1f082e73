// Package slots projects raw UTC availability windows into the calendar days
// and time slots a user sees in their display timezone.
package slots

import (
	"sort"
	"time"

	"github.com/scheddev/sched-go/internal/scheduler"
)

// DaySet is a set of display-local calendar days.
type DaySet map[Date]struct{}

// Contains reports whether d is in the set.
func (s DaySet) Contains(d Date) bool {
	_, ok := s[d]
	return ok
}

// Sorted returns the days in ascending order.
func (s DaySet) Sorted() []Date {
	out := make([]Date, 0, len(s))
	for d := range s {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// ValidDays returns the distinct local dates, in loc, on which at least one
// window starts.
func ValidDays(windows []scheduler.AvailabilityWindow, loc *time.Location) DaySet {
	days := make(DaySet, len(windows))
	for _, w := range windows {
		days[LocalDate(w.Start, loc)] = struct{}{}
	}
	return days
}

// ProjectSlots maps the windows starting on selected (in loc) to slots,
// keeping the windows' relative order.
func ProjectSlots(windows []scheduler.AvailabilityWindow, selected Date, loc *time.Location) []scheduler.Slot {
	out := make([]scheduler.Slot, 0)
	for _, w := range windows {
		if LocalDate(w.Start, loc) != selected {
			continue
		}
		out = append(out, scheduler.Slot{
			DisplayLabel: DisplayLabel(w.Start, loc),
			StartUTC:     w.Start.UTC(),
			EndUTC:       w.End.UTC(),
			Resource:     w.Resource,
			CompoundKey:  CompoundKey(selected, w.Start, w.Resource.ID, loc),
		})
	}
	return out
}

// CompoundKey is a slot's identity: date, local HH:mm and resource id.
func CompoundKey(selected Date, start time.Time, resourceID string, loc *time.Location) string {
	return selected.String() + "-" + LocalClock(start, loc) + "-" + resourceID
}

// FindSlot returns the slot with the given compound key.
func FindSlot(slots []scheduler.Slot, key string) (scheduler.Slot, bool) {
	for _, s := range slots {
		if s.CompoundKey == key {
			return s, true
		}
	}
	return scheduler.Slot{}, false
}

// DayMarker flags a day that has availability on the month grid.
type DayMarker struct {
	Date  Date      `json:"date"`
	Start time.Time `json:"start"`
	Title string    `json:"title"`
}

type windowIdentity struct {
	start      int64
	resourceID string
}

// DayMarkers returns one marker per local day with availability, in input
// order. Windows sharing (start, resource id) are counted once.
func DayMarkers(windows []scheduler.AvailabilityWindow, loc *time.Location) []DayMarker {
	seenWindows := make(map[windowIdentity]struct{}, len(windows))
	seenDays := make(map[Date]struct{})
	markers := make([]DayMarker, 0)
	for _, w := range windows {
		id := windowIdentity{start: w.Start.UnixNano(), resourceID: w.Resource.ID}
		if _, dup := seenWindows[id]; dup {
			continue
		}
		seenWindows[id] = struct{}{}

		day := LocalDate(w.Start, loc)
		if _, ok := seenDays[day]; ok {
			continue
		}
		seenDays[day] = struct{}{}
		markers = append(markers, DayMarker{Date: day, Start: w.Start.UTC(), Title: "Available"})
	}
	return markers
}
