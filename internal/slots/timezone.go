package slots

import (
	"fmt"
	"strings"
	"time"

	"github.com/scheddev/sched-go/internal/scheduler"
)

const (
	clockLayout = "15:04"
	labelLayout = "3:04 PM"
)

// LoadZone resolves an IANA zone name. Empty means UTC.
func LoadZone(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.EqualFold(name, "utc") {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown timezone %q: %v", scheduler.ErrConfig, name, err)
	}
	return loc, nil
}

// LocalDate is the calendar day t falls on in loc. Every date bucket in this
// package goes through here.
func LocalDate(t time.Time, loc *time.Location) Date {
	lt := t.In(zoneOrUTC(loc))
	return Date{Year: lt.Year(), Month: lt.Month(), Day: lt.Day()}
}

// LocalClock is the 24h "HH:mm" wall clock of t in loc.
func LocalClock(t time.Time, loc *time.Location) string {
	return t.In(zoneOrUTC(loc)).Format(clockLayout)
}

// DisplayLabel is the 12h "3:04 PM" wall clock of t in loc.
func DisplayLabel(t time.Time, loc *time.Location) string {
	return t.In(zoneOrUTC(loc)).Format(labelLayout)
}

// StartOfDay is the UTC instant of local midnight starting d in loc.
func StartOfDay(d Date, loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, zoneOrUTC(loc)).UTC()
}

// EndOfDay is the UTC instant of local midnight ending d in loc.
func EndOfDay(d Date, loc *time.Location) time.Time {
	return StartOfDay(d.AddDays(1), loc)
}

func zoneOrUTC(loc *time.Location) *time.Location {
	if loc == nil {
		return time.UTC
	}
	return loc
}
