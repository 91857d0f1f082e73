package demo

import (
	"time"

	"github.com/scheddev/sched-go/internal/scheduler"
)

const (
	openHour   = 9
	closeHour  = 17
	slotLength = time.Hour
)

// Resources are the people offered by demo availability.
var Resources = []scheduler.Resource{
	{
		ID:          "demo-ada",
		Name:        "Ada Lovelace",
		PictureURL:  "https://images.sched.dev/demo/ada.png",
		Description: "Analytical engine consultations",
	},
	{
		ID:          "demo-grace",
		Name:        "Grace Hopper",
		PictureURL:  "https://images.sched.dev/demo/grace.png",
		Description: "Compiler and debugging sessions",
	},
}

func resourcesFor(q scheduler.AvailabilityQuery) []scheduler.Resource {
	if q.ResourceID == "" {
		return Resources
	}
	for _, r := range Resources {
		if r.ID == q.ResourceID {
			return []scheduler.Resource{r}
		}
	}
	return []scheduler.Resource{{ID: q.ResourceID, Name: "Demo Resource", Description: "Sample availability"}}
}

// Windows synthesizes hourly weekday windows between 09:00 and 17:00 UTC
// that lie fully inside [q.Start, q.End). Output is deterministic.
func Windows(q scheduler.AvailabilityQuery) []scheduler.AvailabilityWindow {
	out := make([]scheduler.AvailabilityWindow, 0)
	if !q.Start.Before(q.End) {
		return out
	}
	resources := resourcesFor(q)
	start := q.Start.UTC()
	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	for ; day.Before(q.End); day = day.AddDate(0, 0, 1) {
		if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		for h := openHour; h < closeHour; h++ {
			ws := day.Add(time.Duration(h) * time.Hour)
			we := ws.Add(slotLength)
			if ws.Before(q.Start) || we.After(q.End) {
				continue
			}
			for i, r := range resources {
				// group members alternate so the slot list stays readable
				if len(resources) > 1 && (h+i)%2 != 0 {
					continue
				}
				out = append(out, scheduler.AvailabilityWindow{Start: ws, End: we, Resource: r})
			}
		}
	}
	return out
}
