package booking

import (
	"fmt"
	"time"

	"github.com/scheddev/sched-go/internal/scheduler"
	"github.com/scheddev/sched-go/internal/slots"
)

// ServiceName is the service label shown on the booking form.
const ServiceName = "Consultation"

// Details summarizes a slot for the booking form.
type Details struct {
	Date        string        `json:"date"`
	Time        string        `json:"time"`
	Duration    time.Duration `json:"duration"`
	ResourceID  string        `json:"resourceId"`
	Resource    string        `json:"resource"`
	PictureURL  string        `json:"pictureUrl,omitempty"`
	Description string        `json:"description,omitempty"`
	Service     string        `json:"service"`
}

// DurationLabel renders the duration in minutes, e.g. "60 minutes".
func (d Details) DurationLabel() string {
	return fmt.Sprintf("%d minutes", int(d.Duration.Minutes()))
}

// DetailsFor describes slot as seen in loc.
func DetailsFor(slot scheduler.Slot, loc *time.Location) Details {
	return Details{
		Date:        slots.LocalDate(slot.StartUTC, loc).Long(),
		Time:        slots.DisplayLabel(slot.StartUTC, loc),
		Duration:    slot.Duration(),
		ResourceID:  slot.Resource.ID,
		Resource:    slot.Resource.Name,
		PictureURL:  slot.Resource.PictureURL,
		Description: slot.Resource.Description,
		Service:     ServiceName,
	}
}
