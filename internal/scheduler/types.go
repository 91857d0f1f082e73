// Package scheduler holds the domain types shared by the availability
// projection, the booking state machine and the gateways that talk to the
// remote scheduling service.
package scheduler

import (
	"fmt"
	"net/mail"
	"strings"
	"time"
)

// BookingStatusRequested is the status every new booking is created with.
const BookingStatusRequested = "requested"

// AccessToken is a bearer token returned by the token exchange.
type AccessToken string

// Resource is a bookable person, room or asset.
type Resource struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	PictureURL  string `json:"pic,omitempty"`
	Description string `json:"description,omitempty"`
}

// AvailabilityWindow is one bookable window as returned by the service.
// Start and End are UTC instants and Start is always before End.
type AvailabilityWindow struct {
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Resource Resource  `json:"resource"`
}

// Valid reports whether the window satisfies Start < End.
func (w AvailabilityWindow) Valid() bool {
	return !w.Start.IsZero() && w.Start.Before(w.End)
}

// Slot is an AvailabilityWindow projected into a display timezone and day.
// StartUTC and EndUTC are the source window's instants, never recomputed
// from DisplayLabel.
type Slot struct {
	DisplayLabel string    `json:"displayLabel"`
	StartUTC     time.Time `json:"startUtc"`
	EndUTC       time.Time `json:"endUtc"`
	Resource     Resource  `json:"resource"`
	CompoundKey  string    `json:"compoundKey"`
}

// Duration is the length of the underlying window.
func (s Slot) Duration() time.Duration {
	return s.EndUTC.Sub(s.StartUTC)
}

// Contact is the person the booking is made for.
type Contact struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

// Validate checks the required contact fields.
func (c Contact) Validate() error {
	var missing []string
	if strings.TrimSpace(c.FirstName) == "" {
		missing = append(missing, "first name")
	}
	if strings.TrimSpace(c.LastName) == "" {
		missing = append(missing, "last name")
	}
	if strings.TrimSpace(c.Email) == "" {
		missing = append(missing, "email")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidContact, strings.Join(missing, ", "))
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(c.Email)); err != nil {
		return fmt.Errorf("%w: invalid email %q", ErrInvalidContact, c.Email)
	}
	return nil
}

// BookingRequest is the payload sent to the booking endpoint.
type BookingRequest struct {
	StartUTC   time.Time
	EndUTC     time.Time
	ResourceID string
	Contact    Contact
	Status     string
}

// BookingConfirmation is what the service (or demo mode) returns for an
// accepted booking. ID is empty in demo mode.
type BookingConfirmation struct {
	ID       string    `json:"id,omitempty"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Status   string    `json:"status"`
	Resource Resource  `json:"resource"`
}

// AvailabilityQuery scopes an availability fetch to exactly one of a
// resource or a resource group over [Start, End).
type AvailabilityQuery struct {
	ResourceID      string
	ResourceGroupID string
	Start           time.Time
	End             time.Time
}

// Validate enforces the resource/group exclusivity before any network call.
func (q AvailabilityQuery) Validate() error {
	if err := validateTarget(q.ResourceID, q.ResourceGroupID); err != nil {
		return err
	}
	if !q.Start.Before(q.End) {
		return fmt.Errorf("%w: availability range start %s is not before end %s",
			ErrConfig, q.Start.Format(time.RFC3339), q.End.Format(time.RFC3339))
	}
	return nil
}

func validateTarget(resourceID, resourceGroupID string) error {
	hasResource := strings.TrimSpace(resourceID) != ""
	hasGroup := strings.TrimSpace(resourceGroupID) != ""
	switch {
	case hasResource && hasGroup:
		return fmt.Errorf("%w: both resourceId and resourceGroupId provided; pass only one", ErrConfig)
	case !hasResource && !hasGroup:
		return fmt.Errorf("%w: either resourceId or resourceGroupId must be provided", ErrConfig)
	}
	return nil
}
