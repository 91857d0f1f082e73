// Package booking drives a single booking session: authenticate, load
// availability, pick a day and a slot, fill the contact form and submit.
//
// State changes go through Reduce, a pure function from (Session, Event) to
// the next Session plus the side effects to run. Machine interprets those
// effects against a scheduler.Gateway and is the only writer of its Session.
package booking

import (
	"errors"
	"time"

	"github.com/scheddev/sched-go/internal/scheduler"
	"github.com/scheddev/sched-go/internal/slots"
)

var (
	// ErrInvalidTransition is returned when an event is not accepted in the
	// current screen. The session is left untouched.
	ErrInvalidTransition = errors.New("booking: event not allowed in current screen")
	// ErrUnknownSlot is returned when a compound key matches no projected slot.
	ErrUnknownSlot = errors.New("booking: no slot with that key")
	// ErrDateUnavailable is returned when a loaded day has no availability.
	ErrDateUnavailable = errors.New("booking: selected date has no availability")
)

// Screen is the step of the booking flow the session is on.
type Screen int

const (
	ScreenInitializing Screen = iota
	ScreenReady
	ScreenSlotSelected
	ScreenFormOpen
	ScreenSubmitting
	ScreenConfirmed
	ScreenError
)

var screenNames = map[Screen]string{
	ScreenInitializing: "initializing",
	ScreenReady:        "ready",
	ScreenSlotSelected: "slot_selected",
	ScreenFormOpen:     "form_open",
	ScreenSubmitting:   "submitting",
	ScreenConfirmed:    "confirmed",
	ScreenError:        "error",
}

func (s Screen) String() string {
	if name, ok := screenNames[s]; ok {
		return name
	}
	return "unknown"
}

// MarshalText renders the screen name.
func (s Screen) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Session is the complete state of one booking flow. Slots is always the
// projection of Windows onto SelectedDate in Location.
type Session struct {
	Config      scheduler.Config
	Policy      RangePolicy
	AccessToken scheduler.AccessToken
	Location    *time.Location

	Today        slots.Date
	SelectedDate slots.Date
	// RangeStart and RangeEnd bound the loaded windows, end exclusive.
	RangeStart slots.Date
	RangeEnd   slots.Date
	Windows    []scheduler.AvailabilityWindow
	Slots      []scheduler.Slot

	SelectedSlot *scheduler.Slot
	Screen       Screen
	Contact      scheduler.Contact
	LastBooking  *scheduler.BookingConfirmation
	LastError    error
	Generation   uint64

	starting bool
}

// NewSession returns a session in ScreenInitializing.
func NewSession(cfg scheduler.Config, policy RangePolicy, loc *time.Location) Session {
	if loc == nil {
		loc = time.UTC
	}
	return Session{
		Config:   cfg,
		Policy:   policy,
		Location: loc,
		Windows:  []scheduler.AvailabilityWindow{},
		Slots:    []scheduler.Slot{},
		Screen:   ScreenInitializing,
	}
}

// ValidDays lists the days with availability in the display timezone.
func (s Session) ValidDays() []slots.Date {
	return slots.ValidDays(s.Windows, s.Location).Sorted()
}

// TimezoneName is the IANA name of the display timezone.
func (s Session) TimezoneName() string {
	if s.Location == nil {
		return "UTC"
	}
	return s.Location.String()
}

func (s Session) inLoadedRange(d slots.Date) bool {
	if s.RangeStart.IsZero() {
		return false
	}
	return !d.Before(s.RangeStart) && d.Before(s.RangeEnd)
}

// clone copies everything a caller could mutate through the returned value.
func (s Session) clone() Session {
	out := s
	out.Windows = append([]scheduler.AvailabilityWindow(nil), s.Windows...)
	out.Slots = append([]scheduler.Slot(nil), s.Slots...)
	if out.Windows == nil {
		out.Windows = []scheduler.AvailabilityWindow{}
	}
	if out.Slots == nil {
		out.Slots = []scheduler.Slot{}
	}
	if s.SelectedSlot != nil {
		slot := *s.SelectedSlot
		out.SelectedSlot = &slot
	}
	if s.LastBooking != nil {
		conf := *s.LastBooking
		out.LastBooking = &conf
	}
	return out
}
