package booking

import (
	"errors"
	"log/slog"
	"time"

	"github.com/scheddev/sched-go/internal/scheduler"
	"github.com/scheddev/sched-go/internal/slots"
)

// Event is an input to Reduce.
type Event interface{ isEvent() }

// Started begins initialization. Today is the current date in the display
// timezone and becomes the selected date when none was set.
type Started struct{ Today slots.Date }

// TokenObtained carries the access token from the auth step.
type TokenObtained struct{ Token scheduler.AccessToken }

// InitFailed ends initialization with a fatal error.
type InitFailed struct{ Err error }

// DateSelected is a click on a calendar day.
type DateSelected struct{ Date slots.Date }

// AvailabilityLoaded is the result of the fetch tagged Generation.
type AvailabilityLoaded struct {
	Generation uint64
	RangeStart slots.Date
	RangeEnd   slots.Date
	Windows    []scheduler.AvailabilityWindow
}

// AvailabilityFailed is the failure of the fetch tagged Generation.
type AvailabilityFailed struct {
	Generation uint64
	Err        error
}

// TimezoneChanged switches the display timezone.
type TimezoneChanged struct{ Location *time.Location }

// SlotChosen picks the slot with the given compound key.
type SlotChosen struct{ Key string }

// NextPressed advances from slot selection to the contact form.
type NextPressed struct{}

// ContactEdited updates the form fields without submitting.
type ContactEdited struct{ Contact scheduler.Contact }

// FormSubmitted submits the form.
type FormSubmitted struct{ Contact scheduler.Contact }

// BookingSucceeded carries the confirmation of a submitted booking.
type BookingSucceeded struct{ Confirmation scheduler.BookingConfirmation }

// BookingFailed carries the error of a submitted booking.
type BookingFailed struct{ Err error }

func (Started) isEvent()            {}
func (TokenObtained) isEvent()      {}
func (InitFailed) isEvent()         {}
func (DateSelected) isEvent()       {}
func (AvailabilityLoaded) isEvent() {}
func (AvailabilityFailed) isEvent() {}
func (TimezoneChanged) isEvent()    {}
func (SlotChosen) isEvent()         {}
func (NextPressed) isEvent()        {}
func (ContactEdited) isEvent()      {}
func (FormSubmitted) isEvent()      {}
func (BookingSucceeded) isEvent()   {}
func (BookingFailed) isEvent()      {}

// Effect is work Reduce asks the driver to do.
type Effect interface{ isEffect() }

// AuthEffect requests a token exchange.
type AuthEffect struct{ ClientID string }

// FetchEffect requests availability. Its result must come back tagged with
// Generation.
type FetchEffect struct {
	Generation uint64
	Token      scheduler.AccessToken
	RangeStart slots.Date
	RangeEnd   slots.Date
	Query      scheduler.AvailabilityQuery
}

// SubmitEffect requests a booking for Slot.
type SubmitEffect struct {
	Token   scheduler.AccessToken
	Slot    scheduler.Slot
	Contact scheduler.Contact
}

// LogEffect is a non-fatal condition worth a log line.
type LogEffect struct {
	Level slog.Level
	Msg   string
	Args  []any
}

// Rejected means the event was refused and the session did not change.
type Rejected struct{ Err error }

// Discarded means a fetch result arrived for an outdated generation.
type Discarded struct {
	Generation uint64
	Current    uint64
}

func (AuthEffect) isEffect()   {}
func (FetchEffect) isEffect()  {}
func (SubmitEffect) isEffect() {}
func (LogEffect) isEffect()    {}
func (Rejected) isEffect()     {}
func (Discarded) isEffect()    {}

// Reduce applies ev to s. It never mutates s and never performs I/O.
func Reduce(s Session, ev Event) (Session, []Effect) {
	switch e := ev.(type) {
	case Started:
		return s.onStarted(e)
	case TokenObtained:
		return s.onTokenObtained(e)
	case InitFailed:
		s.Screen = ScreenError
		s.LastError = e.Err
		s.starting = false
		return s, nil
	case DateSelected:
		return s.onDateSelected(e)
	case AvailabilityLoaded:
		return s.onAvailabilityLoaded(e)
	case AvailabilityFailed:
		return s.onAvailabilityFailed(e)
	case TimezoneChanged:
		return s.onTimezoneChanged(e)
	case SlotChosen:
		return s.onSlotChosen(e)
	case NextPressed:
		return s.onNextPressed()
	case ContactEdited:
		if s.Screen != ScreenFormOpen {
			return reject(s, ErrInvalidTransition, "contact edit outside the form ignored")
		}
		s.Contact = e.Contact
		return s, nil
	case FormSubmitted:
		return s.onFormSubmitted(e)
	case BookingSucceeded:
		if s.Screen != ScreenSubmitting {
			return reject(s, ErrInvalidTransition, "booking result without a pending submission")
		}
		conf := e.Confirmation
		s.LastBooking = &conf
		s.LastError = nil
		s.Screen = ScreenConfirmed
		return s, nil
	case BookingFailed:
		if s.Screen != ScreenSubmitting {
			return reject(s, ErrInvalidTransition, "booking result without a pending submission")
		}
		s.LastError = e.Err
		s.Screen = ScreenFormOpen
		return s, nil
	}
	return s, nil
}

func (s Session) onStarted(e Started) (Session, []Effect) {
	if s.Screen != ScreenInitializing || s.starting || s.AccessToken != "" {
		return reject(s, ErrInvalidTransition, "session already started")
	}
	s.starting = true
	s.Today = e.Today
	if s.SelectedDate.IsZero() {
		s.SelectedDate = e.Today
	}
	return s, []Effect{AuthEffect{ClientID: s.Config.ClientID}}
}

func (s Session) onTokenObtained(e TokenObtained) (Session, []Effect) {
	if s.Screen != ScreenInitializing || !s.starting {
		return reject(s, ErrInvalidTransition, "token outside initialization ignored")
	}
	s.AccessToken = e.Token
	s, fetch := s.nextFetch()
	return s, []Effect{fetch}
}

func (s Session) onDateSelected(e DateSelected) (Session, []Effect) {
	if !s.browsing() {
		return reject(s, ErrInvalidTransition, "date change ignored", "screen", s.Screen.String())
	}
	if s.Policy == RangeMonth && s.inLoadedRange(e.Date) && !slots.ValidDays(s.Windows, s.Location).Contains(e.Date) {
		return reject(s, ErrDateUnavailable, "date without availability ignored", "date", e.Date.String())
	}
	s.SelectedDate = e.Date
	s = s.reproject()
	s, fetch := s.nextFetch()
	return s, []Effect{fetch}
}

func (s Session) onAvailabilityLoaded(e AvailabilityLoaded) (Session, []Effect) {
	if e.Generation != s.Generation {
		return s, []Effect{Discarded{Generation: e.Generation, Current: s.Generation}}
	}
	s.Windows = append([]scheduler.AvailabilityWindow{}, e.Windows...)
	s.RangeStart = e.RangeStart
	s.RangeEnd = e.RangeEnd
	if errors.Is(s.LastError, scheduler.ErrAvailabilityFetch) {
		s.LastError = nil
	}
	if s.Screen == ScreenInitializing {
		s.Screen = ScreenReady
		s.starting = false
	}
	s = s.reproject()
	return s, []Effect{LogEffect{
		Level: slog.LevelDebug,
		Msg:   "availability applied",
		Args:  []any{"generation", e.Generation, "windows", len(s.Windows), "slots", len(s.Slots)},
	}}
}

func (s Session) onAvailabilityFailed(e AvailabilityFailed) (Session, []Effect) {
	if e.Generation != s.Generation {
		return s, []Effect{Discarded{Generation: e.Generation, Current: s.Generation}}
	}
	s.LastError = e.Err
	if s.Screen == ScreenInitializing {
		s.Screen = ScreenReady
		s.starting = false
		s = s.reproject()
	}
	return s, []Effect{LogEffect{
		Level: slog.LevelWarn,
		Msg:   "availability fetch failed; keeping previous windows",
		Args:  []any{"generation", e.Generation, "error", e.Err},
	}}
}

func (s Session) onTimezoneChanged(e TimezoneChanged) (Session, []Effect) {
	if e.Location == nil {
		return reject(s, scheduler.ErrConfig, "empty timezone ignored")
	}
	switch {
	case s.Screen == ScreenInitializing:
		s.Location = e.Location
		return s, nil
	case !s.browsing():
		return reject(s, ErrInvalidTransition, "timezone change ignored", "screen", s.Screen.String())
	}
	s.Location = e.Location
	return s.reproject(), nil
}

func (s Session) onSlotChosen(e SlotChosen) (Session, []Effect) {
	if s.Screen != ScreenReady && s.Screen != ScreenSlotSelected {
		return reject(s, ErrInvalidTransition, "slot selection ignored", "screen", s.Screen.String())
	}
	slot, ok := slots.FindSlot(s.Slots, e.Key)
	if !ok {
		return reject(s, ErrUnknownSlot, "unknown slot key ignored", "key", e.Key)
	}
	s.SelectedSlot = &slot
	s.Screen = ScreenSlotSelected
	return s, nil
}

func (s Session) onNextPressed() (Session, []Effect) {
	if s.SelectedSlot == nil {
		return reject(s, scheduler.ErrNoSlotSelected, "next pressed without a selected slot")
	}
	if s.Screen != ScreenSlotSelected {
		return reject(s, ErrInvalidTransition, "next ignored", "screen", s.Screen.String())
	}
	s.Screen = ScreenFormOpen
	return s, nil
}

func (s Session) onFormSubmitted(e FormSubmitted) (Session, []Effect) {
	if s.Screen != ScreenFormOpen {
		return reject(s, ErrInvalidTransition, "submit outside the form ignored", "screen", s.Screen.String())
	}
	s.Contact = e.Contact
	if s.SelectedSlot == nil {
		s.LastError = scheduler.ErrNoSlotSelected
		return s, []Effect{Rejected{Err: scheduler.ErrNoSlotSelected}}
	}
	s.Screen = ScreenSubmitting
	s.LastError = nil
	return s, []Effect{SubmitEffect{Token: s.AccessToken, Slot: *s.SelectedSlot, Contact: e.Contact}}
}

// browsing reports whether date and timezone changes are accepted.
func (s Session) browsing() bool {
	return s.Screen == ScreenReady || s.Screen == ScreenSlotSelected || s.Screen == ScreenFormOpen
}

// nextFetch bumps the generation and builds the fetch covering SelectedDate.
func (s Session) nextFetch() (Session, FetchEffect) {
	start, end := s.Policy.Range(s.Today, s.SelectedDate)
	s.Generation++
	q := s.Config.Query()
	q.Start = slots.StartOfDay(start, s.Location)
	q.End = slots.StartOfDay(end, s.Location)
	return s, FetchEffect{
		Generation: s.Generation,
		Token:      s.AccessToken,
		RangeStart: start,
		RangeEnd:   end,
		Query:      q,
	}
}

// reproject recomputes Slots and drops a selection whose key disappeared.
func (s Session) reproject() Session {
	s.Slots = slots.ProjectSlots(s.Windows, s.SelectedDate, s.Location)
	if s.SelectedSlot == nil || s.Screen == ScreenSubmitting || s.Screen == ScreenConfirmed {
		return s
	}
	if slot, ok := slots.FindSlot(s.Slots, s.SelectedSlot.CompoundKey); ok {
		s.SelectedSlot = &slot
		return s
	}
	s.SelectedSlot = nil
	if s.Screen == ScreenSlotSelected || s.Screen == ScreenFormOpen {
		s.Screen = ScreenReady
		s.Contact = scheduler.Contact{}
	}
	return s
}

func reject(s Session, err error, msg string, args ...any) (Session, []Effect) {
	return s, []Effect{
		LogEffect{Level: slog.LevelInfo, Msg: msg, Args: args},
		Rejected{Err: err},
	}
}
