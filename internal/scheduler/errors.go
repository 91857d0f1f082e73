package scheduler

import (
	"errors"
	"strings"
)

// DefaultBookingErrorMessage is shown when the service gave no usable message.
const DefaultBookingErrorMessage = "There was an error in booking. Please try again later."

var (
	// ErrConfig marks invalid or missing initialization options.
	ErrConfig = errors.New("scheduler: invalid configuration")
	// ErrAuth marks a failed token exchange. Fatal to the session.
	ErrAuth = errors.New("scheduler: failed to obtain access token")
	// ErrAvailabilityFetch marks a failed availability fetch. Recoverable.
	ErrAvailabilityFetch = errors.New("scheduler: failed to fetch availability")
	// ErrNoSlotSelected is returned when advancing or submitting without a slot.
	ErrNoSlotSelected = errors.New("no slot selected for booking")
	// ErrNoResourceID is returned when the selected slot has no resource id.
	ErrNoResourceID = errors.New("no resource id found for the selected slot")
	// ErrInvalidContact marks missing or malformed contact fields.
	ErrInvalidContact = errors.New("invalid contact details")
	// ErrBookingSubmission marks a rejected or failed booking call.
	ErrBookingSubmission = errors.New("scheduler: booking submission failed")
	// ErrSessionClosed is returned for any call after teardown.
	ErrSessionClosed = errors.New("scheduler: session closed")
)

// BookingError carries the message to show the user for a failed booking.
type BookingError struct {
	Status  int
	Message string
	Err     error
}

func (e *BookingError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = DefaultBookingErrorMessage
	}
	if e.Err != nil {
		return ErrBookingSubmission.Error() + ": " + msg + ": " + e.Err.Error()
	}
	return ErrBookingSubmission.Error() + ": " + msg
}

// Unwrap exposes both the sentinel and the cause to errors.Is.
func (e *BookingError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrBookingSubmission}
	}
	return []error{ErrBookingSubmission, e.Err}
}

// UserMessage returns short user-facing text for err. The remote message is
// preferred when one was captured.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var be *BookingError
	if errors.As(err, &be) && strings.TrimSpace(be.Message) != "" {
		return be.Message
	}
	switch {
	case errors.Is(err, ErrNoSlotSelected):
		return "No slot selected for booking."
	case errors.Is(err, ErrNoResourceID):
		return "No resource ID found for the selected slot."
	case errors.Is(err, ErrInvalidContact):
		return "Please enter your first name, last name and a valid email address."
	case errors.Is(err, ErrAvailabilityFetch):
		return "Availability could not be loaded. Showing the last known times."
	}
	return DefaultBookingErrorMessage
}
