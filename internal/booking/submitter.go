package booking

import (
	"context"
	"errors"
	"strings"

	"github.com/scheddev/sched-go/internal/scheduler"
	"github.com/scheddev/sched-go/pkg/logging"
)

// Submitter turns a selected slot and contact details into a booking.
// Whether that reaches the network depends only on the gateway it was built
// with.
type Submitter struct {
	gateway scheduler.Gateway
	logger  *logging.Logger
}

// NewSubmitter creates a submitter for gw.
func NewSubmitter(gw scheduler.Gateway, logger *logging.Logger) *Submitter {
	if logger == nil {
		logger = logging.Default()
	}
	return &Submitter{gateway: gw, logger: logger.Component("booking-submitter")}
}

// Submit validates the selection and contact, then creates the booking.
// Validation failures never reach the gateway.
func (s *Submitter) Submit(ctx context.Context, token scheduler.AccessToken, slot *scheduler.Slot, contact scheduler.Contact) (*scheduler.BookingConfirmation, error) {
	if slot == nil {
		return nil, scheduler.ErrNoSlotSelected
	}
	if strings.TrimSpace(slot.Resource.ID) == "" {
		return nil, scheduler.ErrNoResourceID
	}
	if err := contact.Validate(); err != nil {
		return nil, err
	}

	req := scheduler.BookingRequest{
		StartUTC:   slot.StartUTC,
		EndUTC:     slot.EndUTC,
		ResourceID: slot.Resource.ID,
		Contact:    contact,
		Status:     scheduler.BookingStatusRequested,
	}
	conf, err := s.gateway.CreateBooking(ctx, token, req)
	if err != nil {
		s.logger.Warn("booking submission failed",
			"gateway", s.gateway.Name(),
			"resource_id", req.ResourceID,
			"start", req.StartUTC,
			"error", err,
		)
		var be *scheduler.BookingError
		if !errors.As(err, &be) {
			err = &scheduler.BookingError{Err: err}
		}
		return nil, err
	}
	s.logger.Info("booking submitted",
		"gateway", s.gateway.Name(),
		"booking_id", conf.ID,
		"resource_id", req.ResourceID,
		"start", req.StartUTC,
	)
	return conf, nil
}
