// Package demo provides the offline substitute for the scheduling service:
// a Gateway that never touches the network and a mock HTTP service that
// speaks the real wire protocol for the "local" environment.
package demo

import (
	"context"

	"github.com/scheddev/sched-go/internal/scheduler"
	"github.com/scheddev/sched-go/pkg/logging"
)

// SentinelToken is the access token every demo session uses.
const SentinelToken scheduler.AccessToken = "demo-access-token"

// Gateway is the demo-mode scheduler.Gateway. It synthesizes availability
// and echoes bookings back without any network call.
type Gateway struct {
	logger *logging.Logger
}

var _ scheduler.Gateway = (*Gateway)(nil)

// NewGateway creates a demo gateway.
func NewGateway(logger *logging.Logger) *Gateway {
	if logger == nil {
		logger = logging.Default()
	}
	return &Gateway{logger: logger.Component("demo")}
}

// Name returns "demo".
func (g *Gateway) Name() string { return "demo" }

// ObtainToken returns SentinelToken.
func (g *Gateway) ObtainToken(_ context.Context, _ string) (scheduler.AccessToken, error) {
	return SentinelToken, nil
}

// FetchAvailability returns deterministic sample windows for the query.
func (g *Gateway) FetchAvailability(_ context.Context, _ scheduler.AccessToken, q scheduler.AvailabilityQuery) ([]scheduler.AvailabilityWindow, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	windows := Windows(q)
	g.logger.Debug("demo availability synthesized", "windows", len(windows))
	return windows, nil
}

// CreateBooking echoes req as a confirmation with no server id.
func (g *Gateway) CreateBooking(_ context.Context, _ scheduler.AccessToken, req scheduler.BookingRequest) (*scheduler.BookingConfirmation, error) {
	status := req.Status
	if status == "" {
		status = scheduler.BookingStatusRequested
	}
	g.logger.Info("demo booking confirmed", "resource_id", req.ResourceID, "start", req.StartUTC)
	return &scheduler.BookingConfirmation{
		Start:    req.StartUTC,
		End:      req.EndUTC,
		Status:   status,
		Resource: resourceByID(req.ResourceID),
	}, nil
}

func resourceByID(id string) scheduler.Resource {
	for _, r := range Resources {
		if r.ID == id {
			return r
		}
	}
	return scheduler.Resource{ID: id, Name: "Demo Resource"}
}
