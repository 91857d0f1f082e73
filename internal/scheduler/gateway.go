package scheduler

import "context"

// Gateway is the remote scheduling service boundary. The live HTTP client
// and the demo substitute both satisfy it; one is chosen at construction.
type Gateway interface {
	// Name identifies the implementation in logs (e.g. "remote", "demo").
	Name() string

	// ObtainToken exchanges a client id for an access token. Failures wrap ErrAuth.
	ObtainToken(ctx context.Context, clientID string) (AccessToken, error)

	// FetchAvailability returns the windows for the query. It never returns a
	// nil slice on success. Failures wrap ErrConfig or ErrAvailabilityFetch.
	FetchAvailability(ctx context.Context, token AccessToken, q AvailabilityQuery) ([]AvailabilityWindow, error)

	// CreateBooking submits a booking request. Failures wrap ErrBookingSubmission.
	CreateBooking(ctx context.Context, token AccessToken, req BookingRequest) (*BookingConfirmation, error)
}
