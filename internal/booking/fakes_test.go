package booking

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/scheddev/sched-go/internal/scheduler"
)

var (
	resourceA = scheduler.Resource{ID: "R1", Name: "Room One", PictureURL: "https://x/r1.png", Description: "Quiet room"}
	resourceB = scheduler.Resource{ID: "R2", Name: "Room Two"}
)

func window(start string, r scheduler.Resource) scheduler.AvailabilityWindow {
	t, err := time.Parse(time.RFC3339, start)
	if err != nil {
		panic(err)
	}
	return scheduler.AvailabilityWindow{Start: t, End: t.Add(time.Hour), Resource: r}
}

// fakeGateway serves windows per query start day. A gate registered for a
// day blocks that fetch until released.
type fakeGateway struct {
	mu        sync.Mutex
	windows   []scheduler.AvailabilityWindow
	byDay     map[string][]scheduler.AvailabilityWindow
	gates     map[string]chan struct{}
	fetchErr  error
	tokenErr  error
	bookErr   error
	queries   []scheduler.AvailabilityQuery
	bookings  []scheduler.BookingRequest
	fetches   atomic.Int32
	bookCalls atomic.Int32
}

func newFakeGateway(windows ...scheduler.AvailabilityWindow) *fakeGateway {
	return &fakeGateway{
		windows: windows,
		byDay:   map[string][]scheduler.AvailabilityWindow{},
		gates:   map[string]chan struct{}{},
	}
}

func (g *fakeGateway) Name() string { return "fake" }

func (g *fakeGateway) ObtainToken(_ context.Context, clientID string) (scheduler.AccessToken, error) {
	if g.tokenErr != nil {
		return "", g.tokenErr
	}
	return scheduler.AccessToken("tok-" + clientID), nil
}

func (g *fakeGateway) gate(day string) chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch := make(chan struct{})
	g.gates[day] = ch
	return ch
}

func (g *fakeGateway) FetchAvailability(ctx context.Context, _ scheduler.AccessToken, q scheduler.AvailabilityQuery) ([]scheduler.AvailabilityWindow, error) {
	g.fetches.Add(1)
	day := q.Start.UTC().Format("2006-01-02")
	g.mu.Lock()
	g.queries = append(g.queries, q)
	gate := g.gates[day]
	err := g.fetchErr
	out, ok := g.byDay[day]
	if !ok {
		out = g.windows
	}
	g.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return append([]scheduler.AvailabilityWindow(nil), out...), nil
}

func (g *fakeGateway) CreateBooking(_ context.Context, _ scheduler.AccessToken, req scheduler.BookingRequest) (*scheduler.BookingConfirmation, error) {
	g.bookCalls.Add(1)
	g.mu.Lock()
	g.bookings = append(g.bookings, req)
	g.mu.Unlock()
	if g.bookErr != nil {
		return nil, g.bookErr
	}
	return &scheduler.BookingConfirmation{ID: "bk-1", Start: req.StartUTC, End: req.EndUTC, Status: req.Status, Resource: resourceA}, nil
}

func (g *fakeGateway) setFetchErr(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fetchErr = err
}

var errBoom = errors.New("boom")
