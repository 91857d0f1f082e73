package demo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scheddev/sched-go/internal/scheduler"
)

func TestGatewayNeverNeedsContext(t *testing.T) {
	g := NewGateway(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	token, err := g.ObtainToken(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, SentinelToken, token)

	// Monday
	start := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	windows, err := g.FetchAvailability(ctx, token, scheduler.AvailabilityQuery{ResourceID: "demo-ada", Start: start, End: start.AddDate(0, 0, 1)})
	require.NoError(t, err)
	require.Len(t, windows, closeHour-openHour)
	assert.Equal(t, "Ada Lovelace", windows[0].Resource.Name)
	assert.Equal(t, 9, windows[0].Start.Hour())
}

func TestWindowsSkipWeekendsAndRespectRange(t *testing.T) {
	// Saturday through Monday noon
	start := time.Date(2024, 6, 8, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	windows := Windows(scheduler.AvailabilityQuery{ResourceID: "X", Start: start, End: end})
	require.Len(t, windows, 3)
	for _, w := range windows {
		assert.Equal(t, time.Monday, w.Start.Weekday())
		assert.False(t, w.End.After(end))
		assert.Equal(t, "X", w.Resource.ID)
	}

	assert.Empty(t, Windows(scheduler.AvailabilityQuery{ResourceID: "X", Start: end, End: start}))
}

func TestWindowsForGroupAlternateResources(t *testing.T) {
	start := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	windows := Windows(scheduler.AvailabilityQuery{ResourceGroupID: "team", Start: start, End: start.AddDate(0, 0, 1)})
	require.Len(t, windows, closeHour-openHour)
	seen := map[string]bool{}
	for _, w := range windows {
		seen[w.Resource.ID] = true
	}
	assert.True(t, seen["demo-ada"])
	assert.True(t, seen["demo-grace"])
}

func TestGatewayValidatesQuery(t *testing.T) {
	g := NewGateway(nil)
	start := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	_, err := g.FetchAvailability(context.Background(), SentinelToken, scheduler.AvailabilityQuery{ResourceID: "a", ResourceGroupID: "b", Start: start, End: start.Add(time.Hour)})
	assert.ErrorIs(t, err, scheduler.ErrConfig)
}

func TestGatewayCreateBookingEchoes(t *testing.T) {
	g := NewGateway(nil)
	start := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)
	conf, err := g.CreateBooking(context.Background(), SentinelToken, scheduler.BookingRequest{
		StartUTC:   start,
		EndUTC:     start.Add(time.Hour),
		ResourceID: "demo-grace",
	})
	require.NoError(t, err)
	assert.Empty(t, conf.ID)
	assert.Equal(t, scheduler.BookingStatusRequested, conf.Status)
	assert.Equal(t, "Grace Hopper", conf.Resource.Name)
	assert.Equal(t, start, conf.Start)
}
