package booking

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scheddev/sched-go/internal/demo"
	"github.com/scheddev/sched-go/internal/observability/metrics"
	"github.com/scheddev/sched-go/internal/scheduler"
	"github.com/scheddev/sched-go/internal/slots"
)

var (
	mondayMorning = time.Date(2024, 6, 10, 8, 0, 0, 0, time.UTC)
	validContact  = scheduler.Contact{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"}
)

func fixedClock() time.Time { return mondayMorning }

func newMachine(t *testing.T, gw scheduler.Gateway, opts ...Option) *Machine {
	t.Helper()
	opts = append([]Option{WithClock(fixedClock)}, opts...)
	m := New(testConfig(t), gw, opts...)
	t.Cleanup(m.Close)
	return m
}

func staleCount(t *testing.T, reg *prometheus.Registry) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() == "sched_session_stale_fetches_total" {
			return f.GetMetric()[0].GetCounter().GetValue()
		}
	}
	return 0
}

func TestMachineDemoFlowNeverTouchesNetwork(t *testing.T) {
	m := newMachine(t, demo.NewGateway(nil))
	ctx := context.Background()

	require.NoError(t, m.Start(ctx))
	s := m.Snapshot()
	assert.Equal(t, ScreenReady, s.Screen)
	assert.Equal(t, demo.SentinelToken, s.AccessToken)
	assert.Contains(t, s.ValidDays(), slots.MustParseDate("2024-06-10"))
	assert.NotContains(t, s.ValidDays(), slots.MustParseDate("2024-06-15"))
	require.NotEmpty(t, s.Slots)

	slot := s.Slots[0]
	require.NoError(t, m.SelectSlot(slot.CompoundKey))
	require.NoError(t, m.Next())
	require.NoError(t, m.Submit(ctx, validContact))

	s = m.Snapshot()
	assert.Equal(t, ScreenConfirmed, s.Screen)
	require.NotNil(t, s.LastBooking)
	assert.Empty(t, s.LastBooking.ID)
	assert.True(t, slot.StartUTC.Equal(s.LastBooking.Start))
	assert.True(t, slot.EndUTC.Equal(s.LastBooking.End))
}

func TestMachineLatestFetchWins(t *testing.T) {
	gw := newFakeGateway(window("2024-06-10T09:00:00Z", resourceA))
	gw.byDay["2024-06-11"] = []scheduler.AvailabilityWindow{window("2024-06-11T09:00:00Z", resourceA)}
	gw.byDay["2024-06-12"] = []scheduler.AvailabilityWindow{window("2024-06-12T10:00:00Z", resourceA)}
	reg := prometheus.NewRegistry()
	m := newMachine(t, gw, WithRangePolicy(RangeSingleDay), WithMetrics(metrics.NewSchedulerMetrics(reg)))
	ctx := context.Background()
	require.NoError(t, m.Start(ctx))

	gate1 := gw.gate("2024-06-11")
	gate2 := gw.gate("2024-06-12")
	first := m.SelectDateAsync(ctx, slots.MustParseDate("2024-06-11"))
	second := m.SelectDateAsync(ctx, slots.MustParseDate("2024-06-12"))

	close(gate2)
	require.NoError(t, <-second)
	s := m.Snapshot()
	assert.Equal(t, slots.MustParseDate("2024-06-12"), s.SelectedDate)
	require.Len(t, s.Slots, 1)
	assert.Equal(t, "10:00 AM", s.Slots[0].DisplayLabel)

	close(gate1)
	require.NoError(t, <-first)
	s = m.Snapshot()
	assert.Equal(t, slots.MustParseDate("2024-06-12"), s.SelectedDate)
	require.Len(t, s.Windows, 1)
	assert.Equal(t, "2024-06-12-10:00-R1", s.Slots[0].CompoundKey)
	assert.Equal(t, float64(1), staleCount(t, reg))
}

func TestMachineCloseDropsPendingResults(t *testing.T) {
	gw := newFakeGateway(window("2024-06-10T09:00:00Z", resourceA))
	var mu sync.Mutex
	notified := 0
	m := newMachine(t, gw, WithRangePolicy(RangeSingleDay), WithObserver(ObserverFunc(func(context.Context, Session) {
		mu.Lock()
		notified++
		mu.Unlock()
	})))
	ctx := context.Background()
	require.NoError(t, m.Start(ctx))

	gw.gate("2024-06-11")
	pending := m.SelectDateAsync(ctx, slots.MustParseDate("2024-06-11"))
	mu.Lock()
	before := notified
	mu.Unlock()

	m.Close()
	select {
	case err := <-pending:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("pending fetch was not released by Close")
	}

	mu.Lock()
	assert.Equal(t, before, notified)
	mu.Unlock()
	s := m.Snapshot()
	assert.NoError(t, s.LastError)
	assert.Len(t, s.Windows, 1)

	assert.ErrorIs(t, m.SelectDate(ctx, slots.MustParseDate("2024-06-12")), scheduler.ErrSessionClosed)
	assert.ErrorIs(t, m.Next(), scheduler.ErrSessionClosed)
	assert.ErrorIs(t, m.Submit(ctx, validContact), scheduler.ErrSessionClosed)
	err := <-m.SelectDateAsync(ctx, slots.MustParseDate("2024-06-12"))
	assert.ErrorIs(t, err, scheduler.ErrSessionClosed)
}

func TestMachineStartAuthFailure(t *testing.T) {
	gw := newFakeGateway()
	gw.tokenErr = errBoom
	m := newMachine(t, gw)

	err := m.Start(context.Background())
	require.ErrorIs(t, err, scheduler.ErrAuth)
	s := m.Snapshot()
	assert.Equal(t, ScreenError, s.Screen)
	assert.ErrorIs(t, s.LastError, scheduler.ErrAuth)
	assert.Equal(t, int32(0), gw.fetches.Load())
}

func TestMachineStartFetchFailureIsRecoverable(t *testing.T) {
	gw := newFakeGateway(window("2024-06-10T09:00:00Z", resourceA))
	gw.setFetchErr(errBoom)
	m := newMachine(t, gw)

	require.NoError(t, m.Start(context.Background()))
	s := m.Snapshot()
	assert.Equal(t, ScreenReady, s.Screen)
	assert.Empty(t, s.Slots)
	assert.ErrorIs(t, s.LastError, scheduler.ErrAvailabilityFetch)
}

func TestMachineNextWithoutSlot(t *testing.T) {
	m := newMachine(t, newFakeGateway(window("2024-06-10T09:00:00Z", resourceA)))
	require.NoError(t, m.Start(context.Background()))

	assert.ErrorIs(t, m.Next(), scheduler.ErrNoSlotSelected)
	assert.Equal(t, ScreenReady, m.Snapshot().Screen)

	_, err := m.BookingDetails()
	assert.ErrorIs(t, err, scheduler.ErrNoSlotSelected)
}

func TestMachineSubmitFailureKeepsForm(t *testing.T) {
	gw := newFakeGateway(window("2024-06-10T09:00:00Z", resourceA))
	gw.bookErr = &scheduler.BookingError{Status: 409, Message: "This time is no longer available."}
	m := newMachine(t, gw)
	ctx := context.Background()
	require.NoError(t, m.Start(ctx))
	require.NoError(t, m.SelectSlot("2024-06-10-09:00-R1"))
	require.NoError(t, m.Next())

	err := m.Submit(ctx, validContact)
	require.ErrorIs(t, err, scheduler.ErrBookingSubmission)
	s := m.Snapshot()
	assert.Equal(t, ScreenFormOpen, s.Screen)
	assert.Equal(t, validContact, s.Contact)
	assert.Equal(t, "This time is no longer available.", scheduler.UserMessage(s.LastError))

	gw.bookErr = nil
	require.NoError(t, m.Submit(ctx, validContact))
	s = m.Snapshot()
	assert.Equal(t, ScreenConfirmed, s.Screen)
	assert.NoError(t, s.LastError)
	assert.Equal(t, "bk-1", s.LastBooking.ID)
}

func TestMachineSubmitInvalidContactSkipsNetwork(t *testing.T) {
	gw := newFakeGateway(window("2024-06-10T09:00:00Z", resourceA))
	m := newMachine(t, gw)
	ctx := context.Background()
	require.NoError(t, m.Start(ctx))
	require.NoError(t, m.SelectSlot("2024-06-10-09:00-R1"))
	require.NoError(t, m.Next())
	require.NoError(t, m.EditContact(scheduler.Contact{FirstName: "Ada"}))

	err := m.Submit(ctx, scheduler.Contact{FirstName: "Ada"})
	require.ErrorIs(t, err, scheduler.ErrInvalidContact)
	assert.Equal(t, int32(0), gw.bookCalls.Load())
	assert.Equal(t, ScreenFormOpen, m.Snapshot().Screen)
}

func TestMachineObserversSeeTransitionsInOrder(t *testing.T) {
	var screens []Screen
	m := newMachine(t, newFakeGateway(window("2024-06-10T09:00:00Z", resourceA)))
	unsubscribe := m.Subscribe(ObserverFunc(func(_ context.Context, s Session) {
		screens = append(screens, s.Screen)
	}))
	require.NoError(t, m.Start(context.Background()))
	require.NoError(t, m.SelectSlot("2024-06-10-09:00-R1"))
	assert.ErrorIs(t, m.SelectSlot("missing"), ErrUnknownSlot)

	assert.Equal(t, []Screen{ScreenInitializing, ScreenInitializing, ScreenReady, ScreenSlotSelected}, screens)

	unsubscribe()
	require.NoError(t, m.Next())
	assert.Len(t, screens, 4)
}

func TestMachineObserverReadsWhileAnotherDispatchWaits(t *testing.T) {
	gw := newFakeGateway(window("2024-06-10T09:00:00Z", resourceA))
	gw.byDay["2024-06-11"] = []scheduler.AvailabilityWindow{window("2024-06-11T09:00:00Z", resourceA)}

	var armed atomic.Bool
	entered := make(chan struct{})
	var seen Session
	var details Details
	var m *Machine
	m = newMachine(t, gw, WithRangePolicy(RangeSingleDay), WithObserver(ObserverFunc(func(_ context.Context, s Session) {
		if s.Screen != ScreenSlotSelected || !armed.CompareAndSwap(true, false) {
			return
		}
		close(entered)
		time.Sleep(100 * time.Millisecond)
		seen = m.Snapshot()
		details, _ = m.BookingDetails()
	})))
	ctx := context.Background()
	require.NoError(t, m.Start(ctx))
	armed.Store(true)

	selected := make(chan error, 1)
	go func() { selected <- m.SelectSlot("2024-06-10-09:00-R1") }()
	<-entered

	pending := make(chan (<-chan error), 1)
	go func() { pending <- m.SelectDateAsync(ctx, slots.MustParseDate("2024-06-11")) }()

	select {
	case err := <-selected:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("observer reading the session blocked behind a concurrent dispatch")
	}
	assert.Equal(t, ScreenSlotSelected, seen.Screen)
	assert.Equal(t, "Room One", details.Resource)

	select {
	case done := <-pending:
		require.NoError(t, <-done)
	case <-time.After(2 * time.Second):
		t.Fatal("date selection never completed")
	}
	s := m.Snapshot()
	assert.Equal(t, slots.MustParseDate("2024-06-11"), s.SelectedDate)
	assert.Nil(t, s.SelectedSlot)

	closed := make(chan struct{})
	go func() {
		m.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("Close blocked")
	}
}

func TestMachineSetTimezone(t *testing.T) {
	m := newMachine(t, newFakeGateway(window("2024-06-10T09:00:00Z", resourceA)))
	require.NoError(t, m.Start(context.Background()))

	assert.ErrorIs(t, m.SetTimezone("Mars/Olympus_Mons"), scheduler.ErrConfig)
	require.NoError(t, m.SetTimezone("Asia/Tokyo"))
	s := m.Snapshot()
	assert.Equal(t, "Asia/Tokyo", s.TimezoneName())
	require.Len(t, s.Slots, 1)
	assert.Equal(t, "6:00 PM", s.Slots[0].DisplayLabel)
}

func TestMachineBookingDetails(t *testing.T) {
	m := newMachine(t, newFakeGateway(window("2024-06-10T09:00:00Z", resourceA)))
	require.NoError(t, m.Start(context.Background()))
	require.NoError(t, m.SelectSlot("2024-06-10-09:00-R1"))

	d, err := m.BookingDetails()
	require.NoError(t, err)
	assert.Equal(t, "June 10, 2024", d.Date)
	assert.Equal(t, "9:00 AM", d.Time)
	assert.Equal(t, "60 minutes", d.DurationLabel())
	assert.Equal(t, "Room One", d.Resource)
	assert.Equal(t, "Quiet room", d.Description)
	assert.Equal(t, ServiceName, d.Service)
}

func TestMachineInitialDateOutsideMonthRebases(t *testing.T) {
	gw := newFakeGateway()
	m := newMachine(t, gw, WithInitialDate(slots.MustParseDate("2024-09-02")))
	require.NoError(t, m.Start(context.Background()))

	require.Len(t, gw.queries, 1)
	assert.Equal(t, time.Date(2024, 9, 2, 0, 0, 0, 0, time.UTC), gw.queries[0].Start)
	assert.Equal(t, slots.MustParseDate("2024-09-02"), m.Snapshot().SelectedDate)
}
