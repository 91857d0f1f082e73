package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/scheddev/sched-go/internal/observability/metrics"
	"github.com/scheddev/sched-go/internal/scheduler"
	"github.com/scheddev/sched-go/internal/slots"
	"github.com/scheddev/sched-go/pkg/logging"
)

// Observer receives a snapshot after every accepted transition. Observers
// run on the dispatching goroutine. They may call Snapshot and
// BookingDetails but must not call back into the Machine's mutating methods.
type Observer interface {
	OnTransition(ctx context.Context, s Session)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, s Session)

// OnTransition calls f.
func (f ObserverFunc) OnTransition(ctx context.Context, s Session) { f(ctx, s) }

// Option configures a Machine.
type Option func(*Machine)

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(m *Machine) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithMetrics records transitions and stale fetches.
func WithMetrics(sm *metrics.SchedulerMetrics) Option {
	return func(m *Machine) { m.metrics = sm }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Machine) {
		if now != nil {
			m.now = now
		}
	}
}

// WithRangePolicy sets how much availability each fetch loads.
func WithRangePolicy(p RangePolicy) Option {
	return func(m *Machine) { m.session.Policy = p }
}

// WithLocation sets the initial display timezone.
func WithLocation(loc *time.Location) Option {
	return func(m *Machine) {
		if loc != nil {
			m.session.Location = loc
		}
	}
}

// WithInitialDate preselects a date instead of today.
func WithInitialDate(d slots.Date) Option {
	return func(m *Machine) { m.session.SelectedDate = d }
}

// WithObserver subscribes o from the first transition.
func WithObserver(o Observer) Option {
	return func(m *Machine) { m.observers = append(m.observers, o) }
}

// Machine owns one Session and runs the effects Reduce asks for. Network
// calls happen without holding the lock; their results are applied only
// when their generation is still current and the machine is not closed.
type Machine struct {
	gateway   scheduler.Gateway
	submitter *Submitter
	logger    *logging.Logger
	metrics   *metrics.SchedulerMetrics
	now       func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	session   Session
	observers []Observer
	closed    bool

	// notifyMu keeps observer callbacks in transition order.
	notifyMu sync.Mutex
}

// New creates a machine for a validated config. Call Start to initialize.
func New(cfg scheduler.Config, gw scheduler.Gateway, opts ...Option) *Machine {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Machine{
		gateway: gw,
		logger:  logging.Default(),
		now:     time.Now,
		ctx:     ctx,
		cancel:  cancel,
		session: NewSession(cfg, RangeMonth, time.UTC),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.Component("booking")
	m.submitter = NewSubmitter(gw, m.logger)
	return m
}

// Start obtains a token and loads the first availability range. An auth
// failure is returned and leaves the session in ScreenError. A failed
// availability fetch is not returned; the session becomes ready with no
// windows and LastError set.
func (m *Machine) Start(ctx context.Context) error {
	loc := m.Snapshot().Location
	return m.apply(ctx, Started{Today: slots.LocalDate(m.now(), loc)})
}

// SelectDate selects d and waits for its availability to load.
func (m *Machine) SelectDate(ctx context.Context, d slots.Date) error {
	return m.apply(ctx, DateSelected{Date: d})
}

// SelectDateAsync selects d immediately and loads its availability in the
// background. The channel yields the outcome once the result was applied or
// discarded, then closes.
func (m *Machine) SelectDateAsync(ctx context.Context, d slots.Date) <-chan error {
	done := make(chan error, 1)
	effects, err := m.dispatch(DateSelected{Date: d})
	if err != nil {
		done <- err
		close(done)
		return done
	}
	fetchCtx, stop := m.boundContext(ctx)
	go func() {
		defer close(done)
		defer stop()
		done <- m.run(fetchCtx, effects)
	}()
	return done
}

// SetTimezone switches the display timezone and re-projects the loaded
// windows without fetching.
func (m *Machine) SetTimezone(name string) error {
	loc, err := slots.LoadZone(name)
	if err != nil {
		return err
	}
	return m.apply(m.ctx, TimezoneChanged{Location: loc})
}

// SelectSlot selects the projected slot with the given compound key.
func (m *Machine) SelectSlot(key string) error {
	return m.apply(m.ctx, SlotChosen{Key: key})
}

// Next opens the contact form. Without a selected slot it returns
// scheduler.ErrNoSlotSelected and changes nothing.
func (m *Machine) Next() error {
	return m.apply(m.ctx, NextPressed{})
}

// EditContact stores form input without submitting it.
func (m *Machine) EditContact(c scheduler.Contact) error {
	return m.apply(m.ctx, ContactEdited{Contact: c})
}

// Submit books the selected slot for c. On failure the session returns to
// the form with c kept and LastError set, and the error is returned.
func (m *Machine) Submit(ctx context.Context, c scheduler.Contact) error {
	return m.apply(ctx, FormSubmitted{Contact: c})
}

// BookingDetails describes the selected slot for the form screen.
func (m *Machine) BookingDetails() (Details, error) {
	s := m.Snapshot()
	if s.SelectedSlot == nil {
		return Details{}, scheduler.ErrNoSlotSelected
	}
	return DetailsFor(*s.SelectedSlot, s.Location), nil
}

// Snapshot returns a copy of the session. It stays readable after Close.
func (m *Machine) Snapshot() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session.clone()
}

// Subscribe adds o and returns a function removing it.
func (m *Machine) Subscribe(o Observer) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, o)
	idx := len(m.observers) - 1
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if idx < len(m.observers) {
			m.observers[idx] = nil
		}
	}
}

// Close tears the session down. In-flight work is cancelled, late results
// are dropped and every later call returns scheduler.ErrSessionClosed.
func (m *Machine) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.observers = nil
	m.mu.Unlock()
	m.cancel()
	m.logger.Debug("session closed")
}

// boundContext derives a context from ctx that is also cancelled by Close.
func (m *Machine) boundContext(ctx context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(m.ctx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

func (m *Machine) apply(ctx context.Context, ev Event) error {
	effects, err := m.dispatch(ev)
	if err != nil {
		return err
	}
	ctx, stop := m.boundContext(ctx)
	defer stop()
	return m.run(ctx, effects)
}

// dispatch reduces ev under the lock and notifies observers in order.
// notifyMu is always taken before mu, and mu is released before observers
// run, so observers may read the session.
func (m *Machine) dispatch(ev Event) ([]Effect, error) {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, scheduler.ErrSessionClosed
	}
	prev := m.session.Screen
	next, effects := Reduce(m.session, ev)
	m.session = next
	var (
		snap      Session
		observers []Observer
	)
	notify := accepted(effects)
	if notify {
		snap = next.clone()
		observers = append(observers, m.observers...)
	}
	m.mu.Unlock()

	if next.Screen != prev {
		m.metrics.ObserveTransition(next.Screen.String())
		m.logger.Info("screen changed", "from", prev.String(), "to", next.Screen.String())
	}
	if notify {
		for _, o := range observers {
			if o != nil {
				o.OnTransition(m.ctx, snap)
			}
		}
	}
	return effects, nil
}

func accepted(effects []Effect) bool {
	for _, eff := range effects {
		switch eff.(type) {
		case Rejected, Discarded:
			return false
		}
	}
	return true
}

// run interprets effects in order. It returns the first rejection or the
// error of an auth or submit step.
func (m *Machine) run(ctx context.Context, effects []Effect) error {
	var rejected error
	for _, eff := range effects {
		switch e := eff.(type) {
		case LogEffect:
			m.logger.Log(ctx, e.Level, e.Msg, e.Args...)
		case Rejected:
			if rejected == nil {
				rejected = e.Err
			}
		case Discarded:
			m.metrics.ObserveStaleFetch()
			m.logger.Debug("stale availability discarded", "generation", e.Generation, "current", e.Current)
		case AuthEffect:
			if err := m.authenticate(ctx, e); err != nil {
				return err
			}
		case FetchEffect:
			m.fetch(ctx, e)
		case SubmitEffect:
			if err := m.submit(ctx, e); err != nil {
				return err
			}
		}
	}
	return rejected
}

func (m *Machine) authenticate(ctx context.Context, e AuthEffect) error {
	token, err := m.gateway.ObtainToken(ctx, e.ClientID)
	if err != nil {
		if !errors.Is(err, scheduler.ErrAuth) {
			err = fmt.Errorf("%w: %v", scheduler.ErrAuth, err)
		}
		m.logger.Error("token exchange failed", "gateway", m.gateway.Name(), "error", err)
		if applyErr := m.apply(ctx, InitFailed{Err: err}); errors.Is(applyErr, scheduler.ErrSessionClosed) {
			return applyErr
		}
		return err
	}
	return m.apply(ctx, TokenObtained{Token: token})
}

func (m *Machine) fetch(ctx context.Context, e FetchEffect) {
	windows, err := m.gateway.FetchAvailability(ctx, e.Token, e.Query)
	var ev Event
	if err != nil {
		if !errors.Is(err, scheduler.ErrAvailabilityFetch) {
			err = fmt.Errorf("%w: %v", scheduler.ErrAvailabilityFetch, err)
		}
		ev = AvailabilityFailed{Generation: e.Generation, Err: err}
	} else {
		ev = AvailabilityLoaded{Generation: e.Generation, RangeStart: e.RangeStart, RangeEnd: e.RangeEnd, Windows: windows}
	}
	if err := m.apply(ctx, ev); errors.Is(err, scheduler.ErrSessionClosed) {
		m.logger.Debug("availability arrived after close; dropped", "generation", e.Generation)
	}
}

func (m *Machine) submit(ctx context.Context, e SubmitEffect) error {
	slot := e.Slot
	conf, err := m.submitter.Submit(ctx, e.Token, &slot, e.Contact)
	if err != nil {
		if applyErr := m.apply(ctx, BookingFailed{Err: err}); errors.Is(applyErr, scheduler.ErrSessionClosed) {
			m.logger.Debug("booking failure arrived after close; dropped")
		}
		return err
	}
	return m.apply(ctx, BookingSucceeded{Confirmation: *conf})
}
