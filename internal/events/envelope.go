// Package events fans booking session snapshots out to render layers: a log
// line per screen change and a Redis pub/sub channel per session.
package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/scheddev/sched-go/internal/booking"
	"github.com/scheddev/sched-go/internal/scheduler"
	"github.com/scheddev/sched-go/internal/slots"
)

// EventTypeTransition is the type of every snapshot envelope.
const EventTypeTransition = "session.transition.v1"

// Envelope carries one snapshot with transport metadata.
type Envelope struct {
	EventID         uuid.UUID       `json:"event_id"`
	EventType       string          `json:"event_type"`
	SessionID       string          `json:"session_id"`
	TimestampMicros int64           `json:"timestamp"`
	Payload         json.RawMessage `json:"payload"`
}

// EnvelopeOption customizes the generated envelope (useful in tests).
type EnvelopeOption func(*Envelope)

// WithEventID overrides the automatically generated event id.
func WithEventID(id uuid.UUID) EnvelopeOption {
	return func(e *Envelope) {
		if id != uuid.Nil {
			e.EventID = id
		}
	}
}

// WithTimestamp overrides the timestamp stored in microseconds.
func WithTimestamp(ts time.Time) EnvelopeOption {
	return func(e *Envelope) {
		if ts.IsZero() {
			return
		}
		e.TimestampMicros = ts.UTC().UnixMicro()
	}
}

// SessionSnapshot is the render-facing view of a booking.Session.
type SessionSnapshot struct {
	Screen       string                         `json:"screen"`
	Timezone     string                         `json:"timezone"`
	SelectedDate slots.Date                     `json:"selectedDate"`
	ValidDays    []slots.Date                   `json:"validDays"`
	Slots        []scheduler.Slot               `json:"slots"`
	SelectedSlot *scheduler.Slot                `json:"selectedSlot,omitempty"`
	Contact      scheduler.Contact              `json:"contact"`
	LastBooking  *scheduler.BookingConfirmation `json:"lastBooking,omitempty"`
	LastError    string                         `json:"lastError,omitempty"`
	UserMessage  string                         `json:"userMessage,omitempty"`
	Generation   uint64                         `json:"generation"`
}

// SnapshotFrom builds the view of s. The access token is never included.
func SnapshotFrom(s booking.Session) SessionSnapshot {
	snap := SessionSnapshot{
		Screen:       s.Screen.String(),
		Timezone:     s.TimezoneName(),
		SelectedDate: s.SelectedDate,
		ValidDays:    s.ValidDays(),
		Slots:        s.Slots,
		SelectedSlot: s.SelectedSlot,
		Contact:      s.Contact,
		LastBooking:  s.LastBooking,
		Generation:   s.Generation,
	}
	if snap.Slots == nil {
		snap.Slots = []scheduler.Slot{}
	}
	if s.LastError != nil {
		snap.LastError = s.LastError.Error()
		snap.UserMessage = scheduler.UserMessage(s.LastError)
	}
	return snap
}

var (
	errMissingSession = errors.New("events: session id is required")
	nowFunc           = time.Now
)

func newEnvelope(sessionID string, snap SessionSnapshot, opts ...EnvelopeOption) (Envelope, error) {
	if strings.TrimSpace(sessionID) == "" {
		return Envelope{}, errMissingSession
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		return Envelope{}, fmt.Errorf("events: marshal snapshot: %w", err)
	}
	env := Envelope{
		EventID:         uuid.New(),
		EventType:       EventTypeTransition,
		SessionID:       strings.TrimSpace(sessionID),
		TimestampMicros: nowFunc().UTC().UnixMicro(),
		Payload:         payload,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&env)
		}
	}
	return env, nil
}

// DecodeEnvelope parses a published message and its snapshot payload.
func DecodeEnvelope(data []byte) (Envelope, SessionSnapshot, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, SessionSnapshot{}, fmt.Errorf("events: decode envelope: %w", err)
	}
	var snap SessionSnapshot
	if err := json.Unmarshal(env.Payload, &snap); err != nil {
		return env, SessionSnapshot{}, fmt.Errorf("events: decode snapshot: %w", err)
	}
	return env, snap, nil
}
