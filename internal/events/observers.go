package events

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/scheddev/sched-go/internal/booking"
	"github.com/scheddev/sched-go/pkg/logging"
)

// LogObserver logs every screen change of a session.
type LogObserver struct {
	logger *logging.Logger

	mu   sync.Mutex
	last booking.Screen
	seen bool
}

var _ booking.Observer = (*LogObserver)(nil)

// NewLogObserver creates an observer logging through logger.
func NewLogObserver(logger *logging.Logger) *LogObserver {
	if logger == nil {
		logger = logging.Default()
	}
	return &LogObserver{logger: logger.Component("session-log")}
}

// OnTransition logs s when its screen differs from the last one seen.
func (o *LogObserver) OnTransition(ctx context.Context, s booking.Session) {
	o.mu.Lock()
	changed := !o.seen || o.last != s.Screen
	o.last, o.seen = s.Screen, true
	o.mu.Unlock()
	if !changed {
		return
	}
	args := []any{
		"screen", s.Screen.String(),
		"date", s.SelectedDate.String(),
		"timezone", s.TimezoneName(),
		"slots", len(s.Slots),
	}
	if s.SelectedSlot != nil {
		args = append(args, "slot", s.SelectedSlot.CompoundKey)
	}
	if s.LastError != nil {
		args = append(args, "error", s.LastError.Error())
	}
	o.logger.InfoContext(ctx, "session screen", args...)
}

// ChannelPrefix prefixes the pub/sub channel of each session.
const ChannelPrefix = "sched:session:"

// Channel returns the pub/sub channel for sessionID.
func Channel(sessionID string) string {
	return ChannelPrefix + sessionID
}

// RedisPublisher publishes every snapshot to the session's pub/sub channel.
// Nothing is stored; subscribers that are not listening miss the message.
type RedisPublisher struct {
	client    redis.UniversalClient
	sessionID string
	logger    *logging.Logger
}

var _ booking.Observer = (*RedisPublisher)(nil)

// NewRedisPublisher creates a publisher for a new session id.
func NewRedisPublisher(client redis.UniversalClient, logger *logging.Logger) *RedisPublisher {
	if logger == nil {
		logger = logging.Default()
	}
	return &RedisPublisher{
		client:    client,
		sessionID: uuid.NewString(),
		logger:    logger.Component("session-publisher"),
	}
}

// SessionID identifies the session on the wire.
func (p *RedisPublisher) SessionID() string { return p.sessionID }

// Channel is the pub/sub channel this publisher writes to.
func (p *RedisPublisher) Channel() string { return Channel(p.sessionID) }

// Publish sends one snapshot.
func (p *RedisPublisher) Publish(ctx context.Context, s booking.Session, opts ...EnvelopeOption) error {
	env, err := newEnvelope(p.sessionID, SnapshotFrom(s), opts...)
	if err != nil {
		return err
	}
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, p.Channel(), data).Err()
}

// OnTransition publishes s and logs failures instead of returning them.
func (p *RedisPublisher) OnTransition(ctx context.Context, s booking.Session) {
	if err := p.Publish(ctx, s); err != nil {
		p.logger.Warn("failed to publish session snapshot", "channel", p.Channel(), "error", err)
	}
}
