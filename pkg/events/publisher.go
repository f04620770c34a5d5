// Package events publishes meeting lifecycle events to Redis pub/sub.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/otherjamesbrown/breeze-cli/pkg/logging"
	"github.com/otherjamesbrown/breeze-cli/pkg/meeting"
	"github.com/otherjamesbrown/breeze-cli/pkg/observability"
)

// Redis channels for meeting events.
const (
	ChannelMeetingCreated       = "events.meeting.created"
	ChannelMeetingStatusChanged = "events.meeting.status_changed"
)

// Event types.
const (
	TypeMeetingCreated       = "meeting.created"
	TypeMeetingStatusChanged = "meeting.status_changed"
)

// BaseEvent contains common fields for all events.
type BaseEvent struct {
	EventID       string    `json:"event_id"`
	EventType     string    `json:"event_type"`
	Timestamp     time.Time `json:"timestamp"`
	CorrelationID *string   `json:"correlation_id,omitempty"`
	Source        string    `json:"source"`
	Version       string    `json:"version"`
}

// NewBaseEvent creates a BaseEvent with a fresh event id.
func NewBaseEvent(eventType string) BaseEvent {
	return BaseEvent{
		EventID:   uuid.NewString(),
		EventType: eventType,
		Timestamp: time.Now().UTC(),
		Source:    "breeze",
		Version:   "1.0",
	}
}

// MeetingCreatedEvent is published after a meeting is persisted.
type MeetingCreatedEvent struct {
	BaseEvent

	MeetingID    string    `json:"meeting_id"`
	Title        *string   `json:"title,omitempty"`
	Link         string    `json:"link"`
	DocumentName string    `json:"document_name"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

// MeetingStatusChangedEvent is published after a status update is persisted.
type MeetingStatusChangedEvent struct {
	BaseEvent

	MeetingID  string `json:"meeting_id"`
	FromStatus string `json:"from_status"`
	ToStatus   string `json:"to_status"`
}

// RedisPublisher is the subset of *redis.Client used by Publisher.
type RedisPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	Close() error
}

// Publisher publishes meeting events to Redis. It implements meeting.Notifier.
type Publisher struct {
	client  RedisPublisher
	logger  logging.Logger
	metrics *observability.StoreMetrics
}

var _ meeting.Notifier = (*Publisher)(nil)

// NewPublisher creates a new event publisher. metrics may be nil.
func NewPublisher(client RedisPublisher, logger logging.Logger, metrics *observability.StoreMetrics) *Publisher {
	if logger == nil {
		logger = logging.MustGlobal()
	}
	return &Publisher{
		client:  client,
		logger:  logger.With(logging.F("component", "event_publisher")),
		metrics: metrics,
	}
}

// MeetingCreated publishes a meeting.created event.
func (p *Publisher) MeetingCreated(ctx context.Context, m meeting.StoredMeeting) error {
	event := MeetingCreatedEvent{
		BaseEvent:    newEvent(ctx, TypeMeetingCreated),
		MeetingID:    m.ID,
		Link:         m.Link,
		DocumentName: m.DocumentName,
		Status:       string(m.Status),
		CreatedAt:    m.CreatedAt,
	}
	if m.Title != "" {
		event.Title = &m.Title
	}

	err := p.publish(ctx, ChannelMeetingCreated, event)
	p.metrics.ObserveEvent(TypeMeetingCreated, err)
	return err
}

// StatusChanged publishes a meeting.status_changed event.
func (p *Publisher) StatusChanged(ctx context.Context, m meeting.StoredMeeting, from meeting.Status) error {
	event := MeetingStatusChangedEvent{
		BaseEvent:  newEvent(ctx, TypeMeetingStatusChanged),
		MeetingID:  m.ID,
		FromStatus: string(from),
		ToStatus:   string(m.Status),
	}

	err := p.publish(ctx, ChannelMeetingStatusChanged, event)
	p.metrics.ObserveEvent(TypeMeetingStatusChanged, err)
	return err
}

// newEvent sets the correlation id from the request id or trace id on ctx.
func newEvent(ctx context.Context, eventType string) BaseEvent {
	base := NewBaseEvent(eventType)
	if id, ok := ctx.Value(logging.RequestIDKey).(string); ok && id != "" {
		base.CorrelationID = &id
	} else if id := observability.TraceID(ctx); id != "" {
		base.CorrelationID = &id
	}
	return base
}

// publish serializes and publishes an event to Redis.
func (p *Publisher) publish(ctx context.Context, channel string, event interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := p.client.Publish(ctx, channel, data).Err(); err != nil {
		p.logger.Error("Failed to publish event",
			logging.Err(err),
			logging.F("channel", channel))
		return fmt.Errorf("failed to publish to %s: %w", channel, err)
	}

	p.logger.Debug("Event published",
		logging.F("channel", channel),
		logging.F("payload_size", len(data)))

	return nil
}

// Close closes the Redis connection.
func (p *Publisher) Close() error {
	return p.client.Close()
}
