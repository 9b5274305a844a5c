package event

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/jwalitptl/access-api/pkg/messaging"
	"github.com/jwalitptl/access-api/pkg/metrics"
)

type EventType string

const (
	UserCreated     EventType = "user.created"
	UserChanged     EventType = "user.changed"
	UserDeactivated EventType = "user.deactivated"
	UserDeleted     EventType = "user.deleted"
	LoginDenied     EventType = "login.denied"
)

// Emitter is what services depend on to announce access changes.
type Emitter interface {
	Emit(ctx context.Context, pgid string, eventType EventType, payload interface{}) error
}

type EventService struct {
	broker  messaging.Broker
	channel string
	metrics *metrics.Metrics
	logger  zerolog.Logger
	now     func() time.Time
}

func NewEventService(broker messaging.Broker, channel string, m *metrics.Metrics, logger zerolog.Logger) *EventService {
	return &EventService{
		broker:  broker,
		channel: channel,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

// Emit publishes one event. Failures are logged and returned, callers treat them as non-fatal.
func (s *EventService) Emit(ctx context.Context, pgid string, eventType EventType, payload interface{}) error {
	msg := messaging.Message{
		Type:       string(eventType),
		PGID:       pgid,
		OccurredAt: s.now().UTC(),
		Payload:    payload,
	}

	err := s.broker.Publish(ctx, s.channel, msg)
	s.count(eventType, err)
	if err != nil {
		s.logger.Warn().Err(err).
			Str("event_type", string(eventType)).
			Str("pgid", pgid).
			Msg("Failed to publish access event")
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

func (s *EventService) count(eventType EventType, err error) {
	if s.metrics == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	s.metrics.EventsPublished.WithLabelValues(string(eventType), status).Inc()
}
