package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/talentforge/hirespark/internal/scoring/domain"
	sharedDomain "github.com/talentforge/hirespark/internal/shared/domain"
	"github.com/talentforge/hirespark/internal/shared/infrastructure/eventbus"
)

// Notification types consumed downstream.
const (
	typeScoreSuccess = "RESUME_PARSED_SUCCESS"
	typeSystem       = "SYSTEM"

	resumeAiBasePath = "/candidate/resume-ai"
)

// eventEnvelope is the wire shape of a published domain event. Type, title,
// body, and link let a consumer render the notification without knowing
// scoring internals.
type eventEnvelope struct {
	EventID       string    `json:"eventId"`
	AggregateID   string    `json:"aggregateId"`
	AggregateType string    `json:"aggregateType"`
	RoutingKey    string    `json:"routingKey"`
	OccurredAt    time.Time `json:"occurredAt"`
	OwnerID       string    `json:"ownerId,omitempty"`
	Score         *float64  `json:"score,omitempty"`
	Reason        string    `json:"reason,omitempty"`
	Type          string    `json:"type,omitempty"`
	Title         string    `json:"title,omitempty"`
	Body          string    `json:"body,omitempty"`
	Link          string    `json:"link,omitempty"`
}

// BusNotifier publishes scoring domain events to the shared event bus so
// downstream consumers (mail, dashboards) learn about task outcomes.
type BusNotifier struct {
	bus    eventbus.MessagePublisher
	logger *slog.Logger
}

// NewBusNotifier creates a notifier backed by a message publisher.
func NewBusNotifier(bus eventbus.MessagePublisher, logger *slog.Logger) *BusNotifier {
	return &BusNotifier{bus: bus, logger: logger}
}

// Publish serializes one domain event and hands it to the bus.
func (n *BusNotifier) Publish(ctx context.Context, event sharedDomain.DomainEvent) error {
	envelope := eventEnvelope{
		EventID:       event.EventID().String(),
		AggregateID:   event.AggregateID().String(),
		AggregateType: event.AggregateType(),
		RoutingKey:    event.RoutingKey(),
		OccurredAt:    event.OccurredAt(),
	}

	switch e := event.(type) {
	case *domain.ScoreTaskCompleted:
		envelope.OwnerID = e.OwnerID.String()
		score := e.Score
		envelope.Score = &score
		envelope.Type = typeScoreSuccess
		envelope.Title = "Resume scoring completed"
		envelope.Body = fmt.Sprintf("Background scoring completed. Latest score: %.1f.", e.Score)
		envelope.Link = ResumeAiLink(event.AggregateID().String())
	case *domain.ScoreTaskFailed:
		envelope.OwnerID = e.OwnerID.String()
		envelope.Reason = e.Reason
		envelope.Type = typeSystem
		envelope.Title = "Resume scoring failed"
		envelope.Body = "Background resume scoring failed. Open details to review logs and retry."
		envelope.Link = ResumeAiLink(event.AggregateID().String())
	}

	payload, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", event.RoutingKey(), err)
	}

	if err := n.bus.Publish(ctx, event.RoutingKey(), payload); err != nil {
		return err
	}
	n.logger.Debug("domain event published",
		slog.String("routing_key", event.RoutingKey()),
		slog.String("aggregate_id", envelope.AggregateID))
	return nil
}

// ResumeAiLink builds the deep link into the resume scoring page. An empty
// task id yields the bare page path.
func ResumeAiLink(taskID string) string {
	if taskID == "" {
		return resumeAiBasePath
	}
	return resumeAiBasePath + "?taskId=" + taskID
}
