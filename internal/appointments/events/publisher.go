package events

import (
	"context"
	"fmt"
	"medisched/pkg/calendar"
	"medisched/pkg/kafka"
	"medisched/pkg/middleware"
	"medisched/pkg/model"
	"time"
)

type Publisher struct {
	producer kafka.Publisher
	source   string
	now      func() time.Time
}

// NewPublisher keys every message by doctor so one doctor's events stay ordered.
func NewPublisher(producer kafka.Publisher, source string) *Publisher {
	return &Publisher{
		producer: producer,
		source:   source,
		now:      time.Now,
	}
}

func (p *Publisher) PublishBooked(ctx context.Context, a *model.Appointment) error {
	return p.publish(ctx, TypeBooked, a, "")
}

func (p *Publisher) PublishRescheduled(ctx context.Context, a *model.Appointment) error {
	return p.publish(ctx, TypeRescheduled, a, "")
}

func (p *Publisher) PublishStatusChanged(ctx context.Context, a *model.Appointment, from string) error {
	return p.publish(ctx, TypeStatusChanged, a, from)
}

func (p *Publisher) publish(ctx context.Context, eventType string, a *model.Appointment, from string) error {
	event := AppointmentEvent{
		AppointmentID:  a.ID,
		DoctorID:       a.DoctorID,
		PatientID:      a.PatientID,
		BookedDate:     a.BookedDate.Format(calendar.DateLayout),
		DayOfWeek:      a.DayOfWeek,
		TimeSlot:       a.TimeSlot,
		Status:         a.Status,
		PreviousStatus: from,
		Urgency:        a.Urgency,
		OccurredAt:     p.now().UTC(),
	}

	msg, err := kafka.NewMessage().
		WithKey(a.DoctorID).
		WithValue(event).
		WithEventType(eventType).
		WithCorrelationID(correlationID(ctx, a.ID)).
		WithSchemaVersion(SchemaVersion).
		WithSource(p.source).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build %s event: %w", eventType, err)
	}

	return p.producer.Publish(ctx, msg)
}

// correlationID ties an event to the HTTP request that caused it, falling
// back to the appointment id for background callers.
func correlationID(ctx context.Context, fallback string) string {
	if id := middleware.RequestIDFromContext(ctx); id != "" {
		return id
	}
	return fallback
}

// Noop drops every event. It stands in when Kafka is disabled.
type Noop struct{}

func (Noop) PublishBooked(context.Context, *model.Appointment) error { return nil }

func (Noop) PublishRescheduled(context.Context, *model.Appointment) error { return nil }

func (Noop) PublishStatusChanged(context.Context, *model.Appointment, string) error { return nil }
