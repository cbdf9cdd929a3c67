package events

import (
	"context"
	"encoding/json"
	"errors"
	"medisched/pkg/auth"
	apperrors "medisched/pkg/errors"
	"medisched/pkg/kafka"
	"medisched/pkg/logger"
	"medisched/pkg/middleware"
	"medisched/pkg/model"
	"testing"
	"time"
)

type capturePublisher struct {
	messages []kafka.Message
	err      error
}

func (c *capturePublisher) Publish(ctx context.Context, msg kafka.Message) error {
	c.messages = append(c.messages, msg)
	return c.err
}

func (c *capturePublisher) Close() error { return nil }

func TestPublisher_StatusChanged(t *testing.T) {
	producer := &capturePublisher{}
	pub := NewPublisher(producer, "appointments")
	pub.now = func() time.Time { return time.Date(2030, 3, 1, 8, 0, 0, 0, time.UTC) }

	a := &model.Appointment{
		ID:         "a1",
		DoctorID:   "d1",
		PatientID:  "p1",
		BookedDate: time.Date(2030, 3, 4, 0, 0, 0, 0, time.UTC),
		DayOfWeek:  1,
		TimeSlot:   "8-12",
		Status:     model.StatusConfirmed,
		Urgency:    model.UrgencyHigh,
	}
	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-42")

	if err := pub.PublishStatusChanged(ctx, a, model.StatusBooked); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(producer.messages) != 1 {
		t.Fatalf("expected one message, got %d", len(producer.messages))
	}

	msg := producer.messages[0]
	if msg.Key != "d1" {
		t.Errorf("key = %q, want doctor id", msg.Key)
	}
	if msg.EventType() != TypeStatusChanged || msg.CorrelationID() != "req-42" {
		t.Errorf("headers = %v", msg.Headers)
	}
	if msg.Headers[kafka.HeaderSource] != "appointments" || msg.EventID() == "" {
		t.Errorf("headers = %v", msg.Headers)
	}

	var event AppointmentEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if event.BookedDate != "2030-03-04" || event.PreviousStatus != model.StatusBooked || event.Status != model.StatusConfirmed {
		t.Errorf("event = %+v", event)
	}
}

func TestPublisher_CorrelationFallsBackToAppointment(t *testing.T) {
	producer := &capturePublisher{err: errors.New("broker down")}
	pub := NewPublisher(producer, "appointments")

	err := pub.PublishBooked(context.Background(), &model.Appointment{ID: "a1", DoctorID: "d1"})
	if err == nil {
		t.Fatal("expected producer error")
	}
	if producer.messages[0].CorrelationID() != "a1" {
		t.Errorf("correlation id = %q", producer.messages[0].CorrelationID())
	}
}

type completerFunc func(ctx context.Context, p *auth.Principal, appointmentID, prescriptionID string) (*model.AppointmentView, error)

func (f completerFunc) CompleteFromPrescription(ctx context.Context, p *auth.Principal, appointmentID, prescriptionID string) (*model.AppointmentView, error) {
	return f(ctx, p, appointmentID, prescriptionID)
}

func prescriptionMessage(t *testing.T, eventType string, event any) kafka.Message {
	t.Helper()
	msg, err := kafka.NewMessage().WithKey("a1").WithValue(event).WithEventType(eventType).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return msg
}

func TestPrescriptionHandler(t *testing.T) {
	valid := PrescriptionCompleted{PrescriptionID: "rx1", AppointmentID: "a1"}

	tests := []struct {
		name       string
		msg        func(t *testing.T) kafka.Message
		result     error
		expectType kafka.ErrorType
		expectCall bool
	}{
		{
			name:       "completes appointment",
			msg:        func(t *testing.T) kafka.Message { return prescriptionMessage(t, TypePrescriptionCompleted, valid) },
			expectCall: true,
		},
		{
			name: "ignores other events",
			msg:  func(t *testing.T) kafka.Message { return prescriptionMessage(t, "prescription.voided", valid) },
		},
		{
			name: "undecodable payload",
			msg: func(t *testing.T) kafka.Message {
				return kafka.Message{Value: []byte("{"), Headers: map[string]string{}}
			},
			expectType: kafka.ErrorTypePermanent,
		},
		{
			name: "missing ids",
			msg: func(t *testing.T) kafka.Message {
				return prescriptionMessage(t, TypePrescriptionCompleted, PrescriptionCompleted{AppointmentID: "a1"})
			},
			expectType: kafka.ErrorTypePermanent,
		},
		{
			name:       "cancelled appointment is a business error",
			msg:        func(t *testing.T) kafka.Message { return prescriptionMessage(t, TypePrescriptionCompleted, valid) },
			result:     apperrors.InvalidState("Appointment is already cancelled"),
			expectType: kafka.ErrorTypeBusiness,
			expectCall: true,
		},
		{
			name:       "database failure is retried",
			msg:        func(t *testing.T) kafka.Message { return prescriptionMessage(t, TypePrescriptionCompleted, valid) },
			result:     apperrors.Internal("Failed to update appointment status", errors.New("boom")),
			expectType: kafka.ErrorTypeTransient,
			expectCall: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			handler := NewPrescriptionHandler(completerFunc(func(ctx context.Context, p *auth.Principal, appointmentID, prescriptionID string) (*model.AppointmentView, error) {
				called = true
				if p.Role != auth.RoleSystem || appointmentID != "a1" || prescriptionID != "rx1" {
					t.Errorf("unexpected call: %+v %s %s", p, appointmentID, prescriptionID)
				}
				if tt.result != nil {
					return nil, tt.result
				}
				return &model.AppointmentView{Appointment: model.Appointment{ID: appointmentID}}, nil
			}), logger.Discard())

			err := handler(context.Background(), tt.msg(t))

			if called != tt.expectCall {
				t.Errorf("called = %v, want %v", called, tt.expectCall)
			}
			if tt.expectType == kafka.ErrorTypeUnknown {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if got := kafka.ClassifyError(err); got != tt.expectType {
				t.Errorf("error type = %s, want %s (%v)", got, tt.expectType, err)
			}
		})
	}
}
