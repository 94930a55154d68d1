// Package events publishes appointment lifecycle events to an external stream.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"medibook-server/internal/config"
	"medibook-server/internal/models"
)

// Event types.
const (
	TypeBooked        = "appointment.booked"
	TypeStatusChanged = "appointment.status_changed"
	TypeCancelled     = "appointment.cancelled"
	TypeReminder      = "appointment.reminder"
)

// Event is one appointment lifecycle change.
type Event struct {
	Type          string                   `json:"type"`
	AppointmentID string                   `json:"appointmentId"`
	PatientID     string                   `json:"patientId"`
	DoctorID      string                   `json:"doctorId"`
	Status        models.AppointmentStatus `json:"status"`
	Date          string                   `json:"date"`
	TimeSlot      string                   `json:"timeSlot"`
	OccurredAt    time.Time                `json:"occurredAt"`
}

// FromAppointment builds an event of the given type for appt.
func FromAppointment(eventType string, appt *models.Appointment, at time.Time) Event {
	return Event{
		Type:          eventType,
		AppointmentID: appt.ID,
		PatientID:     appt.PatientID,
		DoctorID:      appt.DoctorID,
		Status:        appt.Status,
		Date:          appt.Date.Format(models.DateLayout),
		TimeSlot:      appt.TimeSlot,
		OccurredAt:    at.UTC(),
	}
}

// Publisher writes events to the stream.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// New returns a Kafka publisher when brokers are configured and a no-op one otherwise.
func New(cfg config.KafkaConfig) Publisher {
	if len(cfg.Brokers) == 0 {
		return NopPublisher{}
	}
	return NewKafkaPublisher(cfg.Brokers, cfg.Topic)
}

// KafkaPublisher writes JSON events keyed by appointment id, so all events
// of one appointment land on the same partition.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.LeastBytes{},
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
		},
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, e Event) error {
	value, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(e.AppointmentID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(e.Type)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to produce message: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error                         { return nil }
