package domain

import "time"

// EventType names an appointment change. It doubles as the Kafka topic.
type EventType string

const (
	EventAppointmentCreated       EventType = "appointment.created"
	EventAppointmentRescheduled   EventType = "appointment.rescheduled"
	EventAppointmentStatusChanged EventType = "appointment.status_changed"
	EventAppointmentUpdated       EventType = "appointment.updated"
	EventAppointmentDeleted       EventType = "appointment.deleted"
)

// AppointmentEvent records a single change to an appointment. It is written
// to the outbox with the change itself and mirrored to the audit trail.
type AppointmentEvent struct {
	ID             string            `json:"eventId"`
	Type           EventType         `json:"type"`
	AppointmentID  int64             `json:"appointmentId"`
	PatientID      int64             `json:"patientId"`
	ProviderID     int64             `json:"providerId"`
	Date           string            `json:"date"`
	Time           string            `json:"time"`
	Status         AppointmentStatus `json:"status"`
	PreviousStatus AppointmentStatus `json:"previousStatus,omitempty"`
	PreviousDate   string            `json:"previousDate,omitempty"`
	PreviousTime   string            `json:"previousTime,omitempty"`
	ActorID        int64             `json:"actorId"`
	ActorRole      Role              `json:"actorRole"`
	OccurredAt     time.Time         `json:"occurredAt"`
}
