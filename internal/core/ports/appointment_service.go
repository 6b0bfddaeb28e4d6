package ports

import (
	"context"

	"github.com/healthtech/clinic-scheduler/internal/core/domain"
)

// CreateAppointmentInput is the DTO passed from the transport layer to
// AppointmentService. Date and time are kept raw so the service owns parsing.
type CreateAppointmentInput struct {
	PatientID  int64
	ProviderID int64
	Date       string
	Time       string
	Reason     string
	Status     string // optional: "booked" (default) or "blocked"
}

// UpdateAppointmentInput is a partial update; nil fields are left untouched.
type UpdateAppointmentInput struct {
	Date   *string
	Time   *string
	Status *string
	Reason *string
}

// ListAppointmentsInput carries the raw list query parameters.
type ListAppointmentsInput struct {
	PatientID  int64
	ProviderID int64
	Status     string
	Date       string
}

// AppointmentService defines use-case operations for appointments.
type AppointmentService interface {
	CreateAppointment(ctx context.Context, actor domain.Actor, input CreateAppointmentInput) (*domain.AppointmentDetail, error)
	UpdateAppointment(ctx context.Context, actor domain.Actor, id int64, input UpdateAppointmentInput) (*domain.AppointmentDetail, error)
	DeleteAppointment(ctx context.Context, actor domain.Actor, id int64) error
	GetAppointment(ctx context.Context, actor domain.Actor, id int64) (*domain.AppointmentDetail, error)
	ListAppointments(ctx context.Context, actor domain.Actor, input ListAppointmentsInput) ([]*domain.AppointmentDetail, error)
	ProviderAvailability(ctx context.Context, providerID int64, date string) ([]domain.Slot, error)
}
