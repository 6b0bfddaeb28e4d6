package ports

import (
	"context"
	"time"

	"github.com/healthtech/clinic-scheduler/internal/core/domain"
)

// ListAppointmentsFilter carries the query parameters for listing appointments.
// Zero values mean "no filter". PatientID and ProviderID are always set by the
// access gate for non-admin callers.
type ListAppointmentsFilter struct {
	PatientID  int64
	ProviderID int64
	Status     domain.AppointmentStatus
	Date       time.Time
}

// AppointmentRepository defines persistence operations for appointments.
//
// Create and Update enforce the slot invariant in the store: a write that would
// leave two active appointments on the same provider slot fails with an error
// matching domain.ErrSlotUnavailable. Every write records evt in the outbox
// within the same transaction.
type AppointmentRepository interface {
	// FindActiveInSlot returns the active appointment on the slot, skipping
	// excludeID when non-zero. Returns (nil, nil) when the slot is free.
	FindActiveInSlot(ctx context.Context, slot domain.SlotKey, excludeID int64) (*domain.Appointment, error)
	// ActiveTimes lists the slot labels holding an active appointment for the provider on date.
	ActiveTimes(ctx context.Context, providerID int64, date time.Time) ([]string, error)

	FindByID(ctx context.Context, id int64) (*domain.AppointmentDetail, error)
	List(ctx context.Context, filter ListAppointmentsFilter) ([]*domain.AppointmentDetail, error)
	Count(ctx context.Context) (int64, error)

	// Create inserts a and fills in ID and timestamps; evt.AppointmentID is set to the new ID.
	Create(ctx context.Context, a *domain.Appointment, evt *domain.AppointmentEvent) error
	// Update overwrites date, time, status and reason of a.
	Update(ctx context.Context, a *domain.Appointment, evt *domain.AppointmentEvent) error
	Delete(ctx context.Context, id int64, evt *domain.AppointmentEvent) error
}

// SlotLocker serialises check-then-write sections per provider slot across replicas.
type SlotLocker interface {
	// WithSlotLock runs fn while holding the lock for key. It returns
	// domain.ErrSlotUnavailable when another holder owns the lock.
	WithSlotLock(ctx context.Context, key domain.SlotKey, fn func(ctx context.Context) error) error
}
