package ports

import (
	"context"

	"github.com/healthtech/clinic-scheduler/internal/core/domain"
)

// AuditRepository persists appointment events to the audit trail.
type AuditRepository interface {
	// InsertEvent appends an event to the appointment_events audit collection.
	InsertEvent(ctx context.Context, event *domain.AppointmentEvent) error
}
