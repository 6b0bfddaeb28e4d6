package ports

import (
	"context"

	"github.com/healthtech/clinic-scheduler/internal/core/domain"
)

// AuditService records appointment events in the audit trail.
type AuditService interface {
	Process(ctx context.Context, event domain.AppointmentEvent) error
}

// AuditPublisher hands events to the audit pipeline without blocking the request.
type AuditPublisher interface {
	Enqueue(event domain.AppointmentEvent)
}
