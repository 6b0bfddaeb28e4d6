package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/healthtech/clinic-scheduler/internal/api/metrics"
	"github.com/healthtech/clinic-scheduler/internal/core/domain"
	"github.com/healthtech/clinic-scheduler/internal/core/ports"
)

type auditService struct {
	repo ports.AuditRepository
	log  zerolog.Logger
}

// NewAuditService returns an AuditService writing to repo.
func NewAuditService(repo ports.AuditRepository, log zerolog.Logger) ports.AuditService {
	return &auditService{repo: repo, log: log}
}

// Process appends a single appointment event to the audit trail.
func (s *auditService) Process(ctx context.Context, evt domain.AppointmentEvent) error {
	if evt.ID == "" || evt.AppointmentID == 0 {
		metrics.AuditEventsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("audit event: %w", domain.Invalid("event id and appointment id are required"))
	}

	if err := s.repo.InsertEvent(ctx, &evt); err != nil {
		metrics.AuditEventsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("audit event %s: %w", evt.ID, err)
	}

	metrics.AuditEventsTotal.WithLabelValues("ok").Inc()
	s.log.Debug().
		Str("event_id", evt.ID).
		Str("type", string(evt.Type)).
		Int64("appointment_id", evt.AppointmentID).
		Msg("audit event recorded")
	return nil
}

// NopAuditRepository discards events. Used when no audit store is configured.
type NopAuditRepository struct{}

func (NopAuditRepository) InsertEvent(context.Context, *domain.AppointmentEvent) error { return nil }
