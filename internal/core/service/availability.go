package service

import (
	"context"
	"fmt"

	"github.com/healthtech/clinic-scheduler/internal/core/domain"
)

// ProviderAvailability lists the clinic's standard slots for a provider on a
// given day, marking the ones already booked or blocked.
func (s *AppointmentService) ProviderAvailability(ctx context.Context, providerID int64, rawDate string) ([]domain.Slot, error) {
	date, err := domain.ParseDate(rawDate)
	if err != nil {
		return nil, err
	}
	if date.Before(s.today()) {
		return nil, domain.Invalid("cannot check availability in the past")
	}
	if _, err := s.lookup(ctx, providerID, domain.RoleProvider, domain.ErrProviderNotFound); err != nil {
		return nil, err
	}

	taken, err := s.appointments.ActiveTimes(ctx, providerID, date)
	if err != nil {
		return nil, fmt.Errorf("provider availability: %w", err)
	}
	busy := make(map[string]struct{}, len(taken))
	for _, t := range taken {
		busy[t] = struct{}{}
	}

	slots := make([]domain.Slot, 0, len(s.slotTimes))
	for _, t := range s.slotTimes {
		_, held := busy[t]
		slots = append(slots, domain.Slot{Time: t, Available: !held})
	}
	return slots, nil
}
