package service

import (
	"context"
	"fmt"
	"time"

	"github.com/healthtech/clinic-scheduler/internal/core/domain"
	"github.com/healthtech/clinic-scheduler/internal/core/ports"
)

// ConflictChecker answers whether a provider slot is already claimed.
// Only booked and blocked appointments count; cancelled and completed ones
// never hold a slot.
type ConflictChecker struct {
	repo ports.AppointmentRepository
}

func NewConflictChecker(repo ports.AppointmentRepository) *ConflictChecker {
	return &ConflictChecker{repo: repo}
}

// HasConflict reports whether another active appointment sits on the slot.
// excludeID (when non-zero) is ignored so an appointment never conflicts with itself.
func (c *ConflictChecker) HasConflict(ctx context.Context, providerID int64, date time.Time, timeLabel string, excludeID int64) (bool, error) {
	claim, err := c.FindClaim(ctx, domain.SlotKey{ProviderID: providerID, Date: date, Time: timeLabel}, excludeID)
	if err != nil {
		return false, err
	}
	return claim != nil, nil
}

// FindClaim returns what occupies the slot, or nil when it is free.
func (c *ConflictChecker) FindClaim(ctx context.Context, slot domain.SlotKey, excludeID int64) (*domain.SlotClaim, error) {
	existing, err := c.repo.FindActiveInSlot(ctx, slot, excludeID)
	if err != nil {
		return nil, fmt.Errorf("conflict check: %w", err)
	}
	if existing == nil {
		return nil, nil
	}
	return domain.ClaimOf(existing), nil
}

// Ensure returns a *domain.SlotConflictError when the slot is taken.
func (c *ConflictChecker) Ensure(ctx context.Context, slot domain.SlotKey, excludeID int64) error {
	claim, err := c.FindClaim(ctx, slot, excludeID)
	if err != nil {
		return err
	}
	if claim != nil {
		return &domain.SlotConflictError{Claim: claim}
	}
	return nil
}
