package service

import (
	"github.com/healthtech/clinic-scheduler/internal/core/domain"
	"github.com/healthtech/clinic-scheduler/internal/core/ports"
)

// ScopeListFilter narrows a requested list filter to what the actor may see.
//
//	patient  → patientId forced to self, people filters dropped
//	provider → providerId forced to self, people filters dropped
//	admin    → requested filters pass through
//
// Status and date filters always pass through. An unrecognised role is
// narrowed to appointments where the caller is both patient and provider,
// which in practice matches only their own holds.
func ScopeListFilter(actor domain.Actor, requested ports.ListAppointmentsFilter) ports.ListAppointmentsFilter {
	scoped := ports.ListAppointmentsFilter{Status: requested.Status, Date: requested.Date}

	switch actor.Role {
	case domain.RolePatient:
		scoped.PatientID = actor.UserID
	case domain.RoleProvider:
		scoped.ProviderID = actor.UserID
	case domain.RoleAdmin:
		scoped.PatientID = requested.PatientID
		scoped.ProviderID = requested.ProviderID
	default:
		scoped.PatientID = actor.UserID
		scoped.ProviderID = actor.UserID
	}
	return scoped
}

// canAccess reports whether actor may read or modify a.
func canAccess(actor domain.Actor, a *domain.Appointment) bool {
	switch actor.Role {
	case domain.RoleAdmin:
		return true
	case domain.RolePatient:
		return a.PatientID == actor.UserID
	case domain.RoleProvider:
		return a.ProviderID == actor.UserID
	default:
		return false
	}
}

// canCreate reports whether actor may place an appointment with the given
// parties. Patients book only for themselves; providers book or block only on
// their own schedule.
func canCreate(actor domain.Actor, patientID, providerID int64, status domain.AppointmentStatus) bool {
	switch actor.Role {
	case domain.RoleAdmin:
		return true
	case domain.RolePatient:
		return status == domain.StatusBooked && patientID == actor.UserID
	case domain.RoleProvider:
		return providerID == actor.UserID
	default:
		return false
	}
}
