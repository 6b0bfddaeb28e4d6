package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/healthtech/clinic-scheduler/internal/core/domain"
	"github.com/healthtech/clinic-scheduler/internal/core/ports"
)

const (
	recentUsersLimit    = 10
	systemStatusHealthy = "Healthy"
)

// UserService implements the provider directory, the admin dashboard and the
// provider's patient chart view.
type UserService struct {
	users        ports.UserRepository
	appointments ports.AppointmentRepository
}

func NewUserService(users ports.UserRepository, appointments ports.AppointmentRepository) *UserService {
	return &UserService{users: users, appointments: appointments}
}

// ListProviders is public: it backs the booking form's provider picker.
func (s *UserService) ListProviders(ctx context.Context) ([]*domain.User, error) {
	providers, err := s.users.List(ctx, ports.UserFilter{Role: domain.RoleProvider})
	if err != nil {
		return nil, fmt.Errorf("list providers: %w", err)
	}
	return providers, nil
}

func (s *UserService) ListUsers(ctx context.Context, actor domain.Actor) ([]*domain.User, error) {
	if !actor.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	users, err := s.users.List(ctx, ports.UserFilter{})
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// GetUser returns a single account. Patients may only look themselves up;
// providers and admins may look up anyone.
func (s *UserService) GetUser(ctx context.Context, actor domain.Actor, id int64) (*domain.User, error) {
	switch actor.Role {
	case domain.RoleAdmin, domain.RoleProvider:
	case domain.RolePatient:
		if id != actor.UserID {
			return nil, domain.ErrForbidden
		}
	default:
		return nil, domain.ErrForbidden
	}
	return s.users.FindByID(ctx, id)
}

// PatientSummary returns a patient together with their appointments. A
// provider only sees the appointments held with them.
func (s *UserService) PatientSummary(ctx context.Context, actor domain.Actor, patientID int64) (*ports.PatientSummary, error) {
	filter := ports.ListAppointmentsFilter{PatientID: patientID}
	switch actor.Role {
	case domain.RoleAdmin:
	case domain.RoleProvider:
		filter.ProviderID = actor.UserID
	default:
		return nil, domain.ErrForbidden
	}

	patient, err := s.users.FindByID(ctx, patientID)
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, domain.ErrPatientNotFound
	}
	if err != nil {
		return nil, err
	}
	if patient.Role != domain.RolePatient {
		return nil, domain.ErrPatientNotFound
	}

	appointments, err := s.appointments.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("patient summary: %w", err)
	}
	return &ports.PatientSummary{Patient: patient, Appointments: appointments}, nil
}

func (s *UserService) Stats(ctx context.Context, actor domain.Actor) (*ports.SystemStats, error) {
	if !actor.IsAdmin() {
		return nil, domain.ErrForbidden
	}

	counts, err := s.users.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	appointments, err := s.appointments.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count appointments: %w", err)
	}

	return &ports.SystemStats{
		TotalUsers:   counts.Total,
		Providers:    counts.Providers,
		Patients:     counts.Patients,
		Appointments: appointments,
		SystemStatus: systemStatusHealthy,
	}, nil
}

// RecentUsers returns the most recently registered accounts.
func (s *UserService) RecentUsers(ctx context.Context, actor domain.Actor) ([]*domain.User, error) {
	if !actor.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	users, err := s.users.List(ctx, ports.UserFilter{Limit: recentUsersLimit})
	if err != nil {
		return nil, fmt.Errorf("recent users: %w", err)
	}
	return users, nil
}
