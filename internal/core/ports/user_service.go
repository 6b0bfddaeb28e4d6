package ports

import (
	"context"

	"github.com/healthtech/clinic-scheduler/internal/core/domain"
)

// SystemStats is the admin dashboard summary.
type SystemStats struct {
	TotalUsers   int64
	Providers    int64
	Patients     int64
	Appointments int64
	SystemStatus string
}

// PatientSummary is a patient record together with their appointments, as
// seen from a provider's chart view.
type PatientSummary struct {
	Patient      *domain.User
	Appointments []*domain.AppointmentDetail
}

// UserService covers the directory, admin and provider views over users.
type UserService interface {
	ListProviders(ctx context.Context) ([]*domain.User, error)
	ListUsers(ctx context.Context, actor domain.Actor) ([]*domain.User, error)
	GetUser(ctx context.Context, actor domain.Actor, id int64) (*domain.User, error)
	PatientSummary(ctx context.Context, actor domain.Actor, patientID int64) (*PatientSummary, error)
	Stats(ctx context.Context, actor domain.Actor) (*SystemStats, error)
	RecentUsers(ctx context.Context, actor domain.Actor) ([]*domain.User, error)
}
