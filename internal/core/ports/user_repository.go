package ports

import (
	"context"

	"github.com/healthtech/clinic-scheduler/internal/core/domain"
)

// UserFilter narrows a user listing. Zero values mean "no filter".
type UserFilter struct {
	Role  domain.Role
	Limit int // 0 = unbounded
}

// UserCounts is the aggregate used by the admin dashboard.
type UserCounts struct {
	Total     int64
	Patients  int64
	Providers int64
	Admins    int64
}

// UserRepository defines persistence operations for user accounts.
type UserRepository interface {
	// Create inserts the user and fills in ID and timestamps.
	// Returns domain.ErrUserExists when the email is taken.
	Create(ctx context.Context, user *domain.User) error
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	// List returns users newest first.
	List(ctx context.Context, filter UserFilter) ([]*domain.User, error)
	Count(ctx context.Context) (UserCounts, error)
}
