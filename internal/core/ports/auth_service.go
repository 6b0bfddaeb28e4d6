package ports

import (
	"context"

	"github.com/healthtech/clinic-scheduler/internal/core/domain"
)

// RegisterInput carries the public sign-up fields.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
	Role     string
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	Token string
	User  *domain.User
}

type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	Me(ctx context.Context, actor domain.Actor) (*domain.User, error)
}
