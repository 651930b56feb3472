package ports

import (
	"context"
	"time"

	"github.com/tumme/course-system/internal/core/domain"
)

// RegisterInput carries everything needed to open an account.
// The student fields are required only for domain.RoleStudent.
type RegisterInput struct {
	Email       string        `json:"email"         validate:"required,email"`
	Password    string        `json:"-"             validate:"required"`
	Role        domain.Role   `json:"role"          validate:"required,oneof=STUDENT TEACHER"`
	FirstName   string        `json:"first_name"    validate:"required"`
	LastName    string        `json:"last_name"     validate:"required"`
	Level       domain.Level  `json:"level"         validate:"required_if=Role STUDENT,level"`
	DateOfBirth time.Time     `json:"date_of_birth" validate:"required_if=Role STUDENT"`
	Gender      domain.Gender `json:"gender"        validate:"required_if=Role STUDENT,gender"`
}

// AuthService is the session manager as seen by the presentation layer.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*domain.User, error)
	Logout(ctx context.Context) error
	SessionExpired(ctx context.Context) (bool, error)
	UpdateLastActivity(ctx context.Context) error
	State() domain.AuthState
	Subscribe() (<-chan domain.AuthState, func())
}
