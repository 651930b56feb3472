package ports

import (
	"context"

	"github.com/tumme/course-system/internal/core/domain"
)

// UserRepository is the record store view used by authentication.
type UserRepository interface {
	// FindByEmail returns domain.ErrUserNotFound when no user has that email.
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	// CreateAccount atomically inserts the user and its role profile.
	// Returns domain.ErrUserExists when the email is taken.
	CreateAccount(ctx context.Context, acct *domain.Account) (*domain.Account, error)
	FindStudentByUserID(ctx context.Context, userID string) (*domain.Student, error)
	FindTeacherByUserID(ctx context.Context, userID string) (*domain.Teacher, error)
	// FindStudentsByIDs returns the student profiles with the given profile
	// ids. Unknown ids are skipped.
	FindStudentsByIDs(ctx context.Context, ids []string) ([]domain.Student, error)
}

// PasswordHasher is a one-way credential transform.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, digest string) bool
}
