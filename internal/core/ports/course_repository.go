package ports

import (
	"context"

	"github.com/tumme/course-system/internal/core/domain"
)

// CourseFilter narrows List. Empty fields do not filter.
type CourseFilter struct {
	Level     domain.Level
	TeacherID string
}

type CourseRepository interface {
	Create(ctx context.Context, c *domain.Course) (*domain.Course, error)
	FindByID(ctx context.Context, id string) (*domain.Course, error)
	List(ctx context.Context, filter CourseFilter) ([]domain.Course, error)
	// Delete removes the course and every subscription referencing it.
	Delete(ctx context.Context, id string) error
	// Watch emits the full course list after every change to the catalog.
	Watch(ctx context.Context) (<-chan []domain.Course, error)
}

type SubscriptionRepository interface {
	// Create returns domain.ErrDuplicateSubscription when the pair exists.
	Create(ctx context.Context, s *domain.Subscription) (*domain.Subscription, error)
	FindByID(ctx context.Context, id string) (*domain.Subscription, error)
	FindByStudent(ctx context.Context, studentID string) ([]domain.Subscription, error)
	FindByCourse(ctx context.Context, courseID string) ([]domain.Subscription, error)
	FindByStudentAndCourse(ctx context.Context, studentID, courseID string) (*domain.Subscription, error)
	UpdateScore(ctx context.Context, id string, score float64) error
	Delete(ctx context.Context, id string) error
	// WatchByStudent emits the student's subscriptions after every change.
	WatchByStudent(ctx context.Context, studentID string) (<-chan []domain.Subscription, error)
}
