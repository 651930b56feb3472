package ports

import (
	"context"

	"github.com/tumme/course-system/internal/core/domain"
)

type CourseInput struct {
	Name  string       `json:"name"  validate:"required"`
	ECTS  float64      `json:"ects"  validate:"gt=0"`
	Level domain.Level `json:"level" validate:"required,level"`
}

// CourseService covers the catalog and enrollment use cases.
// Caller ids are user ids taken from the current session.
type CourseService interface {
	CreateCourse(ctx context.Context, teacherUserID string, in CourseInput) (*domain.Course, error)
	DeleteCourse(ctx context.Context, teacherUserID, courseID string) error
	ListCourses(ctx context.Context, filter CourseFilter) ([]domain.Course, error)
	GetCourse(ctx context.Context, courseID string) (*domain.Course, error)
	Subscribe(ctx context.Context, studentUserID, courseID string) (*domain.Subscription, error)
	Unsubscribe(ctx context.Context, studentUserID, subscriptionID string) error
	SetScore(ctx context.Context, teacherUserID, subscriptionID string, score float64) error
	StudentSubscriptions(ctx context.Context, studentUserID string) ([]domain.Subscription, error)
	// CourseRoster lists the course's subscriptions with student names.
	// Only the owning teacher may read it.
	CourseRoster(ctx context.Context, teacherUserID, courseID string) ([]domain.Enrollment, error)
}

// ProfileService resolves the role profile of the signed-in user.
type ProfileService interface {
	CurrentProfile(ctx context.Context, user *domain.User) (*domain.Account, error)
}

type GradeService interface {
	StudentGrade(ctx context.Context, studentUserID string) (domain.Grade, error)
	WatchGrade(ctx context.Context, studentUserID string) (<-chan domain.Grade, error)
}
