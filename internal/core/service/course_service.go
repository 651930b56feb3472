package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/tumme/course-system/internal/core/domain"
	"github.com/tumme/course-system/internal/core/ports"
)

// CourseService implements the catalog and enrollment use cases on top of
// the record store.
type CourseService struct {
	users   ports.UserRepository
	courses ports.CourseRepository
	subs    ports.SubscriptionRepository
	logger  zerolog.Logger
}

var _ ports.CourseService = (*CourseService)(nil)

func NewCourseService(
	users ports.UserRepository,
	courses ports.CourseRepository,
	subs ports.SubscriptionRepository,
	logger zerolog.Logger,
) *CourseService {
	return &CourseService{users: users, courses: courses, subs: subs, logger: logger}
}

func (s *CourseService) CreateCourse(ctx context.Context, teacherUserID string, in ports.CourseInput) (*domain.Course, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validateInput(in); err != nil {
		return nil, err
	}

	teacher, err := s.teacher(ctx, teacherUserID)
	if err != nil {
		return nil, err
	}

	course, err := s.courses.Create(ctx, &domain.Course{
		Name:      in.Name,
		ECTS:      in.ECTS,
		Level:     in.Level,
		TeacherID: teacher.ID,
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to create course")
		return nil, err
	}

	s.logger.Info().Str("course_id", course.ID).Str("teacher_id", teacher.ID).Msg("course created")
	return course, nil
}

// DeleteCourse removes a course owned by the caller, along with its
// subscriptions.
func (s *CourseService) DeleteCourse(ctx context.Context, teacherUserID, courseID string) error {
	if _, err := s.ownedCourse(ctx, teacherUserID, courseID); err != nil {
		return err
	}
	if err := s.courses.Delete(ctx, courseID); err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	s.logger.Info().Str("course_id", courseID).Msg("course deleted")
	return nil
}

func (s *CourseService) ListCourses(ctx context.Context, filter ports.CourseFilter) ([]domain.Course, error) {
	if filter.Level != "" && !filter.Level.Valid() {
		return nil, domain.NewValidationError("level must be a known study level")
	}
	return s.courses.List(ctx, filter)
}

// Subscribe enrolls the caller in a course. A student holds at most one
// subscription per course.
func (s *CourseService) Subscribe(ctx context.Context, studentUserID, courseID string) (*domain.Subscription, error) {
	student, err := s.student(ctx, studentUserID)
	if err != nil {
		return nil, err
	}
	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		return nil, err
	}

	existing, err := s.subs.FindByStudentAndCourse(ctx, student.ID, courseID)
	switch {
	case err == nil && existing != nil:
		return nil, domain.ErrDuplicateSubscription
	case err != nil && !errors.Is(err, domain.ErrSubscriptionNotFound):
		return nil, fmt.Errorf("lookup subscription: %w", err)
	}

	sub, err := s.subs.Create(ctx, &domain.Subscription{
		StudentID: student.ID,
		CourseID:  courseID,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("subscription_id", sub.ID).
		Str("student_id", student.ID).
		Str("course_id", courseID).
		Msg("subscription created")
	return sub, nil
}

func (s *CourseService) Unsubscribe(ctx context.Context, studentUserID, subscriptionID string) error {
	student, err := s.student(ctx, studentUserID)
	if err != nil {
		return err
	}
	sub, err := s.subs.FindByID(ctx, subscriptionID)
	if err != nil {
		return err
	}
	if sub.StudentID != student.ID {
		return domain.ErrForbidden
	}
	return s.subs.Delete(ctx, subscriptionID)
}

// SetScore records a grade on the 0..20 scale. Only the teacher owning the
// course may grade its subscriptions.
func (s *CourseService) SetScore(ctx context.Context, teacherUserID, subscriptionID string, score float64) error {
	if !(score >= 0 && score <= domain.MaxScore) {
		return domain.NewValidationError(fmt.Sprintf("score must be between 0 and %g", domain.MaxScore))
	}

	sub, err := s.subs.FindByID(ctx, subscriptionID)
	if err != nil {
		return err
	}
	if _, err := s.ownedCourse(ctx, teacherUserID, sub.CourseID); err != nil {
		return err
	}

	if err := s.subs.UpdateScore(ctx, subscriptionID, score); err != nil {
		return fmt.Errorf("update score: %w", err)
	}
	s.logger.Info().Str("subscription_id", subscriptionID).Float64("score", score).Msg("score recorded")
	return nil
}

func (s *CourseService) StudentSubscriptions(ctx context.Context, studentUserID string) ([]domain.Subscription, error) {
	student, err := s.student(ctx, studentUserID)
	if err != nil {
		return nil, err
	}
	return s.subs.FindByStudent(ctx, student.ID)
}

func (s *CourseService) GetCourse(ctx context.Context, courseID string) (*domain.Course, error) {
	return s.courses.FindByID(ctx, courseID)
}

// CourseRoster joins the course's subscriptions with the enrolled students'
// names. A subscription whose student profile is gone keeps its ids and score.
func (s *CourseService) CourseRoster(ctx context.Context, teacherUserID, courseID string) ([]domain.Enrollment, error) {
	if _, err := s.ownedCourse(ctx, teacherUserID, courseID); err != nil {
		return nil, err
	}
	subs, err := s.subs.FindByCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if len(subs) == 0 {
		return []domain.Enrollment{}, nil
	}

	ids := make([]string, 0, len(subs))
	for _, sub := range subs {
		ids = append(ids, sub.StudentID)
	}
	students, err := s.users.FindStudentsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load roster students: %w", err)
	}
	byID := make(map[string]domain.Student, len(students))
	for _, st := range students {
		byID[st.ID] = st
	}

	roster := make([]domain.Enrollment, 0, len(subs))
	for _, sub := range subs {
		st := byID[sub.StudentID]
		roster = append(roster, domain.Enrollment{
			SubscriptionID: sub.ID,
			StudentID:      sub.StudentID,
			FirstName:      st.FirstName,
			LastName:       st.LastName,
			Level:          st.Level,
			Score:          sub.Score,
		})
	}
	return roster, nil
}

func (s *CourseService) ownedCourse(ctx context.Context, teacherUserID, courseID string) (*domain.Course, error) {
	teacher, err := s.teacher(ctx, teacherUserID)
	if err != nil {
		return nil, err
	}
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if course.TeacherID != teacher.ID {
		return nil, domain.ErrForbidden
	}
	return course, nil
}

// teacher and student map a session user id to its profile; a user of the
// other role has no such profile and is refused.
func (s *CourseService) teacher(ctx context.Context, userID string) (*domain.Teacher, error) {
	t, err := s.users.FindTeacherByUserID(ctx, userID)
	if errors.Is(err, domain.ErrProfileNotFound) {
		return nil, domain.ErrForbidden
	}
	return t, err
}

func (s *CourseService) student(ctx context.Context, userID string) (*domain.Student, error) {
	st, err := s.users.FindStudentByUserID(ctx, userID)
	if errors.Is(err, domain.ErrProfileNotFound) {
		return nil, domain.ErrForbidden
	}
	return st, err
}
