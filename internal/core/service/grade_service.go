package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/tumme/course-system/internal/core/domain"
	"github.com/tumme/course-system/internal/core/ports"
)

// GradeService feeds record store snapshots into WeightedGrade.
type GradeService struct {
	users   ports.UserRepository
	courses ports.CourseRepository
	subs    ports.SubscriptionRepository
	logger  zerolog.Logger
}

var _ ports.GradeService = (*GradeService)(nil)

func NewGradeService(
	users ports.UserRepository,
	courses ports.CourseRepository,
	subs ports.SubscriptionRepository,
	logger zerolog.Logger,
) *GradeService {
	return &GradeService{users: users, courses: courses, subs: subs, logger: logger}
}

func (s *GradeService) StudentGrade(ctx context.Context, studentUserID string) (domain.Grade, error) {
	student, err := s.student(ctx, studentUserID)
	if err != nil {
		return domain.Grade{}, err
	}
	subs, err := s.subs.FindByStudent(ctx, student.ID)
	if err != nil {
		return domain.Grade{}, err
	}
	courses, err := s.courses.List(ctx, ports.CourseFilter{})
	if err != nil {
		return domain.Grade{}, err
	}
	return gradeFor(student.ID, subs, courses), nil
}

// WatchGrade emits the student's grade whenever their subscriptions or the
// course catalog change. The first value is emitted once both streams have
// produced a snapshot. The channel closes when ctx ends or a stream closes.
func (s *GradeService) WatchGrade(ctx context.Context, studentUserID string) (<-chan domain.Grade, error) {
	student, err := s.student(ctx, studentUserID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	subStream, err := s.subs.WatchByStudent(ctx, student.ID)
	if err != nil {
		cancel()
		return nil, err
	}
	courseStream, err := s.courses.Watch(ctx)
	if err != nil {
		cancel()
		return nil, err
	}

	out := make(chan domain.Grade, 1)
	go func() {
		defer cancel()
		defer close(out)

		var (
			subs       []domain.Subscription
			courses    []domain.Course
			haveSubs   bool
			haveCourse bool
		)
		for {
			select {
			case <-ctx.Done():
				return
			case next, ok := <-subStream:
				if !ok {
					return
				}
				subs, haveSubs = next, true
			case next, ok := <-courseStream:
				if !ok {
					return
				}
				courses, haveCourse = next, true
			}
			if !haveSubs || !haveCourse {
				continue
			}

			grade := gradeFor(student.ID, subs, courses)
			select {
			case <-out:
			default:
			}
			select {
			case out <- grade:
			case <-ctx.Done():
				return
			}
		}
	}()

	s.logger.Debug().Str("student_id", student.ID).Msg("grade watch started")
	return out, nil
}

func (s *GradeService) student(ctx context.Context, userID string) (*domain.Student, error) {
	st, err := s.users.FindStudentByUserID(ctx, userID)
	if errors.Is(err, domain.ErrProfileNotFound) {
		return nil, domain.ErrForbidden
	}
	return st, err
}
