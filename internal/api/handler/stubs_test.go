package handler

import (
	"context"
	"net/http/httptest"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/tumme/course-system/internal/api/middleware"
	"github.com/tumme/course-system/internal/core/domain"
	"github.com/tumme/course-system/internal/core/ports"
)

type stubAuthService struct {
	registerFn func(ctx context.Context, in ports.RegisterInput) (*domain.User, error)
	loginFn    func(ctx context.Context, email, password string) (*domain.User, error)
	logoutErr  error
	state      domain.AuthState
	states     chan domain.AuthState
	touches    int
}

func (s *stubAuthService) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	return s.registerFn(ctx, in)
}

func (s *stubAuthService) Login(ctx context.Context, email, password string) (*domain.User, error) {
	return s.loginFn(ctx, email, password)
}

func (s *stubAuthService) Logout(context.Context) error {
	s.state = domain.LoggedOutState()
	return s.logoutErr
}

func (s *stubAuthService) SessionExpired(context.Context) (bool, error) { return false, nil }

func (s *stubAuthService) UpdateLastActivity(context.Context) error {
	s.touches++
	return nil
}

func (s *stubAuthService) State() domain.AuthState { return s.state }

func (s *stubAuthService) Subscribe() (<-chan domain.AuthState, func()) {
	if s.states == nil {
		s.states = make(chan domain.AuthState)
	}
	return s.states, func() {}
}

type stubCourseService struct {
	createFn func(ctx context.Context, teacherUserID string, in ports.CourseInput) (*domain.Course, error)
	listFn   func(ctx context.Context, f ports.CourseFilter) ([]domain.Course, error)
	scoreFn  func(ctx context.Context, teacherUserID, subID string, score float64) error
	subs     []domain.Subscription
	course   *domain.Course
	roster   []domain.Enrollment
	err      error
}

func (s *stubCourseService) CreateCourse(ctx context.Context, uid string, in ports.CourseInput) (*domain.Course, error) {
	return s.createFn(ctx, uid, in)
}

func (s *stubCourseService) DeleteCourse(context.Context, string, string) error { return s.err }

func (s *stubCourseService) ListCourses(ctx context.Context, f ports.CourseFilter) ([]domain.Course, error) {
	return s.listFn(ctx, f)
}

func (s *stubCourseService) Subscribe(_ context.Context, _ string, courseID string) (*domain.Subscription, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Subscription{ID: "sub-1", StudentID: "student-1", CourseID: courseID}, nil
}

func (s *stubCourseService) Unsubscribe(context.Context, string, string) error { return s.err }

func (s *stubCourseService) SetScore(ctx context.Context, uid, subID string, score float64) error {
	return s.scoreFn(ctx, uid, subID, score)
}

func (s *stubCourseService) StudentSubscriptions(context.Context, string) ([]domain.Subscription, error) {
	return s.subs, s.err
}

func (s *stubCourseService) GetCourse(context.Context, string) (*domain.Course, error) {
	return s.course, s.err
}

func (s *stubCourseService) CourseRoster(context.Context, string, string) ([]domain.Enrollment, error) {
	return s.roster, s.err
}

type stubProfileService struct {
	acct *domain.Account
	err  error
}

func (s *stubProfileService) CurrentProfile(context.Context, *domain.User) (*domain.Account, error) {
	return s.acct, s.err
}

type stubGradeService struct {
	grade  domain.Grade
	stream chan domain.Grade
	err    error
}

func (s *stubGradeService) StudentGrade(context.Context, string) (domain.Grade, error) {
	return s.grade, s.err
}

func (s *stubGradeService) WatchGrade(context.Context, string) (<-chan domain.Grade, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.stream, nil
}

func newEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	return e
}

// newContext builds a request context; a non-nil user is attached the way
// RequireSession does it.
func newContext(e *echo.Echo, method, target, body string, user *domain.User) (echo.Context, *httptest.ResponseRecorder) {
	var req = httptest.NewRequest(method, target, nil)
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if user != nil {
		c.Set(middleware.ContextUser, user)
		c.Set(middleware.ContextRole, user.Role)
	}
	return c, rec
}
