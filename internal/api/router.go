package api

import (
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/tumme/course-system/internal/api/handler"
	"github.com/tumme/course-system/internal/api/metrics"
	"github.com/tumme/course-system/internal/api/middleware"
	"github.com/tumme/course-system/internal/core/domain"
	"github.com/tumme/course-system/internal/core/ports"
)

// Deps are the services the router exposes.
type Deps struct {
	Auth     ports.AuthService
	Courses  ports.CourseService
	Grades   ports.GradeService
	Profiles ports.ProfileService
	// Checks feed the readiness endpoint, keyed by dependency name.
	Checks map[string]handler.Check
	Logger zerolog.Logger
}

// NewRouter builds the Echo instance with every route registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Logger)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(d.Logger))
	e.Use(metrics.Middleware())

	authHandler := handler.NewAuthHandler(d.Auth)
	courseHandler := handler.NewCourseHandler(d.Courses)
	subHandler := handler.NewSubscriptionHandler(d.Courses)
	gradeHandler := handler.NewGradeHandler(d.Grades)
	profileHandler := handler.NewProfileHandler(d.Profiles)

	session := middleware.RequireSession(d.Auth, d.Logger)
	teacherOnly := middleware.RBAC(domain.RoleTeacher)
	studentOnly := middleware.RBAC(domain.RoleStudent)

	// --- Auth routes ---
	e.POST("/auth/register", authHandler.Register)
	e.POST("/auth/login", authHandler.Login)
	e.POST("/auth/logout", authHandler.Logout)
	e.GET("/auth/state", authHandler.State)
	e.GET("/auth/state/stream", authHandler.StateStream)
	e.POST("/auth/activity", authHandler.Activity, session)

	// --- Catalog ---
	courses := e.Group("/courses", session)
	courses.GET("", courseHandler.List)
	courses.POST("", courseHandler.Create, teacherOnly)
	courses.GET("/:id", courseHandler.Get)
	courses.DELETE("/:id", courseHandler.Delete, teacherOnly)
	courses.GET("/:id/subscriptions", courseHandler.Subscriptions, teacherOnly)

	subs := e.Group("/subscriptions", session)
	subs.POST("", subHandler.Create, studentOnly)
	subs.DELETE("/:id", subHandler.Delete, studentOnly)
	subs.PUT("/:id/score", subHandler.SetScore, teacherOnly)

	me := e.Group("/me", session)
	me.GET("/profile", profileHandler.Mine)
	me.GET("/subscriptions", subHandler.Mine, studentOnly)
	me.GET("/grade", gradeHandler.Mine, studentOnly)
	me.GET("/grade/stream", gradeHandler.Stream, studentOnly)

	// --- Health and metrics (no session required) ---
	e.GET("/health", handler.NewHealthHandler().Liveness)
	e.GET("/health/ready", handler.NewReadinessHandler(d.Checks).Readiness)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return e
}

// requestLogger writes one zerolog line per request.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil {
				ev = log.Warn().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
