package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tumme/course-system/internal/api/metrics"
	"github.com/tumme/course-system/internal/core/domain"
	"github.com/tumme/course-system/internal/core/ports"
)

type CourseHandler struct {
	service ports.CourseService
}

func NewCourseHandler(service ports.CourseService) *CourseHandler {
	return &CourseHandler{service: service}
}

type createCourseRequest struct {
	Name  string  `json:"name"  validate:"required"`
	ECTS  float64 `json:"ects"  validate:"required"`
	Level string  `json:"level" validate:"required"`
}

type listCoursesResponse struct {
	Courses []domain.Course `json:"courses"`
}

type rosterResponse struct {
	Subscriptions []domain.Enrollment `json:"subscriptions"`
}

// List returns the catalog, optionally filtered by ?level= and ?teacher_id=.
func (h *CourseHandler) List(c echo.Context) error {
	courses, err := h.service.ListCourses(c.Request().Context(), ports.CourseFilter{
		Level:     domain.Level(c.QueryParam("level")),
		TeacherID: c.QueryParam("teacher_id"),
	})
	if err != nil {
		return err
	}
	if courses == nil {
		courses = []domain.Course{}
	}
	return c.JSON(http.StatusOK, listCoursesResponse{Courses: courses})
}

func (h *CourseHandler) Create(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	var req createCourseRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	course, err := h.service.CreateCourse(c.Request().Context(), user.ID, ports.CourseInput{
		Name:  req.Name,
		ECTS:  req.ECTS,
		Level: domain.Level(req.Level),
	})
	if err != nil {
		return err
	}

	metrics.CoursesCreatedTotal.WithLabelValues(string(course.Level)).Inc()
	return c.JSON(http.StatusCreated, course)
}

func (h *CourseHandler) Delete(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	if err := h.service.DeleteCourse(c.Request().Context(), user.ID, c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *CourseHandler) Get(c echo.Context) error {
	course, err := h.service.GetCourse(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, course)
}

// Subscriptions lists who is enrolled in a course the caller teaches, with
// each student's name and score.
func (h *CourseHandler) Subscriptions(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	roster, err := h.service.CourseRoster(c.Request().Context(), user.ID, c.Param("id"))
	if err != nil {
		return err
	}
	if roster == nil {
		roster = []domain.Enrollment{}
	}
	return c.JSON(http.StatusOK, rosterResponse{Subscriptions: roster})
}
