package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tumme/course-system/internal/core/ports"
)

type GradeHandler struct {
	service ports.GradeService
}

func NewGradeHandler(service ports.GradeService) *GradeHandler {
	return &GradeHandler{service: service}
}

// Mine returns the caller's current weighted grade. "graded" is false when
// no average can be computed yet.
func (h *GradeHandler) Mine(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	grade, err := h.service.StudentGrade(c.Request().Context(), user.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, grade)
}

// Stream pushes the grade as server-sent events every time the caller's
// subscriptions or the catalog change. It returns when the client leaves.
func (h *GradeHandler) Stream(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	grades, err := h.service.WatchGrade(ctx, user.ID)
	if err != nil {
		return err
	}

	startEventStream(c)
	for {
		select {
		case <-ctx.Done():
			return nil
		case grade, ok := <-grades:
			if !ok {
				return nil
			}
			if err := writeEvent(c, "grade", grade); err != nil {
				return nil
			}
		}
	}
}
