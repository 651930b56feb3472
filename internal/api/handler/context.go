package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tumme/course-system/internal/api/middleware"
	"github.com/tumme/course-system/internal/core/domain"
)

// currentUser returns the user RequireSession stored on the context. A
// missing user means the route was mounted without the middleware.
func currentUser(c echo.Context) (*domain.User, error) {
	user, _ := c.Get(middleware.ContextUser).(*domain.User)
	if user == nil || user.ID == "" {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "not logged in")
	}
	return user, nil
}
