package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tumme/course-system/internal/core/ports"
)

type ProfileHandler struct {
	service ports.ProfileService
}

func NewProfileHandler(service ports.ProfileService) *ProfileHandler {
	return &ProfileHandler{service: service}
}

// Mine returns the signed-in user together with its student or teacher
// profile.
func (h *ProfileHandler) Mine(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	acct, err := h.service.CurrentProfile(c.Request().Context(), user)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, acct)
}
