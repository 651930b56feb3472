package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tumme/course-system/internal/core/domain"
	"github.com/tumme/course-system/internal/core/ports"
)

const dateLayout = "2006-01-02"

type AuthHandler struct {
	authService ports.AuthService
}

func NewAuthHandler(authService ports.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type registerRequest struct {
	Email       string `json:"email"         validate:"required"`
	Password    string `json:"password"      validate:"required"`
	Role        string `json:"role"          validate:"required,oneof=STUDENT TEACHER"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Level       string `json:"level"`
	DateOfBirth string `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
	Gender      string `json:"gender"`
}

func (r registerRequest) toInput() ports.RegisterInput {
	in := ports.RegisterInput{
		Email:     r.Email,
		Password:  r.Password,
		Role:      domain.Role(r.Role),
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Level:     domain.Level(r.Level),
		Gender:    domain.Gender(r.Gender),
	}
	if r.DateOfBirth != "" {
		// format already checked by the validator
		in.DateOfBirth, _ = time.Parse(dateLayout, r.DateOfBirth)
	}
	return in
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required"`
	Password string `json:"password" validate:"required"`
}

type authResponse struct {
	User  *domain.User     `json:"user,omitempty"`
	State domain.AuthState `json:"state"`
}

// Register opens an account and logs it in on this device.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	user, err := h.authService.Register(c.Request().Context(), req.toInput())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, authResponse{User: user, State: h.authService.State()})
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	user, err := h.authService.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, authResponse{User: user, State: h.authService.State()})
}

// Logout always ends in LoggedOut; a store failure is still reported.
func (h *AuthHandler) Logout(c echo.Context) error {
	if err := h.authService.Logout(c.Request().Context()); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AuthHandler) State(c echo.Context) error {
	return c.JSON(http.StatusOK, authResponse{State: h.authService.State()})
}

// Activity refreshes the idle timer without doing anything else.
func (h *AuthHandler) Activity(c echo.Context) error {
	if err := h.authService.UpdateLastActivity(c.Request().Context()); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// StateStream pushes every auth state transition as a server-sent event,
// starting with the current state.
func (h *AuthHandler) StateStream(c echo.Context) error {
	states, unsubscribe := h.authService.Subscribe()
	defer unsubscribe()

	ctx := c.Request().Context()
	startEventStream(c)
	for {
		select {
		case <-ctx.Done():
			return nil
		case state, ok := <-states:
			if !ok {
				return nil
			}
			if err := writeEvent(c, "state", state); err != nil {
				return nil
			}
		}
	}
}
