package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tumme/course-system/internal/api/metrics"
	"github.com/tumme/course-system/internal/core/domain"
	"github.com/tumme/course-system/internal/core/ports"
)

type subscriptionsResponse struct {
	Subscriptions []domain.Subscription `json:"subscriptions"`
}

type SubscriptionHandler struct {
	service ports.CourseService
}

func NewSubscriptionHandler(service ports.CourseService) *SubscriptionHandler {
	return &SubscriptionHandler{service: service}
}

type subscribeRequest struct {
	CourseID string `json:"course_id" validate:"required"`
}

type scoreRequest struct {
	Score *float64 `json:"score" validate:"required"`
}

func (h *SubscriptionHandler) Create(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	var req subscribeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	sub, err := h.service.Subscribe(c.Request().Context(), user.ID, req.CourseID)
	if err != nil {
		return err
	}

	metrics.SubscriptionsCreatedTotal.Inc()
	return c.JSON(http.StatusCreated, sub)
}

func (h *SubscriptionHandler) Delete(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	if err := h.service.Unsubscribe(c.Request().Context(), user.ID, c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// SetScore grades a subscription; the service enforces the 0..20 range.
func (h *SubscriptionHandler) SetScore(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}

	var req scoreRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := h.service.SetScore(c.Request().Context(), user.ID, c.Param("id"), *req.Score); err != nil {
		return err
	}

	metrics.ScoresRecordedTotal.Inc()
	return c.NoContent(http.StatusNoContent)
}

// Mine lists the caller's own subscriptions.
func (h *SubscriptionHandler) Mine(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	subs, err := h.service.StudentSubscriptions(c.Request().Context(), user.ID)
	if err != nil {
		return err
	}
	if subs == nil {
		subs = []domain.Subscription{}
	}
	return c.JSON(http.StatusOK, subscriptionsResponse{Subscriptions: subs})
}
