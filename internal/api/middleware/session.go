package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/tumme/course-system/internal/core/domain"
	"github.com/tumme/course-system/internal/core/ports"
)

// Context keys set by RequireSession.
const (
	ContextUser = "user"
	ContextRole = "role"
)

// RequireSession admits a request only while the session manager reports
// LoggedIn with an unexpired session, then records the request as activity.
func RequireSession(auth ports.AuthService, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			state := auth.State()
			if state.Status != domain.AuthLoggedIn || state.User == nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "not logged in"})
			}

			ctx := c.Request().Context()
			expired, err := auth.SessionExpired(ctx)
			if err != nil {
				log.Warn().Err(err).Msg("session check failed")
			}
			if expired {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "session expired"})
			}

			if err := auth.UpdateLastActivity(ctx); err != nil {
				log.Warn().Err(err).Str("user_id", state.User.ID).Msg("failed to record activity")
			}

			c.Set(ContextUser, state.User)
			c.Set(ContextRole, state.Role)
			return next(c)
		}
	}
}
