package ports

import (
	"context"
	"time"

	"github.com/tumme/course-system/internal/core/domain"
)

// SessionStore persists the single active session of this device.
type SessionStore interface {
	// Load returns domain.ErrNoSession when nothing is stored.
	Load(ctx context.Context) (*domain.Session, error)
	Save(ctx context.Context, s *domain.Session) error
	// Touch updates LastActivity and is a no-op without a stored session.
	Touch(ctx context.Context, at time.Time) error
	Clear(ctx context.Context) error
	// WatchUserID emits the current user id every time it changes; an empty
	// string means the session was cleared. The channel closes when ctx ends.
	WatchUserID(ctx context.Context) (<-chan string, error)
}
