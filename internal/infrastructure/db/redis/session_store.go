package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tumme/course-system/internal/core/domain"
	"github.com/tumme/course-system/internal/core/ports"
)

// Key format: session:<device_id> (hash), session:<device_id>:events (channel)
const (
	fieldID           = "id"
	fieldUserID       = "user_id"
	fieldEmail        = "email"
	fieldRole         = "role"
	fieldLastActivity = "last_activity"
)

// touchScript updates last_activity only when a session hash exists.
var touchScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
  redis.call("HSET", KEYS[1], "last_activity", ARGV[1])
  return 1
end
return 0
`)

// SessionStore implements ports.SessionStore on a Redis hash. Save and Clear
// publish the new user id so every process sharing the device id can react.
type SessionStore struct {
	client  *redis.Client
	key     string
	channel string
}

var _ ports.SessionStore = (*SessionStore)(nil)

func NewSessionStore(client *redis.Client, deviceID string) *SessionStore {
	key := "session:" + deviceID
	return &SessionStore{client: client, key: key, channel: key + ":events"}
}

func (s *SessionStore) Load(ctx context.Context) (*domain.Session, error) {
	fields, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	if len(fields) == 0 || fields[fieldUserID] == "" {
		return nil, domain.ErrNoSession
	}

	sess := &domain.Session{
		ID:     fields[fieldID],
		UserID: fields[fieldUserID],
		Email:  fields[fieldEmail],
		Role:   domain.Role(fields[fieldRole]),
	}
	if raw := fields[fieldLastActivity]; raw != "" {
		at, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, fmt.Errorf("decode last activity: %w", err)
		}
		sess.LastActivity = at
	}
	return sess, nil
}

func (s *SessionStore) Save(ctx context.Context, sess *domain.Session) error {
	if sess == nil {
		return errors.New("save session: nil session")
	}
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key)
		pipe.HSet(ctx, s.key,
			fieldID, sess.ID,
			fieldUserID, sess.UserID,
			fieldEmail, sess.Email,
			fieldRole, string(sess.Role),
			fieldLastActivity, sess.LastActivity.UTC().Format(time.RFC3339Nano),
		)
		pipe.Publish(ctx, s.channel, sess.UserID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *SessionStore) Touch(ctx context.Context, at time.Time) error {
	err := touchScript.Run(ctx, s.client, []string{s.key}, at.UTC().Format(time.RFC3339Nano)).Err()
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return nil
}

func (s *SessionStore) Clear(ctx context.Context) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key)
		pipe.Publish(ctx, s.channel, "")
		return nil
	})
	if err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// WatchUserID subscribes to the session channel. Messages are only a
// signal; the hash is re-read so the emitted id is the committed one.
func (s *SessionStore) WatchUserID(ctx context.Context) (<-chan string, error) {
	pubsub := s.client.Subscribe(ctx, s.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", s.channel, err)
	}

	first, ok := s.currentUserID(ctx)
	if !ok {
		_ = pubsub.Close()
		return nil, fmt.Errorf("watch session: read %s failed", s.key)
	}
	w := &idWatcher{out: make(chan string, 1)}
	w.emit(first)

	go func() {
		defer w.close()
		defer pubsub.Close()

		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-msgs:
				if !ok {
					return
				}
				if id, ok := s.currentUserID(ctx); ok {
					w.emit(id)
				}
			}
		}
	}()
	return w.out, nil
}

// currentUserID returns "" when no session is stored. ok is false when the
// read failed, in which case nothing should be emitted.
func (s *SessionStore) currentUserID(ctx context.Context) (id string, ok bool) {
	id, err := s.client.HGet(ctx, s.key, fieldUserID).Result()
	if errors.Is(err, redis.Nil) {
		return "", true
	}
	if err != nil {
		return "", false
	}
	return id, true
}

type idWatcher struct {
	mu     sync.Mutex
	out    chan string
	last   string
	primed bool
	closed bool
}

func (w *idWatcher) emit(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed || (w.primed && id == w.last) {
		return
	}
	w.last, w.primed = id, true
	select {
	case <-w.out:
	default:
	}
	w.out <- id
}

func (w *idWatcher) close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.closed {
		w.closed = true
		close(w.out)
	}
}
