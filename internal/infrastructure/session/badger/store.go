package badger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/pb"

	"github.com/tumme/course-system/internal/core/domain"
	"github.com/tumme/course-system/internal/core/ports"
)

const readyTimeout = 2 * time.Second

// Store implements ports.SessionStore. Every device id gets its own key
// prefix so several devices can share one database in tests.
type Store struct {
	db      *badger.DB
	prefix  []byte
	dataKey []byte
	pingKey []byte
}

var _ ports.SessionStore = (*Store)(nil)

func NewStore(db *badger.DB, deviceID string) *Store {
	prefix := []byte("session/" + deviceID + "/")
	return &Store{
		db:      db,
		prefix:  prefix,
		dataKey: append(append([]byte{}, prefix...), "current"...),
		pingKey: append(append([]byte{}, prefix...), "ping"...),
	}
}

func (s *Store) Load(_ context.Context) (*domain.Session, error) {
	var sess *domain.Session
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		sess, err = s.get(txn)
		return err
	})
	if err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *Store) Save(_ context.Context, sess *domain.Session) error {
	if sess == nil {
		return errors.New("save session: nil session")
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return s.put(txn, sess)
	})
}

func (s *Store) Touch(_ context.Context, at time.Time) error {
	return s.db.Update(func(txn *badger.Txn) error {
		sess, err := s.get(txn)
		if errors.Is(err, domain.ErrNoSession) {
			return nil
		}
		if err != nil {
			return err
		}
		sess.LastActivity = at
		return s.put(txn, sess)
	})
}

func (s *Store) Clear(_ context.Context) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(s.dataKey)
	})
}

// WatchUserID follows the session key through badger's subscription API.
// Each notification re-reads the stored session, so the emitted id always
// reflects the latest committed state.
func (s *Store) WatchUserID(ctx context.Context) (<-chan string, error) {
	ctx, cancel := context.WithCancel(ctx)

	w := &watcher{out: make(chan string, 1)}
	ready := make(chan struct{})
	var readyOnce sync.Once

	go func() {
		defer cancel()
		defer w.close()

		_ = s.db.Subscribe(ctx, func(kvs *badger.KVList) error {
			for _, kv := range kvs.GetKv() {
				if bytes.Equal(kv.GetKey(), s.pingKey) {
					readyOnce.Do(func() { close(ready) })
					continue
				}
				if id, ok := s.currentUserID(); ok {
					w.emit(id)
				}
			}
			return nil
		}, []pb.Match{{Prefix: s.prefix}})
	}()

	if err := s.awaitSubscription(ctx, ready); err != nil {
		cancel()
		return nil, err
	}

	id, ok := s.currentUserID()
	if !ok {
		cancel()
		return nil, errors.New("watch session: stored session unreadable")
	}
	w.emit(id)
	return w.out, nil
}

// awaitSubscription writes ping keys until the subscriber observes one.
// Subscribe offers no other way to know it is registered.
func (s *Store) awaitSubscription(ctx context.Context, ready <-chan struct{}) error {
	deadline := time.NewTimer(readyTimeout)
	defer deadline.Stop()
	tick := time.NewTicker(10 * time.Millisecond)
	defer tick.Stop()

	for {
		if err := s.db.Update(func(txn *badger.Txn) error {
			return txn.Set(s.pingKey, []byte{1})
		}); err != nil {
			return fmt.Errorf("watch session: %w", err)
		}
		select {
		case <-ready:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return errors.New("watch session: subscription not ready")
		case <-tick.C:
		}
	}
}

// currentUserID returns "" when no session is stored. ok is false when the
// session could not be read, in which case nothing should be emitted.
func (s *Store) currentUserID() (id string, ok bool) {
	sess, err := s.Load(context.Background())
	if errors.Is(err, domain.ErrNoSession) {
		return "", true
	}
	if err != nil {
		return "", false
	}
	return sess.UserID, true
}

func (s *Store) get(txn *badger.Txn) (*domain.Session, error) {
	item, err := txn.Get(s.dataKey)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, domain.ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}

	var sess domain.Session
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &sess)
	}); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &sess, nil
}

func (s *Store) put(txn *badger.Txn, sess *domain.Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return txn.Set(s.dataKey, raw)
}

// watcher emits distinct user ids, keeping only the newest for slow readers.
type watcher struct {
	mu     sync.Mutex
	out    chan string
	last   string
	primed bool
	closed bool
}

func (w *watcher) emit(id string) {
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

func (w *watcher) close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.closed {
		w.closed = true
		close(w.out)
	}
}
