package badger

import (
	"context"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tumme/course-system/internal/core/domain"
)

func newTestStore(t *testing.T, deviceID string) *Store {
	t.Helper()
	db, err := Open(InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewStore(db, deviceID)
}

func sampleSession(userID string, at time.Time) *domain.Session {
	return &domain.Session{
		ID:           "sess-" + userID,
		UserID:       userID,
		Email:        userID + "@example.com",
		Role:         domain.RoleStudent,
		LastActivity: at,
	}
}

func nextID(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case id, ok := <-ch:
		require.True(t, ok, "watch channel closed")
		return id
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for user id")
	}
	return ""
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open(Config{})
	assert.Error(t, err)
}

func TestOpen_Persistent(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	db, err := Open(Config{Path: dir, SyncWrites: true})
	require.NoError(t, err)
	require.NoError(t, NewStore(db, "dev").Save(ctx, sampleSession("u1", at)))
	require.NoError(t, db.Close())

	db2, err := Open(Config{Path: dir})
	require.NoError(t, err)
	defer db2.Close()

	got, err := NewStore(db2, "dev").Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)
	assert.True(t, got.LastActivity.Equal(at))
}

func TestStore_LoadEmpty(t *testing.T) {
	s := newTestStore(t, "dev")

	_, err := s.Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrNoSession)
}

func TestStore_SaveLoadClear(t *testing.T) {
	s := newTestStore(t, "dev")
	ctx := context.Background()
	at := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, s.Save(ctx, sampleSession("u1", at)))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, domain.RoleStudent, got.Role)
	assert.True(t, got.LastActivity.Equal(at))

	require.NoError(t, s.Clear(ctx))
	_, err = s.Load(ctx)
	assert.ErrorIs(t, err, domain.ErrNoSession)

	// clearing twice is fine
	assert.NoError(t, s.Clear(ctx))
}

func TestStore_Touch(t *testing.T) {
	s := newTestStore(t, "dev")
	ctx := context.Background()
	start := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	// no session: nothing is created
	require.NoError(t, s.Touch(ctx, start))
	_, err := s.Load(ctx)
	require.ErrorIs(t, err, domain.ErrNoSession)

	require.NoError(t, s.Save(ctx, sampleSession("u1", start)))
	later := start.Add(10 * time.Minute)
	require.NoError(t, s.Touch(ctx, later))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.True(t, got.LastActivity.Equal(later))
	assert.Equal(t, "u1", got.UserID)
}

func TestStore_DevicesAreIsolated(t *testing.T) {
	db, err := Open(InMemoryConfig())
	require.NoError(t, err)
	defer db.Close()
	ctx := context.Background()

	a, b := NewStore(db, "a"), NewStore(db, "b")
	require.NoError(t, a.Save(ctx, sampleSession("u1", time.Now())))

	_, err = b.Load(ctx)
	assert.ErrorIs(t, err, domain.ErrNoSession)
}

func TestStore_WatchUserID(t *testing.T) {
	s := newTestStore(t, "dev")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := s.WatchUserID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "", nextID(t, ch))

	require.NoError(t, s.Save(ctx, sampleSession("u1", time.Now())))
	assert.Equal(t, "u1", nextID(t, ch))

	// activity updates keep the same user and are not re-emitted
	require.NoError(t, s.Touch(ctx, time.Now()))
	require.NoError(t, s.Save(ctx, sampleSession("u2", time.Now())))
	assert.Equal(t, "u2", nextID(t, ch))

	require.NoError(t, s.Clear(ctx))
	assert.Equal(t, "", nextID(t, ch))

	cancel()
	select {
	case _, ok := <-ch:
		if ok {
			_, ok = <-ch
		}
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("watch channel not closed after cancel")
	}
}

func TestStore_WatchSeesOtherHandle(t *testing.T) {
	db, err := Open(InMemoryConfig())
	require.NoError(t, err)
	defer db.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	watching, writing := NewStore(db, "dev"), NewStore(db, "dev")
	ch, err := watching.WatchUserID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "", nextID(t, ch))

	require.NoError(t, writing.Save(ctx, sampleSession("u9", time.Now())))
	assert.Equal(t, "u9", nextID(t, ch))
}

func TestStore_WatchSkipsUnreadableSession(t *testing.T) {
	s := newTestStore(t, "dev")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := s.WatchUserID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "", nextID(t, ch))

	require.NoError(t, s.Save(ctx, sampleSession("u1", time.Now())))
	assert.Equal(t, "u1", nextID(t, ch))

	// a corrupt record is a read failure, not a logout
	require.NoError(t, s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(s.dataKey, []byte("{not json"))
	}))
	id, ok := s.currentUserID()
	assert.False(t, ok)
	assert.Empty(t, id)

	require.NoError(t, s.Save(ctx, sampleSession("u2", time.Now())))
	assert.Equal(t, "u2", nextID(t, ch))
}
