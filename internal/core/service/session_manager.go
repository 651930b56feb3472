package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tumme/course-system/internal/core/domain"
	"github.com/tumme/course-system/internal/core/ports"
)

const (
	DefaultSessionTimeout = 30 * time.Minute
	DefaultSweepInterval  = time.Minute
)

const (
	msgInvalidCredentials = "Invalid email or password"
	msgEmailExists        = "Email already exists"
)

// SessionOptions tunes the expiry policy. Zero values fall back to defaults.
type SessionOptions struct {
	Timeout       time.Duration
	SweepInterval time.Duration
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// SessionManager owns the authentication state of this device. It is the
// only writer of the persisted session.
//
// The state starts as Loading. Start reconciles it with the stored session
// and launches the expiry sweep and the session watcher; Close stops both.
type SessionManager struct {
	users  ports.UserRepository
	store  ports.SessionStore
	hasher ports.PasswordHasher
	log    zerolog.Logger

	timeout    time.Duration
	sweepEvery time.Duration
	now        func() time.Time

	mu      sync.RWMutex
	state   domain.AuthState
	subs    map[int]chan domain.AuthState
	nextSub int
	started bool
	closed  bool

	cancel context.CancelFunc
	group  *errgroup.Group
	once   sync.Once
}

var _ ports.AuthService = (*SessionManager)(nil)

var (
	ErrManagerStarted = errors.New("session manager already started")
	ErrManagerClosed  = errors.New("session manager closed")
)

func NewSessionManager(
	users ports.UserRepository,
	store ports.SessionStore,
	hasher ports.PasswordHasher,
	log zerolog.Logger,
	opts SessionOptions,
) *SessionManager {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultSessionTimeout
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = DefaultSweepInterval
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &SessionManager{
		users:      users,
		store:      store,
		hasher:     hasher,
		log:        log,
		timeout:    opts.Timeout,
		sweepEvery: opts.SweepInterval,
		now:        opts.Now,
		state:      domain.LoadingState(),
		subs:       make(map[int]chan domain.AuthState),
	}
}

// Start restores the state from the persisted session and runs the
// background tasks until ctx is cancelled or Close is called. A manager
// starts at most once and never after Close.
func (m *SessionManager) Start(ctx context.Context) error {
	m.mu.Lock()
	switch {
	case m.closed:
		m.mu.Unlock()
		return ErrManagerClosed
	case m.started:
		m.mu.Unlock()
		return ErrManagerStarted
	}
	m.started = true
	m.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)

	// Subscribe before reconciling so no change in between is missed.
	updates, err := m.store.WatchUserID(runCtx)
	if err != nil {
		cancel()
		m.mu.Lock()
		m.started = false
		m.mu.Unlock()
		return fmt.Errorf("watch session: %w", err)
	}

	m.reconcile(runCtx)

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		m.watch(gctx, updates)
		return nil
	})
	g.Go(func() error {
		m.sweep(gctx)
		return nil
	})

	m.mu.Lock()
	if m.closed {
		// Close ran while we were starting and had nothing to stop.
		m.mu.Unlock()
		cancel()
		_ = g.Wait()
		return ErrManagerClosed
	}
	m.cancel = cancel
	m.group = g
	m.mu.Unlock()
	return nil
}

// Close stops the background tasks, waits for them and closes every
// subscriber channel. It is safe to call more than once.
func (m *SessionManager) Close() error {
	m.once.Do(func() {
		m.mu.Lock()
		cancel, g := m.cancel, m.group
		m.mu.Unlock()

		if cancel != nil {
			cancel()
			_ = g.Wait()
		}

		m.mu.Lock()
		defer m.mu.Unlock()
		m.closed = true
		for id, ch := range m.subs {
			close(ch)
			delete(m.subs, id)
		}
	})
	return nil
}

// State returns the current authentication state.
func (m *SessionManager) State() domain.AuthState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Subscribe returns a channel that receives the current state immediately and
// then every later transition. Slow readers only see the latest state.
// The returned func unsubscribes and closes the channel.
func (m *SessionManager) Subscribe() (<-chan domain.AuthState, func()) {
	ch := make(chan domain.AuthState, 1)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		close(ch)
		return ch, func() {}
	}
	id := m.nextSub
	m.nextSub++
	m.subs[id] = ch
	ch <- m.state

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			if c, ok := m.subs[id]; ok {
				close(c)
				delete(m.subs, id)
			}
		})
	}
}

func (m *SessionManager) setState(next domain.AuthState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sameState(m.state, next) {
		return
	}
	prev := m.state
	m.state = next
	for _, ch := range m.subs {
		select {
		case <-ch:
		default:
		}
		ch <- next
	}
	m.log.Debug().
		Str("from", string(prev.Status)).
		Str("to", string(next.Status)).
		Msg("auth state changed")
}

func sameState(a, b domain.AuthState) bool {
	if a.Status != b.Status || a.Message != b.Message {
		return false
	}
	if a.Status == domain.AuthLoggedIn {
		return a.User != nil && b.User != nil && a.User.ID == b.User.ID
	}
	return true
}

// Register creates an account and logs it in. Every failure is also
// reflected in the state as Error(message).
func (m *SessionManager) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	m.setState(domain.LoadingState())

	user, err := m.register(ctx, in)
	if err != nil {
		m.setState(domain.ErrorState(registerMessage(err)))
		m.log.Info().Err(err).Str("email", in.Email).Msg("registration failed")
		return nil, err
	}

	m.setState(domain.LoggedInState(user))
	m.log.Info().Str("user_id", user.ID).Str("role", string(user.Role)).Msg("user registered")
	return user, nil
}

func (m *SessionManager) register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	in.Email = domain.NormalizeEmail(in.Email)
	if err := validateInput(in); err != nil {
		return nil, err
	}

	_, err := m.users.FindByEmail(ctx, in.Email)
	switch {
	case err == nil:
		return nil, errEmailTaken
	case !errors.Is(err, domain.ErrUserNotFound):
		return nil, fmt.Errorf("lookup email: %w", err)
	}

	hash, err := m.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	acct := &domain.Account{
		User: &domain.User{
			Email:        in.Email,
			PasswordHash: hash,
			Role:         in.Role,
			CreatedAt:    m.now().UTC(),
		},
	}
	switch in.Role {
	case domain.RoleStudent:
		acct.Student = &domain.Student{
			FirstName:   in.FirstName,
			LastName:    in.LastName,
			DateOfBirth: in.DateOfBirth,
			Gender:      in.Gender,
			Level:       in.Level,
		}
	case domain.RoleTeacher:
		acct.Teacher = &domain.Teacher{
			FirstName: in.FirstName,
			LastName:  in.LastName,
		}
	}

	created, err := m.users.CreateAccount(ctx, acct)
	if errors.Is(err, domain.ErrUserExists) {
		return nil, errEmailTaken
	}
	if err != nil {
		return nil, err
	}
	if err := m.startSession(ctx, created.User); err != nil {
		return nil, err
	}
	return created.User, nil
}

// errEmailTaken matches both ErrValidation and ErrUserExists.
var errEmailTaken = fmt.Errorf("%w: %w", domain.ErrValidation, domain.ErrUserExists)

func registerMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrUserExists):
		return msgEmailExists
	case errors.Is(err, domain.ErrValidation):
		return err.Error()
	default:
		return "Registration failed: " + err.Error()
	}
}

// Login verifies the credentials and opens a session.
func (m *SessionManager) Login(ctx context.Context, email, password string) (*domain.User, error) {
	m.setState(domain.LoadingState())

	user, err := m.login(ctx, domain.NormalizeEmail(email), password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			m.setState(domain.ErrorState(msgInvalidCredentials))
		} else {
			m.setState(domain.ErrorState("Login failed: " + err.Error()))
		}
		m.log.Info().Err(err).Msg("login failed")
		return nil, err
	}

	m.setState(domain.LoggedInState(user))
	m.log.Info().Str("user_id", user.ID).Msg("user logged in")
	return user, nil
}

func (m *SessionManager) login(ctx context.Context, email, password string) (*domain.User, error) {
	if email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := m.users.FindByEmail(ctx, email)
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if !m.hasher.Verify(password, user.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}

	if err := m.startSession(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (m *SessionManager) startSession(ctx context.Context, user *domain.User) error {
	sess := &domain.Session{
		ID:           uuid.NewString(),
		UserID:       user.ID,
		Email:        user.Email,
		Role:         user.Role,
		LastActivity: m.now().UTC(),
	}
	if err := m.store.Save(ctx, sess); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	m.log.Debug().Str("user_id", user.ID).Str("session_id", sess.ID).Msg("session started")
	return nil
}

// Logout clears the persisted session. The state becomes LoggedOut even when
// clearing fails; the error is still returned.
func (m *SessionManager) Logout(ctx context.Context) error {
	err := m.store.Clear(ctx)
	m.setState(domain.LoggedOutState())
	if err != nil {
		m.log.Error().Err(err).Msg("failed to clear session")
		return fmt.Errorf("clear session: %w", err)
	}
	m.log.Info().Msg("user logged out")
	return nil
}

// SessionExpired reports whether there is no usable session. A store failure
// counts as expired and is returned alongside.
func (m *SessionManager) SessionExpired(ctx context.Context) (bool, error) {
	sess, err := m.store.Load(ctx)
	if errors.Is(err, domain.ErrNoSession) {
		return true, nil
	}
	if err != nil {
		return true, fmt.Errorf("load session: %w", err)
	}
	return sess.Expired(m.now(), m.timeout), nil
}

// UpdateLastActivity keeps the session alive. Without a session it does nothing.
func (m *SessionManager) UpdateLastActivity(ctx context.Context) error {
	if err := m.store.Touch(ctx, m.now().UTC()); err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return nil
}

func (m *SessionManager) reconcile(ctx context.Context) {
	expired, err := m.SessionExpired(ctx)
	if err != nil {
		// Keep the stored session; only the read failed.
		m.log.Warn().Err(err).Msg("session unreadable at startup")
		m.setState(domain.LoggedOutState())
		return
	}
	if expired {
		if err := m.store.Clear(ctx); err != nil {
			m.log.Warn().Err(err).Msg("failed to clear expired session")
		}
		m.setState(domain.LoggedOutState())
		return
	}

	user, err := m.currentUser(ctx)
	if err != nil {
		if sessionGone(err) {
			m.log.Info().Err(err).Msg("stored session has no usable user")
		} else {
			m.log.Warn().Err(err).Msg("failed to load session user")
		}
		m.setState(domain.LoggedOutState())
		return
	}

	m.setState(domain.LoggedInState(user))
	if err := m.UpdateLastActivity(ctx); err != nil {
		m.log.Warn().Err(err).Msg("failed to refresh activity")
	}
	m.log.Info().Str("user_id", user.ID).Msg("session restored")
}

// currentUser loads the user of the stored session, failing when the session
// is missing, expired or points at an unknown user.
func (m *SessionManager) currentUser(ctx context.Context) (*domain.User, error) {
	sess, err := m.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if sess.Expired(m.now(), m.timeout) {
		return nil, domain.ErrNoSession
	}
	return m.users.FindByID(ctx, sess.UserID)
}

// sessionGone reports whether err means there is no usable session, as
// opposed to the store being unreachable.
func sessionGone(err error) bool {
	return errors.Is(err, domain.ErrNoSession) || errors.Is(err, domain.ErrUserNotFound)
}

func (m *SessionManager) watch(ctx context.Context, updates <-chan string) {
	for {
		select {
		case <-ctx.Done():
			return
		case userID, ok := <-updates:
			if !ok {
				return
			}
			m.onUserIDChange(ctx, userID)
		}
	}
}

func (m *SessionManager) onUserIDChange(ctx context.Context, userID string) {
	if userID == "" {
		if m.State().Status != domain.AuthLoggedOut {
			m.setState(domain.LoggedOutState())
		}
		return
	}

	// Re-derive from the store rather than trusting a possibly stale event.
	user, err := m.currentUser(ctx)
	if err != nil {
		if sessionGone(err) {
			m.setState(domain.LoggedOutState())
			return
		}
		m.log.Warn().Err(err).Str("user_id", userID).Msg("session change not applied")
		return
	}
	if !m.State().IsLoggedInAs(user.ID) {
		m.setState(domain.LoggedInState(user))
	}
}

func (m *SessionManager) sweep(ctx context.Context) {
	ticker := time.NewTicker(m.sweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.expireIdle(ctx)
		}
	}
}

func (m *SessionManager) expireIdle(ctx context.Context) {
	if m.State().Status != domain.AuthLoggedIn {
		return
	}
	expired, err := m.SessionExpired(ctx)
	if err != nil {
		m.log.Warn().Err(err).Msg("expiry check failed")
		return
	}
	if !expired {
		return
	}
	if err := m.store.Clear(ctx); err != nil {
		m.log.Error().Err(err).Msg("failed to clear expired session")
	}
	m.setState(domain.LoggedOutState())
	m.log.Info().Msg("session expired")
}
