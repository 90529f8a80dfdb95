// Package session owns the current-session state for one principal context:
// who is signed in, the cached token bundle, and every identity operation.
// Nothing else in the gateway talks to the platform's auth surface directly.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/asaskevich/EventBus"

	"stagedesk/internal/models"
	"stagedesk/internal/platform"
)

var ErrStartupTimeout = errors.New("initial session check timed out")

const topicSessionChanged = "session.changed"

// AuthState is the derived, in-memory auth state. Loading is true only
// during the initial session restore; User is non-nil iff Session is
// non-nil.
type AuthState struct {
	Session *models.Session
	User    *models.User
	Loading bool
}

// SignedIn reports whether a user is currently authenticated.
func (s AuthState) SignedIn() bool {
	return s.User != nil
}

// Manager is the single source of truth for the authenticated session of
// one principal. It performs a one-time restore on Start, then watches the
// token bundle and publishes every change; subsequent changes never flip
// Loading back to true.
type Manager struct {
	svc *AuthService
	bus EventBus.Bus

	initTimeout  time.Duration
	refreshEvery time.Duration
	refreshAhead time.Duration

	mu      sync.RWMutex
	session *models.Session
	user    *models.User
	loading bool
	closed  bool

	loadOnce sync.Once
	cancel   context.CancelFunc
}

func NewManager(svc *AuthService, initTimeout time.Duration) *Manager {
	if initTimeout <= 0 {
		initTimeout = 10 * time.Second
	}
	return &Manager{
		svc:          svc,
		bus:          EventBus.New(),
		initTimeout:  initTimeout,
		refreshEvery: 30 * time.Second,
		refreshAhead: 2 * time.Minute,
		loading:      true,
	}
}

// Start runs the initialization protocol: restore the given persisted
// session (if any), flip Loading to false, and only then start the watch
// goroutine, so no change event can overlap the initial check. The restore
// is bounded by the configured timeout; on timeout the manager comes up
// signed out with ErrStartupTimeout reported to the caller.
func (m *Manager) Start(ctx context.Context, restored *models.Session) error {
	var initErr error

	if restored != nil {
		initCtx, cancel := context.WithTimeout(ctx, m.initTimeout)
		user, err := m.svc.CurrentUser(initCtx, restored.AccessToken)
		cancel()
		switch {
		case err == nil:
			sess := *restored
			m.setSession(&sess, &user)
		case errors.Is(err, context.DeadlineExceeded):
			initErr = fmt.Errorf("%w: %v", ErrStartupTimeout, err)
		default:
			// Stale or revoked bundle: come up signed out.
			initErr = err
		}
	}

	m.finishLoading()

	watchCtx, cancel := context.WithCancel(ctx)
	m.mu.Lock()
	m.cancel = cancel
	m.mu.Unlock()
	go m.watch(watchCtx)

	return initErr
}

func (m *Manager) finishLoading() {
	m.loadOnce.Do(func() {
		m.mu.Lock()
		m.loading = false
		state := m.snapshotLocked()
		m.mu.Unlock()
		m.bus.Publish(topicSessionChanged, state)
	})
}

// State returns a copy of the current auth state.
func (m *Manager) State() AuthState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotLocked()
}

func (m *Manager) snapshotLocked() AuthState {
	state := AuthState{Loading: m.loading}
	if m.session != nil {
		sess := *m.session
		state.Session = &sess
	}
	if m.user != nil {
		user := *m.user
		state.User = &user
	}
	return state
}

// Subscribe registers a callback for every auth-state change. Callbacks run
// synchronously with the change.
func (m *Manager) Subscribe(fn func(AuthState)) error {
	return m.bus.Subscribe(topicSessionChanged, fn)
}

// SignIn authenticates with email and password. On success the session and
// user are populated and a change event fires.
func (m *Manager) SignIn(ctx context.Context, email, password string) error {
	sess, user, err := m.svc.SignIn(ctx, email, password)
	if err != nil {
		return err
	}
	m.setSession(&sess, &user)
	return nil
}

// SignUp creates the identity and its profile row. State is untouched: the
// caller lands on the login screen, signed out, whether or not sign-up
// succeeded.
func (m *Manager) SignUp(ctx context.Context, email, password string, fields ProfileFields) error {
	_, err := m.svc.SignUp(ctx, email, password, fields)
	return err
}

// SignOut revokes the platform session and clears local state.
func (m *Manager) SignOut(ctx context.Context) error {
	m.mu.RLock()
	sess := m.session
	m.mu.RUnlock()
	if sess == nil {
		return nil
	}
	if err := m.svc.SignOut(ctx, sess.AccessToken); err != nil {
		return err
	}
	m.setSession(nil, nil)
	return nil
}

func (m *Manager) ResetPassword(ctx context.Context, email string) error {
	return m.svc.ResetPassword(ctx, email)
}

func (m *Manager) UpdatePassword(ctx context.Context, newPassword string) error {
	m.mu.RLock()
	sess := m.session
	m.mu.RUnlock()
	if sess == nil {
		return errors.New("not signed in")
	}
	return m.svc.UpdatePassword(ctx, sess.AccessToken, newPassword)
}

// GoogleAuthURL starts the OAuth redirect flow; resolution happens
// out-of-band via CompleteOAuth on the callback route.
func (m *Manager) GoogleAuthURL() (authURL string, verifier string) {
	return m.svc.GoogleAuthURL()
}

func (m *Manager) CompleteOAuth(ctx context.Context, code, verifier string) error {
	sess, user, err := m.svc.ExchangeCode(ctx, code, verifier)
	if err != nil {
		return err
	}
	m.setSession(&sess, &user)
	return nil
}

// Close stops the watcher and blocks any further state writes.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	cancel := m.cancel
	m.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// setSession overwrites session and user together, keeping the
// non-nil-iff-non-nil invariant, and publishes the change. Writes after
// Close are dropped.
func (m *Manager) setSession(sess *models.Session, user *models.User) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.session = sess
	m.user = user
	state := m.snapshotLocked()
	m.mu.Unlock()
	m.bus.Publish(topicSessionChanged, state)
}

// watch refreshes the token bundle ahead of expiry. A failed refresh with an
// expired-session classification signs the manager out; other failures are
// retried on the next tick (the platform remains the source of truth).
func (m *Manager) watch(ctx context.Context) {
	ticker := time.NewTicker(m.refreshEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.refreshIfNeeded(ctx)
		}
	}
}

func (m *Manager) refreshIfNeeded(ctx context.Context) {
	m.mu.RLock()
	sess := m.session
	m.mu.RUnlock()
	if sess == nil || !sess.ExpiresWithin(m.refreshAhead) {
		return
	}

	newSess, user, err := m.svc.Refresh(ctx, sess.RefreshToken)
	if err != nil {
		if errors.Is(err, platform.ErrSessionExpired) || errors.Is(err, platform.ErrInvalidCredentials) {
			m.setSession(nil, nil)
		}
		return
	}
	m.setSession(&newSess, &user)
}
