package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"stagedesk/internal/config"
	"stagedesk/internal/models"
	"stagedesk/internal/platform"
)

type fakeProfiles struct {
	mu      sync.Mutex
	err     error
	created []models.Profile
}

func (f *fakeProfiles) Create(ctx context.Context, profile models.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, profile)
	return nil
}

// fakeBackend is a minimal stand-in for the hosted platform's auth surface.
type fakeBackend struct {
	mu              sync.Mutex
	password        string
	signIns         int
	signUps         int
	signOuts        int
	recovers        []string
	passwordUpdates int
	userDelay       time.Duration
	signUpFails     bool
}

func (b *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/v1/token", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.signIns++
		b.mu.Unlock()

		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if r.URL.Query().Get("grant_type") == "password" && body["password"] != b.password {
			writeError(w, http.StatusBadRequest, "invalid_credentials", "Invalid login credentials")
			return
		}
		writeToken(w, "user-1", "jane@example.com")
	})
	mux.HandleFunc("/auth/v1/signup", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.signUps++
		fails := b.signUpFails
		b.mu.Unlock()
		if fails {
			writeError(w, http.StatusUnprocessableEntity, "user_already_exists", "User already registered")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "user-1", "email": "jane@example.com"})
	})
	mux.HandleFunc("/auth/v1/logout", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.signOuts++
		b.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/auth/v1/user", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut {
			b.mu.Lock()
			b.passwordUpdates++
			b.mu.Unlock()
		}
		if b.userDelay > 0 {
			time.Sleep(b.userDelay)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "user-1", "email": "jane@example.com"})
	})
	mux.HandleFunc("/auth/v1/recover", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		b.mu.Lock()
		b.recovers = append(b.recovers, body["email"])
		b.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	})
	return mux
}

func writeToken(w http.ResponseWriter, userID, email string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"access_token":  "access-1",
		"refresh_token": "refresh-1",
		"token_type":    "bearer",
		"expires_in":    3600,
		"user":          map[string]any{"id": userID, "email": email},
	})
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"error_code": code, "msg": msg})
}

func newTestManager(t *testing.T, backend *fakeBackend, profiles ProfileStore, initTimeout time.Duration) *Manager {
	t.Helper()
	srv := httptest.NewServer(backend.handler())
	t.Cleanup(srv.Close)

	client := platform.NewClient(config.PlatformConfig{URL: srv.URL, AnonKey: "anon"})
	svc := NewAuthService(client, profiles, "https://app.example.com")
	mgr := NewManager(svc, initTimeout)
	t.Cleanup(mgr.Close)
	return mgr
}

func TestLoadingFlipsExactlyOnce(t *testing.T) {
	backend := &fakeBackend{password: "secret123"}
	mgr := newTestManager(t, backend, &fakeProfiles{}, time.Second)

	require.True(t, mgr.State().Loading)

	var mu sync.Mutex
	var loadingSeen []bool
	require.NoError(t, mgr.Subscribe(func(state AuthState) {
		mu.Lock()
		loadingSeen = append(loadingSeen, state.Loading)
		mu.Unlock()
	}))

	require.NoError(t, mgr.Start(context.Background(), nil))
	require.False(t, mgr.State().Loading)

	// Several state transitions after startup; none may re-enter loading.
	require.NoError(t, mgr.SignIn(context.Background(), "jane@example.com", "secret123"))
	require.NoError(t, mgr.SignOut(context.Background()))
	require.NoError(t, mgr.SignIn(context.Background(), "jane@example.com", "secret123"))

	mu.Lock()
	defer mu.Unlock()
	for _, loading := range loadingSeen {
		require.False(t, loading)
	}
}

func TestSignInThenSignOut(t *testing.T) {
	backend := &fakeBackend{password: "secret123"}
	mgr := newTestManager(t, backend, &fakeProfiles{}, time.Second)
	require.NoError(t, mgr.Start(context.Background(), nil))

	require.NoError(t, mgr.SignIn(context.Background(), "jane@example.com", "secret123"))
	state := mgr.State()
	require.NotNil(t, state.User)
	require.NotNil(t, state.Session)
	require.Equal(t, "user-1", state.User.ID)
	require.Equal(t, state.Session.UserID, state.User.ID)

	require.NoError(t, mgr.SignOut(context.Background()))
	state = mgr.State()
	require.Nil(t, state.User)
	require.Nil(t, state.Session)
	require.Equal(t, 1, backend.signOuts)
}

func TestSignInWrongPassword(t *testing.T) {
	backend := &fakeBackend{password: "secret123"}
	mgr := newTestManager(t, backend, &fakeProfiles{}, time.Second)
	require.NoError(t, mgr.Start(context.Background(), nil))

	err := mgr.SignIn(context.Background(), "jane@example.com", "wrong")
	require.ErrorIs(t, err, platform.ErrInvalidCredentials)
	require.Nil(t, mgr.State().User)
}

func TestSignUpCreatesProfileRow(t *testing.T) {
	backend := &fakeBackend{password: "secret123"}
	profiles := &fakeProfiles{}
	mgr := newTestManager(t, backend, profiles, time.Second)
	require.NoError(t, mgr.Start(context.Background(), nil))

	err := mgr.SignUp(context.Background(), "jane@example.com", "secret123", ProfileFields{
		DisplayName: "Jane",
		Company:     "Roadshow Ltd",
	})
	require.NoError(t, err)
	require.Len(t, profiles.created, 1)
	require.Equal(t, "user-1", profiles.created[0].UserID)
	require.Equal(t, "Jane", profiles.created[0].DisplayName)

	// Sign-up does not sign the user in.
	require.Nil(t, mgr.State().User)
}

func TestSignUpProfileInsertFailure(t *testing.T) {
	backend := &fakeBackend{password: "secret123"}
	profiles := &fakeProfiles{err: errors.New("profiles table unavailable")}
	mgr := newTestManager(t, backend, profiles, time.Second)
	require.NoError(t, mgr.Start(context.Background(), nil))

	err := mgr.SignUp(context.Background(), "jane@example.com", "secret123", ProfileFields{DisplayName: "Jane"})
	require.Error(t, err)
	require.Equal(t, 1, backend.signUps)

	// Identity was created upstream but the operation failed: no local
	// sign-in, no navigation.
	require.Nil(t, mgr.State().User)
}

func TestStartRestoresPersistedSession(t *testing.T) {
	backend := &fakeBackend{password: "secret123"}
	mgr := newTestManager(t, backend, &fakeProfiles{}, time.Second)

	restored := &models.Session{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		ExpiresAt:    time.Now().Add(time.Hour),
		UserID:       "user-1",
	}
	require.NoError(t, mgr.Start(context.Background(), restored))

	state := mgr.State()
	require.False(t, state.Loading)
	require.NotNil(t, state.User)
	require.Equal(t, "jane@example.com", state.User.Email)
}

func TestStartTimesOutButComesUpSignedOut(t *testing.T) {
	backend := &fakeBackend{password: "secret123", userDelay: 300 * time.Millisecond}
	mgr := newTestManager(t, backend, &fakeProfiles{}, 50*time.Millisecond)

	restored := &models.Session{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		ExpiresAt:    time.Now().Add(time.Hour),
		UserID:       "user-1",
	}
	err := mgr.Start(context.Background(), restored)
	require.ErrorIs(t, err, ErrStartupTimeout)

	state := mgr.State()
	require.False(t, state.Loading)
	require.Nil(t, state.User)
}

func TestPasswordLifecycle(t *testing.T) {
	backend := &fakeBackend{password: "secret123"}
	mgr := newTestManager(t, backend, &fakeProfiles{}, time.Second)
	require.NoError(t, mgr.Start(context.Background(), nil))

	require.NoError(t, mgr.ResetPassword(context.Background(), "jane@example.com"))
	require.Equal(t, []string{"jane@example.com"}, backend.recovers)

	// An update needs a live session.
	require.Error(t, mgr.UpdatePassword(context.Background(), "newsecret123"))

	require.NoError(t, mgr.SignIn(context.Background(), "jane@example.com", "secret123"))
	require.NoError(t, mgr.UpdatePassword(context.Background(), "newsecret123"))
	require.Equal(t, 1, backend.passwordUpdates)
}

func TestCompleteOAuth(t *testing.T) {
	backend := &fakeBackend{password: "secret123"}
	mgr := newTestManager(t, backend, &fakeProfiles{}, time.Second)
	require.NoError(t, mgr.Start(context.Background(), nil))

	authURL, verifier := mgr.GoogleAuthURL()
	require.Contains(t, authURL, "/auth/v1/authorize")
	require.Contains(t, authURL, "provider=google")
	require.Contains(t, authURL, "code_challenge=")
	require.NotEmpty(t, verifier)

	require.NoError(t, mgr.CompleteOAuth(context.Background(), "oauth-code", verifier))
	state := mgr.State()
	require.NotNil(t, state.User)
	require.Equal(t, "jane@example.com", state.User.Email)
}

func TestNoWritesAfterClose(t *testing.T) {
	backend := &fakeBackend{password: "secret123"}
	mgr := newTestManager(t, backend, &fakeProfiles{}, time.Second)
	require.NoError(t, mgr.Start(context.Background(), nil))

	mgr.Close()
	require.NoError(t, mgr.SignIn(context.Background(), "jane@example.com", "secret123"))
	require.Nil(t, mgr.State().User)
}
