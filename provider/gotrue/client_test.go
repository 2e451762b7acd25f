package gotrue

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrEthical07/sessionguard"
	"github.com/MrEthical07/sessionguard/internal/logging"
	"github.com/MrEthical07/sessionguard/jwt"
	"github.com/MrEthical07/sessionguard/session"
	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAPIKey = "anon-key"

type fakeBackend struct {
	t *testing.T

	refreshCalls  atomic.Int32
	passwordCalls atomic.Int32
	logoutCalls   atomic.Int32

	mu            sync.Mutex
	refreshStatus int
	tokenBody     map[string]any
	lastAuth      string
	lastBody      map[string]any
}

func (b *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/v1/token", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("apikey") != testAPIKey {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		b.mu.Lock()
		b.lastBody = body
		status := b.refreshStatus
		tokenBody := b.tokenBody
		b.mu.Unlock()

		switch r.URL.Query().Get("grant_type") {
		case "password":
			b.passwordCalls.Add(1)
			if body["password"] != "hunter2" {
				writeJSON(w, http.StatusBadRequest, map[string]any{
					"error":             "invalid_grant",
					"error_description": "Invalid login credentials",
				})
				return
			}
		case "refresh_token":
			b.refreshCalls.Add(1)
			if status != 0 {
				writeJSON(w, status, map[string]any{"msg": "refresh failed"})
				return
			}
		default:
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if tokenBody == nil {
			tokenBody = tokenJSON("access-new", "refresh-new", 3600)
		}
		writeJSON(w, http.StatusOK, tokenBody)
	})
	mux.HandleFunc("POST /auth/v1/logout", func(w http.ResponseWriter, r *http.Request) {
		b.logoutCalls.Add(1)
		b.mu.Lock()
		b.lastAuth = r.Header.Get("Authorization")
		b.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("GET /auth/v1/user", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.lastAuth = r.Header.Get("Authorization")
		b.mu.Unlock()
		writeJSON(w, http.StatusOK, userJSON("ana"))
	})
	mux.HandleFunc("PUT /auth/v1/user", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Data map[string]string `json:"data"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		writeJSON(w, http.StatusOK, userJSON(body.Data["username"]))
	})
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func userJSON(username string) map[string]any {
	return map[string]any{
		"id":    "user-1",
		"email": "ana@example.com",
		"user_metadata": map[string]any{
			"username": username,
			"verified": true,
			"nested":   map[string]any{"x": 1},
		},
	}
}

func tokenJSON(access, refresh string, expiresIn int64) map[string]any {
	return map[string]any{
		"access_token":  access,
		"token_type":    "bearer",
		"expires_in":    expiresIn,
		"refresh_token": refresh,
		"user":          userJSON("ana"),
	}
}

type testEnv struct {
	backend *fakeBackend
	server  *httptest.Server
	store   *session.MemoryStore
	client  *Client
	now     time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		backend: &fakeBackend{t: t},
		store:   session.NewMemoryStore(),
		now:     time.Now(),
	}
	env.server = httptest.NewServer(env.backend.handler())
	t.Cleanup(env.server.Close)

	cfg := DefaultConfig()
	cfg.URL = env.server.URL
	cfg.APIKey = testAPIKey
	client, err := NewClient(cfg, env.store,
		WithLogger(logging.Discard()),
		WithClock(func() time.Time { return env.now }),
	)
	require.NoError(t, err)
	env.client = client
	return env
}

func (e *testEnv) seed(t *testing.T, expiresIn time.Duration) {
	t.Helper()
	require.NoError(t, e.store.Save(context.Background(), session.DefaultKey, &session.Record{
		AccessToken:  "access-old",
		RefreshToken: "refresh-old",
		TokenType:    "bearer",
		ExpiresAt:    e.now.Add(expiresIn).Unix(),
		UserID:       "user-1",
		UserMetadata: map[string]string{"username": "ana"},
	}))
}

type eventLog struct {
	mu     sync.Mutex
	events []sessionguard.AuthEvent
	last   *sessionguard.Session
}

func (l *eventLog) listen(ev sessionguard.AuthEvent, sess *sessionguard.Session) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
	l.last = sess
}

func (l *eventLog) Events() []sessionguard.AuthEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]sessionguard.AuthEvent(nil), l.events...)
}

func TestGetSessionAbsent(t *testing.T) {
	env := newTestEnv(t)
	sess, err := env.client.GetSession(context.Background())
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestGetSessionFreshNoRefresh(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, time.Hour)

	sess, err := env.client.GetSession(context.Background())
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, "access-old", sess.AccessToken)
	assert.Equal(t, "ana", sess.User.DisplayName())
	assert.Zero(t, env.backend.refreshCalls.Load())
}

func TestGetSessionRefreshesNearExpiry(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, 30*time.Second)
	log := &eventLog{}
	_, err := env.client.OnAuthStateChange(log.listen)
	require.NoError(t, err)

	sess, err := env.client.GetSession(context.Background())
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, "access-new", sess.AccessToken)
	assert.Equal(t, int32(1), env.backend.refreshCalls.Load())
	assert.Equal(t, []sessionguard.AuthEvent{sessionguard.EventTokenRefreshed}, log.Events())

	stored, err := env.store.Load(context.Background(), session.DefaultKey)
	require.NoError(t, err)
	assert.Equal(t, "refresh-new", stored.RefreshToken)
	assert.Equal(t, env.now.Add(time.Hour).Unix(), stored.ExpiresAt)
}

func TestGetSessionConcurrentRefreshIssuedOnce(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, -time.Second)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = env.client.GetSession(context.Background())
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, env.backend.refreshCalls.Load(), int32(8))
	assert.GreaterOrEqual(t, env.backend.refreshCalls.Load(), int32(1))
}

func TestGetSessionServerErrorIsRetryable(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, -time.Second)
	env.backend.refreshStatus = http.StatusServiceUnavailable

	sess, err := env.client.GetSession(context.Background())
	assert.Nil(t, sess)
	require.Error(t, err)
	assert.True(t, sessionguard.IsRetryable(err), "got %v", err)
	assert.False(t, IsTerminal(err))

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.Status)
}

func TestGetSessionEarlyRefreshFailureKeepsToken(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, 30*time.Second)
	env.backend.refreshStatus = http.StatusBadGateway

	sess, err := env.client.GetSession(context.Background())
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, "access-old", sess.AccessToken)
}

func TestGetSessionRejectedRefreshSignsOut(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, -time.Second)
	env.backend.refreshStatus = http.StatusBadRequest
	log := &eventLog{}
	_, err := env.client.OnAuthStateChange(log.listen)
	require.NoError(t, err)

	sess, err := env.client.GetSession(context.Background())
	assert.Nil(t, sess)
	require.Error(t, err)
	assert.True(t, IsTerminal(err))
	assert.False(t, sessionguard.IsRetryable(err), "got %v", err)
	assert.Equal(t, []sessionguard.AuthEvent{sessionguard.EventSignedOut}, log.Events())

	stored, err := env.store.Load(context.Background(), session.DefaultKey)
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestGetSessionTransportErrorIsRetryable(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, -time.Second)
	env.server.Close()

	_, err := env.client.GetSession(context.Background())
	require.Error(t, err)
	assert.True(t, sessionguard.IsRetryable(err), "got %v", err)
	assert.Contains(t, err.Error(), "network error")
}

func TestGetSessionExpiredWithoutAutoRefresh(t *testing.T) {
	env := newTestEnv(t)
	env.client.cfg.AutoRefresh = false
	env.seed(t, -time.Minute)

	sess, err := env.client.GetSession(context.Background())
	require.NoError(t, err)
	assert.Nil(t, sess)
	assert.Zero(t, env.backend.refreshCalls.Load())
}

func TestSignInWithPassword(t *testing.T) {
	env := newTestEnv(t)
	log := &eventLog{}
	_, err := env.client.OnAuthStateChange(log.listen)
	require.NoError(t, err)

	sess, err := env.client.SignInWithPassword(context.Background(), " ana@example.com ", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "access-new", sess.AccessToken)
	assert.Equal(t, "ana", sess.User.DisplayName())
	assert.Equal(t, "true", sess.User.Metadata["verified"])
	_, nested := sess.User.Metadata["nested"]
	assert.False(t, nested)
	assert.Equal(t, "ana@example.com", env.backend.lastBody["email"])
	assert.Equal(t, []sessionguard.AuthEvent{sessionguard.EventSignedIn}, log.Events())

	got, err := env.client.GetSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "access-new", got.AccessToken)
}

func TestSignInWithPasswordRejected(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.client.SignInWithPassword(context.Background(), "ana@example.com", "wrong")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "invalid_grant", apiErr.Code)
	assert.Equal(t, "Invalid login credentials", apiErr.Message)
	assert.False(t, sessionguard.IsRetryable(err))

	_, err = env.client.SignInWithPassword(context.Background(), "", "")
	assert.True(t, IsTerminal(err))
	assert.Equal(t, int32(1), env.backend.passwordCalls.Load())
}

func TestSignOut(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, time.Hour)
	log := &eventLog{}
	_, err := env.client.OnAuthStateChange(log.listen)
	require.NoError(t, err)

	require.NoError(t, env.client.SignOut(context.Background()))
	assert.Equal(t, int32(1), env.backend.logoutCalls.Load())
	assert.Equal(t, "Bearer access-old", env.backend.lastAuth)
	assert.Equal(t, []sessionguard.AuthEvent{sessionguard.EventSignedOut}, log.Events())

	sess, err := env.client.GetSession(context.Background())
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestSignOutBackendDownStillClearsSession(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, time.Hour)
	env.server.Close()

	require.NoError(t, env.client.SignOut(context.Background()))
	stored, err := env.store.Load(context.Background(), session.DefaultKey)
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestUserAndUpdateUser(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.client.User(context.Background())
	assert.ErrorIs(t, err, ErrNoSession)

	env.seed(t, time.Hour)
	u, err := env.client.User(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "user-1", u.ID)
	assert.Equal(t, "Bearer access-old", env.backend.lastAuth)

	log := &eventLog{}
	_, err = env.client.OnAuthStateChange(log.listen)
	require.NoError(t, err)

	u, err = env.client.UpdateUser(context.Background(), map[string]string{"username": "bea"})
	require.NoError(t, err)
	assert.Equal(t, "bea", u.DisplayName())
	assert.Equal(t, []sessionguard.AuthEvent{sessionguard.EventUserUpdated}, log.Events())
	assert.Equal(t, "bea", log.last.User.DisplayName())

	stored, err := env.store.Load(context.Background(), session.DefaultKey)
	require.NoError(t, err)
	assert.Equal(t, "bea", stored.UserMetadata["username"])
}

func TestTokenResponseExpiryFromJWT(t *testing.T) {
	exp := time.Now().Add(2 * time.Hour).Truncate(time.Second)
	access, err := jwt.SignHS256(&jwt.AccessClaims{
		Email: "ana@example.com",
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   "user-9",
			ExpiresAt: jwtlib.NewNumericDate(exp),
		},
	}, []byte("backend-secret"))
	require.NoError(t, err)

	tr := tokenResponse{AccessToken: access, RefreshToken: "r"}
	rec := tr.record(time.Now())
	assert.Equal(t, exp.Unix(), rec.ExpiresAt)
	assert.Equal(t, "user-9", rec.UserID)
	assert.Equal(t, "ana@example.com", rec.Email)
}

func TestTokenResponseJWTWithTypedMetadata(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	access, err := jwt.SignHS256(&jwt.AccessClaims{
		Email:        "niamh@example.com",
		UserMetadata: map[string]any{"username": "niamh", "email_verified": true},
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   "user-3",
			ExpiresAt: jwtlib.NewNumericDate(exp),
		},
	}, []byte("backend-secret"))
	require.NoError(t, err)

	tr := tokenResponse{AccessToken: access, RefreshToken: "r"}
	rec := tr.record(time.Now())
	assert.Equal(t, exp.Unix(), rec.ExpiresAt)
	assert.Equal(t, "user-3", rec.UserID)
	assert.Equal(t, "niamh", rec.UserMetadata["username"])
	assert.Equal(t, "true", rec.UserMetadata["email_verified"])
}

func TestTokenResponseUserWithoutIDFallsBackToSubject(t *testing.T) {
	access, err := jwt.SignHS256(&jwt.AccessClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{Subject: "user-4"},
	}, []byte("backend-secret"))
	require.NoError(t, err)

	tr := tokenResponse{
		AccessToken: access,
		ExpiresIn:   60,
		User:        &wireUser{Email: "x@example.com"},
	}
	rec := tr.record(time.Now())
	assert.Equal(t, "user-4", rec.UserID)
	assert.Equal(t, "x@example.com", rec.Email)
}

func TestNewClientValidatesConfig(t *testing.T) {
	cfg := DefaultConfig()
	_, err := NewClient(cfg, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	cfg.URL = "https://example.supabase.co"
	_, err = NewClient(cfg, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig, "missing api key")

	cfg.APIKey = testAPIKey
	_, err = NewClient(cfg, nil)
	assert.NoError(t, err)
}

func TestClientDrivesGuard(t *testing.T) {
	env := newTestEnv(t)
	nav := &recordingNavigator{location: "/collection"}
	g, err := sessionguard.New().
		WithProvider(env.client).
		WithNavigator(nav).
		WithLogger(logging.Discard()).
		Build()
	require.NoError(t, err)
	defer g.Close()

	assert.False(t, g.IsAuthenticated(context.Background()))

	_, err = env.client.SignInWithPassword(context.Background(), "ana@example.com", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "ana", g.CurrentUser(context.Background()).DisplayName())

	require.NoError(t, env.client.SignOut(context.Background()))
	assert.Equal(t, []string{"/landing"}, nav.redirects)
}

type recordingNavigator struct {
	location  string
	redirects []string
}

func (n *recordingNavigator) Location() string { return n.location }

func (n *recordingNavigator) Navigate(target string) {
	n.redirects = append(n.redirects, target)
}
