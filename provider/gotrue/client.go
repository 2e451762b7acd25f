package gotrue

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/MrEthical07/sessionguard"
	"github.com/MrEthical07/sessionguard/internal/logging"
	"github.com/MrEthical07/sessionguard/session"
	"golang.org/x/sync/singleflight"
)

const (
	tokenPath  = "/auth/v1/token"
	logoutPath = "/auth/v1/logout"
	userPath   = "/auth/v1/user"

	maxResponseBytes = 1 << 20
)

// Client talks to one auth backend and owns one persisted session.
//
// Client is safe for concurrent use.
type Client struct {
	cfg     Config
	baseURL string
	http    *http.Client
	store   session.Store
	logger  *slog.Logger
	now     func() time.Time

	refreshGroup singleflight.Group
	listeners    *listenerRegistry
}

var _ sessionguard.Provider = (*Client)(nil)

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client. Its Timeout is left untouched.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logging.Child(l, "gotrue")
	}
}

// WithClock overrides the time source used for expiry decisions.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// NewClient validates cfg and returns a client persisting into store. A nil
// store keeps the session in memory.
func NewClient(cfg Config, store session.Store, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if store == nil {
		store = session.NewMemoryStore()
	}
	c := &Client{
		cfg:       cfg,
		baseURL:   strings.TrimRight(strings.TrimSpace(cfg.URL), "/"),
		http:      &http.Client{Timeout: cfg.HTTPTimeout},
		store:     store,
		logger:    logging.Child(nil, "gotrue"),
		now:       time.Now,
		listeners: newListenerRegistry(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// GetSession returns the persisted session, refreshing it first when it is
// within RefreshMargin of expiry. It returns (nil, nil) when signed out.
//
// A refresh rejected by the backend discards the session, emits SIGNED_OUT
// and returns the rejection. A failed refresh of a still-valid token is
// logged and the current session returned.
func (c *Client) GetSession(ctx context.Context) (*sessionguard.Session, error) {
	rec, err := c.store.Load(ctx, c.cfg.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if rec == nil {
		return nil, nil
	}

	now := c.now()
	if !c.cfg.AutoRefresh || !c.needsRefresh(rec, now) {
		if rec.Expired(now) {
			return nil, nil
		}
		return toSession(rec), nil
	}

	if rec.RefreshToken == "" {
		if rec.Expired(now) {
			return nil, c.discard(ctx)
		}
		return toSession(rec), nil
	}

	refreshed, err := c.refresh(ctx, rec.RefreshToken)
	if err == nil {
		return toSession(refreshed), nil
	}
	if IsTerminal(err) {
		c.logger.Warn("refresh token rejected, discarding session", logging.Error(err))
		if derr := c.discard(ctx); derr != nil {
			return nil, errors.Join(err, derr)
		}
		return nil, err
	}
	if !rec.Expired(now) {
		c.logger.Warn("early refresh failed, keeping current token",
			logging.Error(err),
			slog.Time("expires_at", rec.Expiry()),
		)
		return toSession(rec), nil
	}
	return nil, err
}

func (c *Client) needsRefresh(rec *session.Record, now time.Time) bool {
	exp := rec.Expiry()
	return !exp.IsZero() && !now.Add(c.cfg.RefreshMargin).Before(exp)
}

// refresh rotates the session once per refresh token, however many
// goroutines ask for it.
func (c *Client) refresh(ctx context.Context, refreshToken string) (*session.Record, error) {
	v, err, _ := c.refreshGroup.Do(refreshToken, func() (interface{}, error) {
		var tr tokenResponse
		body := map[string]string{"refresh_token": refreshToken}
		if err := c.do(ctx, http.MethodPost, tokenPath+"?grant_type=refresh_token", "", body, &tr); err != nil {
			return nil, err
		}
		rec := tr.record(c.now())
		if err := c.store.Save(ctx, c.cfg.StorageKey, rec); err != nil {
			return nil, fmt.Errorf("save session: %w", err)
		}
		c.logger.Info("session refreshed", slog.Time("expires_at", rec.Expiry()))
		c.listeners.emit(sessionguard.EventTokenRefreshed, toSession(rec))
		return rec, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*session.Record), nil
}

// SignInWithPassword exchanges credentials for a session, persists it and
// emits SIGNED_IN.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*sessionguard.Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, &APIError{Status: http.StatusBadRequest, Code: "validation_failed", Message: "email and password are required"}
	}

	var tr tokenResponse
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, tokenPath+"?grant_type=password", "", body, &tr); err != nil {
		return nil, err
	}
	rec := tr.record(c.now())
	if err := c.store.Save(ctx, c.cfg.StorageKey, rec); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	sess := toSession(rec)
	c.logger.Info("signed in", slog.String("user_id", rec.UserID))
	c.listeners.emit(sessionguard.EventSignedIn, sess)
	return sess, nil
}

// SignOut revokes the session on the backend when possible, removes the
// persisted copy and emits SIGNED_OUT. Backend failures are logged only.
func (c *Client) SignOut(ctx context.Context) error {
	rec, err := c.store.Load(ctx, c.cfg.StorageKey)
	if err != nil {
		c.logger.Warn("load session for sign out", logging.Error(err))
	}
	if rec != nil && rec.AccessToken != "" {
		if err := c.do(ctx, http.MethodPost, logoutPath, rec.AccessToken, nil, nil); err != nil {
			c.logger.Warn("backend logout failed", logging.Error(err))
		}
	}
	return c.discard(ctx)
}

func (c *Client) discard(ctx context.Context) error {
	if err := c.store.Delete(ctx, c.cfg.StorageKey); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	c.listeners.emit(sessionguard.EventSignedOut, nil)
	return nil
}

// User fetches the signed-in user from the backend.
func (c *Client) User(ctx context.Context) (*sessionguard.User, error) {
	rec, err := c.currentRecord(ctx)
	if err != nil {
		return nil, err
	}
	var u wireUser
	if err := c.do(ctx, http.MethodGet, userPath, rec.AccessToken, nil, &u); err != nil {
		return nil, err
	}
	return u.user(), nil
}

// UpdateUser merges metadata into the user's profile, persists the result
// and emits USER_UPDATED.
func (c *Client) UpdateUser(ctx context.Context, metadata map[string]string) (*sessionguard.User, error) {
	rec, err := c.currentRecord(ctx)
	if err != nil {
		return nil, err
	}
	var u wireUser
	body := map[string]any{"data": metadata}
	if err := c.do(ctx, http.MethodPut, userPath, rec.AccessToken, body, &u); err != nil {
		return nil, err
	}
	applyUser(rec, &u)
	if err := c.store.Save(ctx, c.cfg.StorageKey, rec); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	c.listeners.emit(sessionguard.EventUserUpdated, toSession(rec))
	return u.user(), nil
}

// OnAuthStateChange registers l for every later transition. Listeners run
// synchronously on the goroutine that caused the transition.
func (c *Client) OnAuthStateChange(l sessionguard.Listener) (sessionguard.Subscription, error) {
	if l == nil {
		return nil, errors.New("gotrue: nil listener")
	}
	return c.listeners.add(l), nil
}

func (c *Client) currentRecord(ctx context.Context) (*session.Record, error) {
	rec, err := c.store.Load(ctx, c.cfg.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if rec == nil || rec.AccessToken == "" {
		return nil, ErrNoSession
	}
	return rec, nil
}

// do sends one request. bearer defaults to the API key; out may be nil.
func (c *Client) do(ctx context.Context, method, path, bearer string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if bearer == "" {
		bearer = c.cfg.APIKey
	}
	req.Header.Set("apikey", c.cfg.APIKey)
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	op := method + " " + strings.SplitN(path, "?", 2)[0]
	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return transportError(op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return transportError(op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb errorBody
		_ = json.Unmarshal(raw, &eb)
		apiErr := eb.apiError(resp.StatusCode)
		if apiErr.Temporary() {
			return transportError(op, apiErr)
		}
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s response: %w", op, err)
	}
	return nil
}
