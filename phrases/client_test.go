package phrases

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/MrEthical07/sessionguard"
	"github.com/MrEthical07/sessionguard/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type toast struct {
	message string
	kind    sessionguard.ToastKind
}

type recordingToaster struct {
	mu     sync.Mutex
	toasts []toast
}

func (r *recordingToaster) Toast(message string, kind sessionguard.ToastKind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.toasts = append(r.toasts, toast{message, kind})
}

func (r *recordingToaster) Last() toast {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.toasts) == 0 {
		return toast{}
	}
	return r.toasts[len(r.toasts)-1]
}

type staticSessions struct {
	sess *sessionguard.Session
	err  error
}

func (s staticSessions) CheckSession(context.Context) (*sessionguard.Session, error) {
	return s.sess, s.err
}

type appServer struct {
	mu        sync.Mutex
	favorites map[string]bool
	lastAuth  string
}

func (a *appServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /favorite/{id}", func(w http.ResponseWriter, r *http.Request) {
		a.mu.Lock()
		defer a.mu.Unlock()
		a.lastAuth = r.Header.Get("Authorization")
		id := r.PathValue("id")
		if id == "404" {
			_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "error": "not authorised"})
			return
		}
		a.favorites[id] = !a.favorites[id]
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "is_favorite": a.favorites[id]})
	})
	mux.HandleFunc("POST /delete/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") == "7" {
			http.Redirect(w, r, "/collection", http.StatusFound)
			return
		}
		w.WriteHeader(http.StatusForbidden)
	})
	mux.HandleFunc("GET /collection", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("GET /api/phrase/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "7" {
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "phrase not found"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":               "7",
			"user_id":          "user-1",
			"original_emotion": "calm",
			"style":            "poetica_minimalista",
			"generated_phrase": "still water, open sky",
			"language":         "en",
			"is_favorite":      true,
		})
	})
	return mux
}

func newTestClient(t *testing.T, sessions SessionSource) (*Client, *appServer, *recordingToaster) {
	t.Helper()
	app := &appServer{favorites: map[string]bool{}}
	srv := httptest.NewServer(app.handler())
	t.Cleanup(srv.Close)
	toaster := &recordingToaster{}
	c, err := NewClient(srv.URL, srv.Client(), sessions, toaster, logging.Discard())
	require.NoError(t, err)
	return c, app, toaster
}

func TestToggleFavorite(t *testing.T) {
	sessions := staticSessions{sess: &sessionguard.Session{AccessToken: "tok"}}
	c, app, toaster := newTestClient(t, sessions)

	on, err := c.ToggleFavorite(context.Background(), "1")
	require.NoError(t, err)
	assert.True(t, on)
	assert.Equal(t, toast{msgFavoriteAdded, sessionguard.ToastSuccess}, toaster.Last())
	assert.Equal(t, "Bearer tok", app.lastAuth)

	on, err = c.ToggleFavorite(context.Background(), "1")
	require.NoError(t, err)
	assert.False(t, on)
	assert.Equal(t, toast{msgFavoriteRemoved, sessionguard.ToastSuccess}, toaster.Last())
}

func TestToggleFavoriteRejected(t *testing.T) {
	c, _, toaster := newTestClient(t, nil)

	_, err := c.ToggleFavorite(context.Background(), "404")
	assert.ErrorIs(t, err, ErrRejected)
	assert.Contains(t, err.Error(), "not authorised")
	assert.Equal(t, toast{msgFavoriteFailed, sessionguard.ToastError}, toaster.Last())
}

func TestToggleFavoriteSessionError(t *testing.T) {
	c, _, toaster := newTestClient(t, staticSessions{err: errors.New("network down")})

	_, err := c.ToggleFavorite(context.Background(), "1")
	require.Error(t, err)
	assert.Equal(t, sessionguard.ToastError, toaster.Last().kind)
}

func TestDelete(t *testing.T) {
	c, _, toaster := newTestClient(t, nil)

	require.NoError(t, c.Delete(context.Background(), "7"))
	assert.Equal(t, toast{msgDeleted, sessionguard.ToastSuccess}, toaster.Last())

	err := c.Delete(context.Background(), "8")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
	assert.Equal(t, toast{msgDeleteFailed, sessionguard.ToastError}, toaster.Last())
}

func TestGet(t *testing.T) {
	c, _, _ := newTestClient(t, nil)

	p, err := c.Get(context.Background(), "7")
	require.NoError(t, err)
	assert.Equal(t, "still water, open sky", p.GeneratedPhrase)
	assert.True(t, p.IsFavorite)

	_, err = c.Get(context.Background(), "9")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "phrase not found")
}

func TestNewClientRejectsBadURL(t *testing.T) {
	_, err := NewClient("not a url", nil, nil, nil, nil)
	assert.Error(t, err)
}
