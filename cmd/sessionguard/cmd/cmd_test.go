package cmd

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/MrEthical07/sessionguard/metrics/export/otel"
	"github.com/MrEthical07/sessionguard/metrics/export/prometheus"
	"github.com/MrEthical07/sessionguard/phrases"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const testKey = "anon-key"

func fakeAuthServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/v1/token", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if r.Header.Get("apikey") != testKey || body["password"] != "hunter2" {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":             "invalid_grant",
				"error_description": "Invalid login credentials",
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token":  "access-1",
			"token_type":    "bearer",
			"expires_in":    3600,
			"refresh_token": "refresh-1",
			"user": map[string]any{
				"id":            "user-1",
				"email":         "ana@example.com",
				"user_metadata": map[string]any{"username": "ana"},
			},
		})
	})
	mux.HandleFunc("POST /auth/v1/logout", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("SESSIONGUARD_EMAIL", "")
	t.Setenv("SESSIONGUARD_PASSWORD", "")
	var out, errOut bytes.Buffer
	root := newRootCmd(&out, &errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func baseArgs(srv *httptest.Server, store, dataDir string) []string {
	return []string{"--url", srv.URL, "--key", testKey, "--store", store, "--data-dir", dataDir, "--max-retries", "0"}
}

func TestEnvOr(t *testing.T) {
	t.Setenv("SESSIONGUARD_TEST_ENV", "  ")
	assert.Equal(t, "fallback", envOr("SESSIONGUARD_TEST_ENV", "fallback"))

	t.Setenv("SESSIONGUARD_TEST_ENV", "set")
	assert.Equal(t, "set", envOr("SESSIONGUARD_TEST_ENV", "fallback"))
}

func TestNewLoggerRejectsUnknownLevel(t *testing.T) {
	_, err := newLogger(&bytes.Buffer{}, "loud")
	require.Error(t, err)

	l, err := newLogger(&bytes.Buffer{}, "debug")
	require.NoError(t, err)
	assert.NotNil(t, l)
}

func TestTerminalNavigator(t *testing.T) {
	var out bytes.Buffer
	nav := newTerminalNavigator(&out, "")
	assert.Equal(t, "/", nav.Location())

	nav.Navigate("/landing")
	assert.Equal(t, "/landing", nav.Location())
	assert.Equal(t, "redirect: / -> /landing\n", out.String())
}

func TestTerminalPresenterSkipsRepeatedName(t *testing.T) {
	var out bytes.Buffer
	p := newTerminalPresenter(&out)
	p.SetUserName("ana")
	p.SetUserName("ana")
	p.Toast("saved", "success")

	assert.Equal(t, "ana", p.UserName())
	assert.Equal(t, "user: ana\n[success] saved\n", out.String())
}

func TestLoaderDisplayMarksErrors(t *testing.T) {
	var out bytes.Buffer
	d := &loaderDisplay{out: &out}
	d.SetStatus("Working")
	d.SetStatus("Working")
	d.SetError(true)
	d.SetStatus("Generation failed")

	assert.Equal(t, "  Working\n  error: Generation failed\n", out.String())
}

func TestUnknownStore(t *testing.T) {
	srv := fakeAuthServer(t)
	_, err := runCLI(t, "", append(baseArgs(srv, "floppy", t.TempDir()), "status")...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown --store")
}

func TestMissingURL(t *testing.T) {
	t.Setenv("SUPABASE_URL", "")
	_, err := runCLI(t, "", "--store", "memory", "--key", testKey, "status")
	require.Error(t, err)
}

func TestStatusAnonymousJSON(t *testing.T) {
	srv := fakeAuthServer(t)
	out, err := runCLI(t, "", append(baseArgs(srv, "memory", t.TempDir()), "status", "--json")...)
	require.NoError(t, err)

	var report statusReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.False(t, report.Authenticated)
	assert.Equal(t, "My Profile", report.DisplayName)
}

func TestLoginStatusLogoutWithBolt(t *testing.T) {
	srv := fakeAuthServer(t)
	dir := t.TempDir()
	args := baseArgs(srv, "bolt", dir)

	out, err := runCLI(t, "hunter2\n", append(args, "login", "--email", "ana@example.com")...)
	require.NoError(t, err)
	assert.Contains(t, out, "password: ")
	assert.Contains(t, out, "signed in as ana")

	out, err = runCLI(t, "", append(args, "status", "--json")...)
	require.NoError(t, err)
	var report statusReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.True(t, report.Authenticated)
	assert.Equal(t, "user-1", report.UserID)
	assert.Equal(t, "ana@example.com", report.Email)
	assert.Equal(t, "ana", report.DisplayName)

	out, err = runCLI(t, "", append(args, "login", "--email", "ana@example.com", "--password", "hunter2")...)
	require.NoError(t, err)
	assert.Contains(t, out, "already signed in as ana")

	out, err = runCLI(t, "", append(args, "logout")...)
	require.NoError(t, err)
	assert.Contains(t, out, "signed out")

	out, err = runCLI(t, "", append(args, "status")...)
	require.NoError(t, err)
	assert.Contains(t, out, "anonymous")
}

func TestLoginWrongPassword(t *testing.T) {
	srv := fakeAuthServer(t)
	out, err := runCLI(t, "", append(baseArgs(srv, "memory", t.TempDir()), "login", "--email", "ana@example.com", "--password", "nope")...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sign in")
	assert.Contains(t, out, "error:")
}

func TestLoginRequiresEmail(t *testing.T) {
	srv := fakeAuthServer(t)
	_, err := runCLI(t, "", append(baseArgs(srv, "memory", t.TempDir()), "login")...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--email")
}

func TestRouterEndpoints(t *testing.T) {
	srv := fakeAuthServer(t)
	opts := &globalOptions{
		url:      srv.URL,
		apiKey:   testKey,
		store:    "memory",
		location: "/app",
		logLevel: "error",
	}
	var out bytes.Buffer
	rt, err := openRuntime(opts, &out, &bytes.Buffer{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	exp, err := otel.NewExporter(provider.Meter("test"), rt.guard)
	require.NoError(t, err)
	t.Cleanup(func() { _ = exp.Close() })

	h := newRouter(rt, prometheus.NewExporter(rt.guard), reader)

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	rec := get("/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = get("/session")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Status   statusReport `json:"status"`
		Location string       `json:"location"`
		Check    struct {
			InProgress bool `json:"in_progress"`
		} `json:"check"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Status.Authenticated)
	assert.Equal(t, "/app", body.Location)
	assert.False(t, body.Check.InProgress)

	rec = get("/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "sessionguard_check_requested_total 1")

	rec = get("/metrics/otel")
	require.Equal(t, http.StatusOK, rec.Code)
	var points []otelPoint
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &points))
	found := false
	for _, p := range points {
		if p.Name == "sessionguard_check_anonymous_total" {
			found = true
			assert.Equal(t, int64(1), p.Value)
		}
	}
	assert.True(t, found, "expected anonymous counter in %v", points)

	rec = get("/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLoaderDisplayDetachDropsWrites(t *testing.T) {
	var out bytes.Buffer
	d := &loaderDisplay{out: &out}
	d.detach()
	d.SetStatus("late")
	assert.Empty(t, out.String())
}

type fakeAppServer struct {
	mu       sync.Mutex
	auth     []string
	favorite bool
	deleted  []string
}

func (a *fakeAppServer) start(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	record := func(r *http.Request) {
		a.mu.Lock()
		a.auth = append(a.auth, r.Header.Get("Authorization"))
		a.mu.Unlock()
	}
	mux.HandleFunc("POST /favorite/{id}", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		a.mu.Lock()
		a.favorite = !a.favorite
		fav := a.favorite
		a.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "is_favorite": fav})
	})
	mux.HandleFunc("POST /delete/{id}", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		a.mu.Lock()
		a.deleted = append(a.deleted, r.PathValue("id"))
		a.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	})
	mux.HandleFunc("GET /api/phrase/{id}", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		writeJSON(w, http.StatusOK, map[string]any{"id": r.PathValue("id"), "generated_phrase": "the sea keeps time"})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestPhraseCommandsUseSignedInSession(t *testing.T) {
	auth := fakeAuthServer(t)
	app := &fakeAppServer{}
	appSrv := app.start(t)
	args := append(baseArgs(auth, "bolt", t.TempDir()), "--app-url", appSrv.URL)

	_, err := runCLI(t, "", append(args, "login", "--email", "ana@example.com", "--password", "hunter2")...)
	require.NoError(t, err)

	out, err := runCLI(t, "", append(args, "favorite", "p1")...)
	require.NoError(t, err)
	assert.Contains(t, out, "[success] Phrase added to favourites")

	out, err = runCLI(t, "", append(args, "favorite", "p1")...)
	require.NoError(t, err)
	assert.Contains(t, out, "[success] Phrase removed from favourites")

	out, err = runCLI(t, "", append(args, "delete", "p1")...)
	require.NoError(t, err)
	assert.Contains(t, out, "[success] Phrase deleted")

	out, err = runCLI(t, "", append(args, "share", "p2")...)
	require.NoError(t, err)
	assert.Contains(t, out, "\x1b]52;c;"+base64.StdEncoding.EncodeToString([]byte("the sea keeps time")))
	assert.Contains(t, out, "[success] Phrase copied to clipboard")

	app.mu.Lock()
	defer app.mu.Unlock()
	assert.Equal(t, []string{"p1"}, app.deleted)
	for _, h := range app.auth {
		assert.Equal(t, "Bearer access-1", h)
	}
}

func TestPhraseCommandsRequireAppURL(t *testing.T) {
	t.Setenv("SESSIONGUARD_APP_URL", "")
	auth := fakeAuthServer(t)
	_, err := runCLI(t, "", append(baseArgs(auth, "memory", t.TempDir()), "favorite", "p1")...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--app-url")
}

func TestCountCommand(t *testing.T) {
	out, err := runCLI(t, "", "count", "estoy", "bien")
	require.NoError(t, err)
	assert.Equal(t, "10 characters (normal)\n", out)

	_, err = runCLI(t, "", "count", "   ")
	assert.ErrorIs(t, err, phrases.ErrEmptyEmotion)
}
