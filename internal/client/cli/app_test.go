package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/gophpantry/internal/client/config"
	"github.com/dmitrijs2005/gophpantry/internal/client/fallback"
	"github.com/dmitrijs2005/gophpantry/internal/logging"
)

// syncBuffer guards the output shared by the REPL and the notifier.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

func testConfig(baseURL, profile string) *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.BaseURL = baseURL
	cfg.Profile = profile
	cfg.DBPath = ""
	cfg.RequestTimeout = 2 * time.Second
	return cfg
}

func pipedInput(t *testing.T) {
	t.Helper()
	capturePrint(t)
	stubTerminal(t, false, nil)
}

func newTestApp(t *testing.T, cfg *config.Config, input string) (*App, *syncBuffer) {
	t.Helper()
	out := &syncBuffer{}
	app, err := NewApp(context.Background(), cfg, logging.Discard(), strings.NewReader(input), out)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	return app, out
}

func kitchenBackend(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/login/" {
			_ = r.ParseForm()
			if r.PostForm.Get("username") != "chef" || r.PostForm.Get("password") != "secret" {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = io.WriteString(w, `{"detail":"Incorrect username or password"}`)
				return
			}
			_, _ = io.WriteString(w, `{"access_token":"tok","token_type":"bearer"}`)
			return
		}
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"detail":"Not authenticated"}`)
			return
		}
		switch r.URL.Path {
		case "/users/me/":
			_, _ = io.WriteString(w, `{"id": 7, "username": "chef", "role": "CHEF"}`)
		case "/ingredients/":
			_, _ = io.WriteString(w, `[{"id":1,"name":"Carrot","quantity":5,"delivery_date":"2025-05-01","minimum_quantity":10}]`)
		case "/meals/":
			_, _ = io.WriteString(w, `[{"id":1,"name":"Soup","ingredients":[{"id":1,"ingredient_id":1,"quantity":2,"ingredient":{"id":1,"name":"Carrot"}}]}]`)
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestApp_LoginThenPages(t *testing.T) {
	pipedInput(t)
	srv := kitchenBackend(t)
	defer srv.Close()

	app, out := newTestApp(t, testConfig(srv.URL, fallback.ProfileKindergarten),
		"chef\nsecret\ningredients\nmeals\nwhoami\nexit\n")
	app.Run(context.Background())

	got := out.String()
	assert.Contains(t, got, "Success!")
	assert.Contains(t, got, "Carrot")
	assert.Contains(t, got, "LOW")
	assert.Contains(t, got, "Soup")
	assert.Contains(t, got, "Carrot x2")
	assert.Contains(t, got, "User: chef")
	assert.Contains(t, got, "Role: CHEF")
	assert.Equal(t, ModeOnline, app.Mode)
}

func TestApp_WrongPasswordStaysSignedOut(t *testing.T) {
	pipedInput(t)
	srv := kitchenBackend(t)
	defer srv.Close()

	app, out := newTestApp(t, testConfig(srv.URL, fallback.ProfileKindergarten),
		"chef\nwrong\ningredients\nexit\n")
	app.Run(context.Background())

	got := out.String()
	assert.Contains(t, got, "Incorrect username or password")
	assert.NotContains(t, got, "Carrot")
	assert.Equal(t, ModeSignedOut, app.Mode)
}

func TestApp_OfflineLoginServesSampleData(t *testing.T) {
	pipedInput(t)
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	cfg := testConfig(url, fallback.ProfileKindergarten)
	cfg.OfflineLogin = true
	app, out := newTestApp(t, cfg, "manager1\nanything\ningredients\nwhoami\nexit\n")
	app.Run(context.Background())

	got := out.String()
	assert.Contains(t, got, "Signed in offline as manager1")
	assert.Contains(t, got, "Guruch")
	assert.Contains(t, got, "Role: MANAGER")
	assert.Equal(t, ModePlaceholder, app.Mode)
}

func TestApp_SessionSurvivesRestart(t *testing.T) {
	pipedInput(t)
	srv := kitchenBackend(t)
	defer srv.Close()

	cfg := testConfig(srv.URL, fallback.ProfileKindergarten)
	cfg.DBPath = filepath.Join(t.TempDir(), "pantry.db")

	first, out := newTestApp(t, cfg, "chef\nsecret\nexit\n")
	first.Run(context.Background())
	require.Contains(t, out.String(), "Success!")

	second, out := newTestApp(t, cfg, "whoami\nlogout\nexit\n")
	second.Run(context.Background())
	assert.Contains(t, out.String(), "Session restored.")
	assert.Contains(t, out.String(), "User: chef")
	assert.Contains(t, out.String(), "Logged out.")

	third, out := newTestApp(t, cfg, "\n\nexit\n")
	third.Run(context.Background())
	assert.NotContains(t, out.String(), "Session restored.")
	assert.Equal(t, ModeSignedOut, third.Mode)
}

func TestApp_ExpensesWithoutLogin(t *testing.T) {
	pipedInput(t)

	var mu sync.Mutex
	var created []map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/expenses/":
			var body map[string]any
			_ = json.NewDecoder(r.Body).Decode(&body)
			mu.Lock()
			created = append(created, body)
			mu.Unlock()
			w.WriteHeader(http.StatusCreated)
			_, _ = io.WriteString(w, `{"id":"e1","title":"Coffee beans","amount":12.5,"category":"Food","created_at":"2026-10-03T10:00:00Z"}`)
		case r.Method == http.MethodGet && r.URL.Path == "/expenses/":
			_, _ = io.WriteString(w, `[
				{"id":"e1","title":"Coffee beans","amount":12.5,"category":"Food","created_at":"2026-10-03T10:00:00Z"},
				{"id":"e2","title":"Bus","amount":2,"category":null,"created_at":"2026-10-04T10:00:00Z"},
				{"id":"e3","title":"Old","amount":99,"category":"Food","created_at":"2026-09-04T10:00:00Z"}]`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	app, out := newTestApp(t, testConfig(srv.URL, fallback.ProfileExpenses),
		"spend 12.5 Coffee beans\nsummary 2026 10\nspend abc\nexit\n")
	app.Run(context.Background())

	got := out.String()
	assert.Contains(t, got, "Recorded 12.50 Coffee beans (e1).")
	assert.Contains(t, got, "October 2026: 2 expense(s), total 14.50")
	assert.Contains(t, got, "Other")
	assert.Contains(t, got, "Usage: spend <amount> <title...>")

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, created, 1)
	assert.Equal(t, "Coffee beans", created[0]["title"])
	assert.Equal(t, "UZS", created[0]["currency"])
}

func TestApp_RawRequests(t *testing.T) {
	pipedInput(t)

	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			gotQuery = r.URL.RawQuery
			_, _ = io.WriteString(w, `{"ok":true}`)
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	app, out := newTestApp(t, testConfig(srv.URL, fallback.ProfileExpenses),
		"get expenses/?category=Food\npost /expenses/ {not json\ndelete /expenses/e1\nexit\n")
	app.Run(context.Background())

	got := out.String()
	assert.Equal(t, "category=Food", gotQuery)
	assert.Contains(t, got, "\"ok\": true")
	assert.Contains(t, got, "Body is not valid JSON.")
	assert.Contains(t, got, "204")
}

func TestParseTargetAndCollection(t *testing.T) {
	req, err := parseTarget(http.MethodGet, "meals/3/?x=1")
	require.NoError(t, err)
	assert.Equal(t, "/meals/3/", req.Endpoint)
	assert.Equal(t, "1", req.Query.Get("x"))

	_, err = parseTarget(http.MethodGet, "http://evil.example/meals/")
	require.Error(t, err)

	assert.Equal(t, "/meals/", collection("/meals/3/"))
	assert.Equal(t, "/expenses/", collection("/expenses"))
	assert.Equal(t, "/", collection("/"))
}

func TestPlaceholderRole(t *testing.T) {
	kg := placeholderRole(fallback.ProfileKindergarten)
	assert.Equal(t, "ADMIN", kg("SuperAdmin"))
	assert.Equal(t, "MANAGER", kg("manager1"))
	assert.Equal(t, "CHEF", kg("aziza"))

	sp := placeholderRole(fallback.ProfileSurplus)
	assert.Equal(t, "store", sp("corner-store"))
	assert.Equal(t, "customer", sp("bob"))
}

func TestSetMode_ChangesOnlyOnDifference(t *testing.T) {
	var buf bytes.Buffer
	app := &App{log: logging.New(&buf, "info"), Mode: ModeSignedOut}

	app.setMode(ModeOnline)
	assert.Equal(t, ModeOnline, app.Mode)
	assert.Contains(t, buf.String(), "mode=online")

	buf.Reset()
	app.setMode(ModeOnline)
	assert.Empty(t, buf.String())

	app.setMode(ModeFallback)
	assert.Equal(t, ModeFallback, app.Mode)
	assert.Contains(t, buf.String(), "mode=fallback")
}

func TestLineReader_OneLinePerRead(t *testing.T) {
	lr := &lineReader{r: rdr("first\nsecond")}
	p := make([]byte, 64)

	n, err := lr.Read(p)
	require.NoError(t, err)
	assert.Equal(t, "first\n", string(p[:n]))

	n, err = lr.Read(p)
	require.NoError(t, err)
	assert.Equal(t, "second", string(p[:n]))

	_, err = lr.Read(p)
	assert.ErrorIs(t, err, io.EOF)
}
