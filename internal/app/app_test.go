package app

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricingcli/internal/config"
	apierrors "pricingcli/internal/errors"
	"pricingcli/internal/infrastructure"
)

// testConfig keeps every path inside a temp dir and turns exporters off
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Server.Port = 0
	cfg.Paths.Root = t.TempDir()
	cfg.Logging.Level = "error"
	cfg.Telemetry.Enabled = false
	cfg.Telemetry.MetricExporter = "none"
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config) *Application {
	t.Helper()
	app, err := New(cfg, infrastructure.NewLogger(io.Discard, "error"))
	require.NoError(t, err)
	return app
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestNew(t *testing.T) {
	app := newTestApp(t, testConfig(t))

	assert.NotNil(t, app.Router)
	assert.NotNil(t, app.Server)
	assert.NotNil(t, app.WebSocketHub)
	assert.NotNil(t, app.Calculation)
	assert.NotNil(t, app.Metrics)
	assert.Equal(t, ":0", app.Server.Addr)
	assert.DirExists(t, app.Paths.OutputDir)
	assert.DirExists(t, app.Paths.LogsDir)
}

func TestRouter(t *testing.T) {
	app := newTestApp(t, testConfig(t))

	tests := []struct {
		name        string
		method      string
		path        string
		wantStatus  int
		wantProblem string
	}{
		{"health", http.MethodGet, "/api/health", http.StatusOK, ""},
		{"grid without results", http.MethodGet, "/api/grid", http.StatusNotFound, apierrors.TypeNoResults},
		{"calculation status", http.MethodGet, "/api/calculation", http.StatusOK, ""},
		{"unknown route", http.MethodGet, "/nope", http.StatusNotFound, apierrors.TypeNotFound},
		{"unknown api route", http.MethodGet, "/api/nope", http.StatusNotFound, apierrors.TypeNotFound},
		{"method not allowed", http.MethodDelete, "/api/grid", http.StatusMethodNotAllowed, apierrors.TypeBadRequest},
		{"metrics", http.MethodGet, "/metrics", http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			app.Router.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
			if tt.wantProblem != "" {
				assert.Equal(t, tt.wantProblem, decode(t, rec)["type"])
			}
		})
	}
}

func TestHealthReportsIdle(t *testing.T) {
	app := newTestApp(t, testConfig(t))

	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	body := decode(t, rec)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "idle", body["calculation"])
	assert.Equal(t, config.AppVersion, body["version"])
	assert.Contains(t, body["websocket"], "active_clients")
}

func TestCalculationRateLimited(t *testing.T) {
	cfg := testConfig(t)
	cfg.RateLimit.RPS = 0.5
	cfg.RateLimit.Burst = 1
	app := newTestApp(t, cfg)

	post := func() *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/calculation", strings.NewReader(`{"mode":"reload"}`))
		app.Router.ServeHTTP(rec, req)
		return rec
	}

	// Reload with no exported tables is a 404, but it still spends the token
	first := post()
	assert.Equal(t, http.StatusNotFound, first.Code)

	second := post()
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "2", second.Header().Get("Retry-After"))

	// Reads are never throttled
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/calculation", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWebSocketEndpoint(t *testing.T) {
	app := newTestApp(t, testConfig(t))
	app.WebSocketHub.Start()
	defer app.WebSocketHub.Stop()

	srv := httptest.NewServer(app.Router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + config.WebSocketEndpoint
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"connection"`)

	require.Eventually(t, func() bool {
		return app.WebSocketHub.ClientCount() == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestStartStop(t *testing.T) {
	app := newTestApp(t, testConfig(t))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, app.Start(ctx, cancel))
	require.NoError(t, app.Stop(context.Background()))
	assert.NoError(t, ctx.Err())
}
