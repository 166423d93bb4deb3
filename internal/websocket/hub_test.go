package websocket

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricingcli/internal/config"
	"pricingcli/internal/infrastructure"
)

func messageTypes(frames [][]byte) []string {
	var types []string
	for _, f := range frames {
		var msg map[string]interface{}
		if err := json.Unmarshal(f, &msg); err == nil {
			if s, ok := msg["type"].(string); ok {
				types = append(types, s)
			}
		}
	}
	return types
}

func TestHubBroadcast(t *testing.T) {
	hub := NewHub(nil)
	hub.Start()
	defer hub.Stop()

	conn := newMockConnection()
	client := NewClientWithConnection(hub, conn, "trace-1", nil)
	client.Serve()

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	hub.Broadcast(TypeCalculationComplete, map[string]int{"items": 3})

	require.Eventually(t, func() bool { return len(conn.messages()) == 2 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{TypeConnection, TypeCalculationComplete}, messageTypes(conn.messages()))

	metrics := hub.GetHubMetrics()
	assert.Equal(t, int64(1), metrics["total_connections"])
}

func TestClientDisconnectUnregisters(t *testing.T) {
	hub := NewHub(nil)
	hub.Start()
	defer hub.Stop()

	conn := newMockConnection()
	NewClientWithConnection(hub, conn, "", nil).Serve()
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	_ = conn.Close()
	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 10*time.Millisecond)
}

func TestBroadcastAfterStopDoesNotBlock(t *testing.T) {
	hub := NewHub(nil)
	hub.Start()
	hub.Stop()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			hub.Broadcast(TypeCalculationStarted, nil)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Broadcast blocked on a stopped hub")
	}
}

func TestBroadcastWithTrace(t *testing.T) {
	hub := NewHub(nil)
	hub.Start()
	defer hub.Stop()

	conn := newMockConnection()
	NewClientWithConnection(hub, conn, "", nil).Serve()
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	ctx := infrastructure.WithTraceID(t.Context(), "abc")
	hub.BroadcastWithTrace(ctx, TypeCalculationFailed, map[string]string{"error": "boom"})

	require.Eventually(t, func() bool { return len(conn.messages()) == 2 }, time.Second, 10*time.Millisecond)
	var msg map[string]interface{}
	require.NoError(t, json.Unmarshal(conn.messages()[1], &msg))
	assert.Equal(t, "abc", msg["trace_id"])
}

func TestHandlerUpgrade(t *testing.T) {
	hub := NewHub(nil)
	hub.Start()
	defer hub.Stop()

	srv := httptest.NewServer(Handler(hub, config.WebSocketConfig{}, nil))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"connection"`)
}

func TestHandlerRejectsOrigin(t *testing.T) {
	hub := NewHub(nil)
	hub.Start()
	defer hub.Stop()

	srv := httptest.NewServer(Handler(hub, config.WebSocketConfig{AllowedOrigins: []string{"http://allowed.example"}}, nil))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	header := map[string][]string{"Origin": {"http://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 403, resp.StatusCode)
}
