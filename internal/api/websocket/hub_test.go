package websocket

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

	"github.com/fortuna/roster/internal/roster"
)

func startServer(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	hub := NewHub(nil)
	go hub.Run(ctx)

	srv := httptest.NewServer(NewServer(hub, nil).Handler())
	t.Cleanup(srv.Close)
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHub_PublishReachesClients(t *testing.T) {
	hub, srv := startServer(t)
	first := dial(t, srv)
	second := dial(t, srv)

	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, time.Second, 10*time.Millisecond)

	event := roster.Event{Type: roster.EventPlayerTransferred, PlayerID: "p1", OccurredAt: time.Unix(0, 0).UTC()}
	require.NoError(t, hub.Publish(context.Background(), event))

	for _, conn := range []*websocket.Conn{first, second} {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)

		var got roster.Event
		require.NoError(t, json.Unmarshal(data, &got))
		assert.Equal(t, roster.EventPlayerTransferred, got.Type)
		assert.Equal(t, "p1", got.PlayerID)
	}
}

func TestHub_ClientDisconnectUnregisters(t *testing.T) {
	hub, srv := startServer(t)
	conn := dial(t, srv)

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)
	conn.Close()
	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_Name(t *testing.T) {
	assert.Equal(t, "websocket", NewHub(nil).Name())
}

func TestServer_Health(t *testing.T) {
	_, srv := startServer(t)

	resp, err := http.Get(srv.URL + "/ws/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status": "healthy", "clients": 0}`, string(body))
}
