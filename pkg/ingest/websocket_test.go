package ingest

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/homewx/homewx/pkg/storage/memory"
)

func dialHub(t *testing.T, hub *ReadingsHub) (*websocket.Conn, func()) {
	t.Helper()

	h := newTestHandler(memory.New())
	srv := httptest.NewServer(h.HandleWebSocket(hub))

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	return conn, func() {
		conn.Close()
		srv.Close()
	}
}

func waitForClients(hub *ReadingsHub, want bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for hub.HasClients() != want {
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(10 * time.Millisecond)
	}
	return true
}

func TestReadingsHub_BroadcastReachesClient(t *testing.T) {
	hub := NewReadingsHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	conn, cleanup := dialHub(t, hub)
	defer cleanup()

	require.True(t, waitForClients(hub, true), "client never registered")

	require.NoError(t, hub.Broadcast(map[string]any{"type": "readings", "ts": 1700000000}))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Contains(t, string(msg), `"type":"readings"`)
}

func TestReadingsHub_DeadClientsArePruned(t *testing.T) {
	hub := NewReadingsHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	conn, cleanup := dialHub(t, hub)
	defer cleanup()

	require.True(t, waitForClients(hub, true), "client never registered")
	conn.Close()

	// Broadcasting into the closed connection must drop the client rather
	// than wedge the hub loop.
	deadline := time.Now().Add(2 * time.Second)
	for hub.HasClients() && time.Now().Before(deadline) {
		require.NoError(t, hub.Broadcast(map[string]any{"type": "readings"}))
		time.Sleep(20 * time.Millisecond)
	}
	require.False(t, hub.HasClients())

	// The hub is still responsive for new clients.
	conn2, cleanup2 := dialHub(t, hub)
	defer cleanup2()
	_ = conn2
	require.True(t, waitForClients(hub, true), "hub stopped accepting clients")
}

func TestReadingsHub_BroadcastWithoutClientsDoesNotBlock(t *testing.T) {
	hub := NewReadingsHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	// More messages than the broadcast buffer holds; extras are dropped.
	for i := 0; i < wsBroadcastBuffer+10; i++ {
		require.NoError(t, hub.Broadcast(map[string]any{"seq": i}))
	}
	require.False(t, hub.HasClients())
}
