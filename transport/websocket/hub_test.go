package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)
	return hub
}

func dial(t *testing.T, hub *Hub, sessionID string) *websocket.Conn {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, r.URL.Query().Get("session"))
	}))
	t.Cleanup(server.Close)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "?session=" + sessionID
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool { return hub.ClientCount(sessionID) > 0 }, 2*time.Second, 5*time.Millisecond)
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestHubRegisterClient(t *testing.T) {
	hub := NewHub(nil)

	client := &Client{
		hub:       hub,
		sessionID: "test-session",
		send:      make(chan []byte, 256),
	}
	hub.registerClient(client)

	if !hub.sessions["test-session"][client] {
		t.Error("Client was not registered in session")
	}

	hub.unregisterClient(client)
	if _, exists := hub.sessions["test-session"]; exists {
		t.Error("Empty session was not cleaned up")
	}
	if _, ok := <-client.send; ok {
		t.Error("Client send channel was not closed")
	}
}

func TestHubBroadcastMessageOnlyToSession(t *testing.T) {
	hub := NewHub(nil)
	a := &Client{hub: hub, sessionID: "a", send: make(chan []byte, 1)}
	b := &Client{hub: hub, sessionID: "b", send: make(chan []byte, 1)}
	hub.registerClient(a)
	hub.registerClient(b)

	hub.broadcastMessage(&Message{SessionID: "a", Event: "replay_step", Data: map[string]int{"step": 1}})

	select {
	case data := <-a.send:
		assert.JSONEq(t, `{"session_id":"a","event":"replay_step","data":{"step":1}}`, string(data))
	default:
		t.Fatal("client a received nothing")
	}
	assert.Empty(t, b.send)
}

func TestHubDropsSlowClient(t *testing.T) {
	hub := NewHub(nil)
	slow := &Client{hub: hub, sessionID: "s", send: make(chan []byte)}
	hub.registerClient(slow)

	hub.broadcastMessage(&Message{SessionID: "s", Event: "x"})
	assert.Empty(t, hub.sessions["s"])
}

func TestBroadcastEventNeverBlocks(t *testing.T) {
	hub := NewHub(nil) // Run is not started

	done := make(chan struct{})
	go func() {
		for i := 0; i < broadcastBuffer+10; i++ {
			hub.BroadcastEvent("s", "replay_step", i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("BroadcastEvent blocked")
	}
}

func TestWebSocketReceivesSessionEvents(t *testing.T) {
	hub := startHub(t)
	conn := dial(t, hub, "ab12")
	other := dial(t, hub, "cd34")

	hub.BroadcastEvent("ab12", "replay_done", map[string]bool{"cancelled": false})
	hub.BroadcastToSession("ab12", map[string]int{"filled": 64})

	msg := readMessage(t, conn)
	assert.Equal(t, "ab12", msg.SessionID)
	assert.Equal(t, "replay_done", msg.Event)

	msg = readMessage(t, conn)
	assert.Equal(t, EventBoardUpdate, msg.Event)
	assert.Equal(t, map[string]interface{}{"filled": float64(64)}, msg.Data)

	other.SetReadDeadline(time.Now().Add(50 * time.Millisecond))
	_, _, err := other.ReadMessage()
	assert.Error(t, err, "other session must not receive events")
}

func TestWebSocketDisconnectUnregisters(t *testing.T) {
	hub := startHub(t)
	conn := dial(t, hub, "gone")
	require.Equal(t, 1, hub.ClientCount("gone"))

	conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount("gone") == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestHubRunStopsOnCancel(t *testing.T) {
	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- hub.Run(ctx) }()

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
	assert.Equal(t, 0, hub.ClientCount("any"))
}
