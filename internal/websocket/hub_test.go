package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	gorilla "github.com/gorilla/websocket"
	"github.com/ikkim/taxfiling-backend/internal/app/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) (*Hub, *httptest.Server) {
	hub := NewHub()
	go hub.Run()
	t.Cleanup(hub.Stop)

	upgrader := NewUpgrader(nil)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		workspaceID, _ := strconv.ParseUint(r.URL.Query().Get("workspace"), 10, 32)
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		Serve(hub, conn, uint(workspaceID), 1)
	}))
	t.Cleanup(server.Close)
	return hub, server
}

func dial(t *testing.T, server *httptest.Server, workspaceID uint) *gorilla.Conn {
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/?workspace=" + strconv.Itoa(int(workspaceID))
	conn, _, err := gorilla.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHub_PublishReachesWorkspaceOnly(t *testing.T) {
	hub, server := startHub(t)
	mine := dial(t, server, 7)
	other := dial(t, server, 8)

	require.Eventually(t, func() bool {
		return hub.SessionCount(7) == 1 && hub.SessionCount(8) == 1
	}, time.Second, 10*time.Millisecond)

	hub.Publish(model.ReportEvent{
		Type:        model.ReportEventStatusChanged,
		WorkspaceID: 7,
		ReportID:    3,
		ReportType:  model.ReportTypeVATAdvance,
		Status:      model.ReportStatusSubmitted,
	})

	mine.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := mine.ReadMessage()
	require.NoError(t, err)

	var event model.ReportEvent
	require.NoError(t, json.Unmarshal(data, &event))
	assert.Equal(t, model.ReportEventStatusChanged, event.Type)
	assert.Equal(t, uint(3), event.ReportID)

	other.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err = other.ReadMessage()
	assert.Error(t, err)
}

func TestHub_PingPong(t *testing.T) {
	hub, server := startHub(t)
	conn := dial(t, server, 7)
	require.Eventually(t, func() bool { return hub.SessionCount(7) == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteMessage(gorilla.TextMessage, []byte(`{"type":"ping"}`)))
	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"pong"}`, string(data))
}

func TestHub_UnregisterOnClose(t *testing.T) {
	hub, server := startHub(t)
	conn := dial(t, server, 7)
	require.Eventually(t, func() bool { return hub.SessionCount(7) == 1 }, time.Second, 10*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.SessionCount(7) == 0 }, time.Second, 10*time.Millisecond)
}

func TestNewUpgrader_CheckOrigin(t *testing.T) {
	upgrader := NewUpgrader([]string{"https://app.example"})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://app.example")
	assert.True(t, upgrader.CheckOrigin(req))

	req.Header.Set("Origin", "https://evil.example")
	assert.False(t, upgrader.CheckOrigin(req))
}

func TestHub_PingAfterUnregister(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	t.Cleanup(hub.Stop)

	client := &Client{Hub: hub, WorkspaceID: 9, UserID: 1, Send: make(chan []byte, 1)}
	hub.Register(client)
	require.Eventually(t, func() bool { return hub.SessionCount(9) == 1 }, time.Second, 10*time.Millisecond)

	hub.Unregister(client)
	require.Eventually(t, func() bool { return hub.SessionCount(9) == 0 }, time.Second, 10*time.Millisecond)

	assert.NotPanics(t, func() {
		hub.HandleClientMessage(client, []byte(`{"type":"ping"}`))
	})
	_, ok := <-client.Send
	assert.False(t, ok, "send channel stays closed")
}

func TestHub_PingAfterStop(t *testing.T) {
	hub := NewHub()
	done := make(chan struct{})
	go func() {
		hub.Run()
		close(done)
	}()

	client := &Client{Hub: hub, WorkspaceID: 9, UserID: 1, Send: make(chan []byte, 1)}
	hub.Register(client)
	require.Eventually(t, func() bool { return hub.SessionCount(9) == 1 }, time.Second, 10*time.Millisecond)

	hub.Stop()
	<-done

	assert.NotPanics(t, func() {
		hub.HandleClientMessage(client, []byte(`{"type":"ping"}`))
	})
}

func TestClient_TrySend(t *testing.T) {
	client := &Client{Send: make(chan []byte, 1)}

	assert.True(t, client.trySend([]byte("a")))
	assert.False(t, client.trySend([]byte("b")), "buffer full")

	client.close()
	client.close()
	assert.False(t, client.trySend([]byte("c")))
}
