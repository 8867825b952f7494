package notify

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, _ := strconv.ParseInt(r.URL.Query().Get("user"), 10, 64)
		_ = hub.ServeWS(w, r, userID)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, hub *Hub, userID int64) *websocket.Conn {
	t.Helper()
	before := hub.Connections(userID)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?user=" + strconv.FormatInt(userID, 10)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool { return hub.Connections(userID) == before+1 },
		2*time.Second, 10*time.Millisecond)
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var ev map[string]any
	require.NoError(t, json.Unmarshal(data, &ev))
	return ev
}

func assertNoEvent(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(150*time.Millisecond)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

func TestHub_NotifyUserReachesOnlyThatUser(t *testing.T) {
	hub := NewHub([]string{"*"}, discardLogger())
	defer hub.Close()
	srv := newTestServer(t, hub)

	bob := dial(t, srv, hub, 2)
	carol := dial(t, srv, hub, 3)

	hub.NotifyUser(2, EventTaskAssigned, map[string]any{"message": "You have been assigned a new task: Ship it"})

	ev := readEvent(t, bob)
	assert.Equal(t, EventTaskAssigned, ev["event"])
	data := ev["data"].(map[string]any)
	assert.Equal(t, "You have been assigned a new task: Ship it", data["message"])

	assertNoEvent(t, carol)
}

func TestHub_NotifyUserAllConnections(t *testing.T) {
	hub := NewHub([]string{"*"}, discardLogger())
	defer hub.Close()
	srv := newTestServer(t, hub)

	tab1 := dial(t, srv, hub, 5)
	tab2 := dial(t, srv, hub, 5)
	assert.Equal(t, 2, hub.Connections(5))

	hub.NotifyUser(5, EventTaskAssigned, "x")
	assert.Equal(t, EventTaskAssigned, readEvent(t, tab1)["event"])
	assert.Equal(t, EventTaskAssigned, readEvent(t, tab2)["event"])
}

func TestHub_BroadcastReachesEveryone(t *testing.T) {
	hub := NewHub([]string{"*"}, discardLogger())
	defer hub.Close()
	srv := newTestServer(t, hub)

	a := dial(t, srv, hub, 1)
	b := dial(t, srv, hub, 2)

	hub.Broadcast(EventTaskDeleted, map[string]any{"id": 9})

	for _, conn := range []*websocket.Conn{a, b} {
		ev := readEvent(t, conn)
		assert.Equal(t, EventTaskDeleted, ev["event"])
		assert.Equal(t, float64(9), ev["data"].(map[string]any)["id"])
	}
}

func TestHub_NotifyWithoutConnectionIsNoop(t *testing.T) {
	hub := NewHub([]string{"*"}, discardLogger())
	defer hub.Close()

	assert.NotPanics(t, func() {
		hub.NotifyUser(42, EventTaskAssigned, "nobody listening")
		hub.Broadcast(EventTaskUpdated, "nobody listening")
	})
}

func TestHub_DisconnectUnregisters(t *testing.T) {
	hub := NewHub([]string{"*"}, discardLogger())
	defer hub.Close()
	srv := newTestServer(t, hub)

	conn := dial(t, srv, hub, 7)
	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	conn.Close()

	require.Eventually(t, func() bool { return hub.Connections(7) == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_CloseDisconnectsClients(t *testing.T) {
	hub := NewHub([]string{"*"}, discardLogger())
	srv := newTestServer(t, hub)

	conn := dial(t, srv, hub, 1)
	hub.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
	assert.Equal(t, 0, hub.Connections(1))

	// New connections are refused once closed
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?user=1"
	late, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer late.Close()
	require.NoError(t, late.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = late.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway))
}

func TestClient_FullBufferDropsEvent(t *testing.T) {
	c := &Client{send: make(chan []byte, 1), log: discardLogger()}

	done := make(chan struct{})
	go func() {
		c.enqueue([]byte("first"), EventTaskUpdated)
		c.enqueue([]byte("second"), EventTaskUpdated)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("enqueue blocked on a full buffer")
	}
	assert.Len(t, c.send, 1)
	assert.Equal(t, []byte("first"), <-c.send)
}

func TestOriginChecker(t *testing.T) {
	req := func(origin string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/api/ws", nil)
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		return r
	}

	open := originChecker([]string{"*"})
	assert.True(t, open(req("https://evil.example.com")))

	strict := originChecker([]string{"https://app.example.com"})
	assert.True(t, strict(req("https://app.example.com")))
	assert.True(t, strict(req("")))
	assert.False(t, strict(req("https://evil.example.com")))
}
