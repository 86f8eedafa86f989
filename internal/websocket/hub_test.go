package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func startHub(t *testing.T, opts Options) (*Hub, string) {
	t.Helper()
	opts.Logger = zap.NewNop()
	hub := NewHub(opts)
	go hub.Run()
	t.Cleanup(hub.Shutdown)

	r := gin.New()
	r.GET("/ws/projects/:id", hub.HandleWebSocket)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/projects/"
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHub_SubscribeAndPublish(t *testing.T) {
	source := func(_ context.Context, id string) (any, error) {
		return map[string]string{"id": id, "status": "generating"}, nil
	}
	hub, base := startHub(t, Options{Source: source})

	conn := dial(t, base+"p1")
	hello := readMessage(t, conn)
	assert.Equal(t, MessageTypeSubscribed, hello.Type)
	assert.Equal(t, "p1", hello.ProjectID)
	assert.Equal(t, map[string]any{"id": "p1", "status": "generating"}, hello.Data)

	other := dial(t, base+"p2")
	readMessage(t, other)

	hub.Publish("p1", map[string]string{"status": "preview"})
	msg := readMessage(t, conn)
	assert.Equal(t, MessageTypeSnapshot, msg.Type)
	assert.Equal(t, map[string]any{"status": "preview"}, msg.Data)

	// p2 only sees its own project
	require.NoError(t, other.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := other.ReadMessage()
	assert.Error(t, err)
}

func TestHub_SendsSnapshotChangedWhileSubscribing(t *testing.T) {
	var reads atomic.Int32
	source := func(context.Context, string) (any, error) {
		if reads.Add(1) == 1 {
			return map[string]string{"status": "generating"}, nil
		}
		return map[string]string{"status": "preview"}, nil
	}
	_, base := startHub(t, Options{Source: source})

	conn := dial(t, base+"p1")
	hello := readMessage(t, conn)
	assert.Equal(t, map[string]any{"status": "generating"}, hello.Data)

	msg := readMessage(t, conn)
	assert.Equal(t, MessageTypeSnapshot, msg.Type)
	assert.Equal(t, map[string]any{"status": "preview"}, msg.Data)
}

func TestHub_UnknownProject(t *testing.T) {
	source := func(context.Context, string) (any, error) { return nil, errors.New("not found") }
	_, base := startHub(t, Options{Source: source})

	_, resp, err := websocket.DefaultDialer.Dial(base+"missing", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHub_Heartbeat(t *testing.T) {
	_, base := startHub(t, Options{})
	conn := dial(t, base+"p1")
	readMessage(t, conn)

	require.NoError(t, conn.WriteJSON(Message{Type: MessageTypeHeartbeat}))
	assert.Equal(t, MessageTypeHeartbeat, readMessage(t, conn).Type)

	require.NoError(t, conn.WriteJSON(Message{Type: "chat"}))
	msg := readMessage(t, conn)
	assert.Equal(t, MessageTypeError, msg.Type)
	assert.Equal(t, "Unknown message type: chat", msg.Data)
}

func TestHub_ClientCount(t *testing.T) {
	hub, base := startHub(t, Options{})
	conn := dial(t, base+"p1")
	readMessage(t, conn)
	assert.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestOriginChecker(t *testing.T) {
	tests := []struct {
		name       string
		allowed    []string
		production bool
		origin     string
		want       bool
	}{
		{"no origin in development", nil, false, "", true},
		{"no origin in production", nil, true, "", false},
		{"any origin allowed", nil, true, "https://x.dev", true},
		{"listed origin", []string{"https://app.dev"}, true, "https://app.dev", true},
		{"unlisted origin", []string{"https://app.dev"}, false, "https://evil.dev", false},
		{"wildcard", []string{" * "}, true, "https://evil.dev", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.want, originChecker(tt.allowed, tt.production)(r))
		})
	}
}

func TestBatchedHub_CoalescesSnapshots(t *testing.T) {
	hub := NewHub(Options{Logger: zap.NewNop()})
	bh := NewBatchedHub(hub, time.Hour)

	bh.QueueSnapshot("p1", 1)
	bh.QueueSnapshot("p1", 2)
	bh.QueueSnapshot("p2", 1)

	bh.mu.Lock()
	assert.Equal(t, map[string]any{"p1": 2, "p2": 1}, bh.pending)
	bh.mu.Unlock()

	stats := bh.GetStats()
	assert.Equal(t, int64(3), stats.SnapshotsReceived)
	assert.Equal(t, int64(1), stats.SnapshotsCoalesced)
}

func TestBatchedHub_FlushDelivers(t *testing.T) {
	hub, base := startHub(t, Options{})
	bh := NewBatchedHub(hub, 20*time.Millisecond)

	conn := dial(t, base+"p1")
	readMessage(t, conn)

	bh.QueueSnapshot("p1", "first")
	bh.QueueSnapshot("p1", "latest")
	go bh.flushLoop()
	t.Cleanup(bh.Stop)
	msg := readMessage(t, conn)
	assert.Equal(t, "latest", msg.Data)

	bh.PublishNow("p1", "final")
	assert.Equal(t, "final", readMessage(t, conn).Data)
}

func TestBatchedHub_FinalSnapshotIsLast(t *testing.T) {
	hub := NewHub(Options{Logger: zap.NewNop()})
	bh := NewBatchedHub(hub, time.Hour)

	for i := 0; i < 200; i++ {
		bh.QueueSnapshot("p1", "generating")

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			bh.flush()
		}()
		bh.PublishNow("p1", "preview")
		wg.Wait()

		var last Message
		for len(hub.broadcast) > 0 {
			msg := <-hub.broadcast
			require.NoError(t, json.Unmarshal(msg.data, &last))
		}
		require.Equal(t, "preview", last.Data, "round %d", i)
	}
}
