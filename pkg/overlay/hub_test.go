package overlay

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"tableflip.dev/teamviz/pkg/view"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) view.Frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var f view.Frame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func TestReplayKeepsLastFramePerProperty(t *testing.T) {
	hub := NewHub(zap.NewNop())
	hub.Render(view.Frame{Layer: "slot-1/fg", Property: view.PropOpacity, Value: 0.5, Duration: 2})
	hub.Render(view.Frame{Layer: "slot-1/fg", Property: view.PropImage, Value: "a.png"})
	hub.Render(view.Frame{Layer: "slot-1/fg", Property: view.PropOpacity, Value: 1.0, Duration: 2})
	hub.Render(view.Frame{Layer: "head", Property: view.PropPreload, Value: "a.png"})

	got := hub.Replay()
	require.Len(t, got, 2)
	assert.Equal(t, view.PropOpacity, got[0].Property)
	assert.Equal(t, 1.0, got[0].Value)
	assert.Zero(t, got[0].Duration)
	assert.Equal(t, "a.png", got[1].Value)
}

func TestSubscriberGetsReplayAndBroadcast(t *testing.T) {
	hub := NewHub(zap.NewNop())
	defer hub.Close()
	hub.Render(view.Frame{Layer: "slot-1/bg", Property: view.PropFilter, Value: "grayscale(0%)", Duration: 1})

	srv := httptest.NewServer(hub)
	defer srv.Close()
	conn := dial(t, srv)

	first := readFrame(t, conn)
	assert.Equal(t, "slot-1/bg", first.Layer)
	assert.Equal(t, "grayscale(0%)", first.Value)
	assert.Zero(t, first.Duration)

	hub.Render(view.Frame{Layer: "slot-2/fg", Property: view.PropScaleX, Value: -1.0, Duration: 0.5})
	next := readFrame(t, conn)
	assert.Equal(t, "slot-2/fg", next.Layer)
	assert.Equal(t, -1.0, next.Value)
}

func TestSubscriberLeaves(t *testing.T) {
	hub := NewHub(zap.NewNop())
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dial(t, srv)
	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, 5*time.Second, 10*time.Millisecond)
	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.Subscribers() == 0 }, 5*time.Second, 10*time.Millisecond)
}

func TestCloseDisconnects(t *testing.T) {
	hub := NewHub(zap.NewNop())
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dial(t, srv)
	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, 5*time.Second, 10*time.Millisecond)
	hub.Close()
	assert.Equal(t, 0, hub.Subscribers())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

func TestHTTPLoader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.png":
			w.WriteHeader(http.StatusOK)
		case "/nohead.png":
			if r.Method == http.MethodHead {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			w.WriteHeader(http.StatusOK)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	l := &HTTPLoader{Client: srv.Client()}
	ctx := context.Background()
	assert.NoError(t, l.Load(ctx, srv.URL+"/ok.png"))
	assert.NoError(t, l.Load(ctx, srv.URL+"/nohead.png"))
	assert.Error(t, l.Load(ctx, srv.URL+"/missing.png"))
	assert.Error(t, l.Load(ctx, "://bad"))
}
