package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"detectserver/internal/logger"

	"github.com/gorilla/websocket"
)

type countingObserver struct {
	connected    atomic.Int32
	disconnected atomic.Int32
}

func (o *countingObserver) ViewerConnected()    { o.connected.Add(1) }
func (o *countingObserver) ViewerDisconnected() { o.disconnected.Add(1) }

// setupHub serves the hub over httptest. A non-zero pongWait makes the server
// drop viewers that do not answer pings in time.
func setupHub(t *testing.T, pongWait time.Duration) (*HubService, *countingObserver, string, context.CancelFunc) {
	t.Helper()

	l, err := logger.New(t.TempDir(), logger.SILENT)
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	t.Cleanup(func() { l.Close() })

	observer := &countingObserver{}
	hub := NewHubService(observer, l)
	if pongWait > 0 {
		hub.pingPeriod = pongWait / 2
	}
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)

	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		if pongWait > 0 {
			conn.SetReadDeadline(time.Now().Add(pongWait))
			conn.SetPongHandler(func(string) error {
				conn.SetReadDeadline(time.Now().Add(pongWait))
				return nil
			})
		}
		hub.Register(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				hub.Unregister(conn)
				return
			}
		}
	}))
	t.Cleanup(server.Close)

	return hub, observer, "ws" + strings.TrimPrefix(server.URL, "http"), cancel
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestHub_BroadcastReachesViewers(t *testing.T) {
	hub, observer, url, _ := setupHub(t, 0)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	waitFor(t, func() bool { return hub.GetClientCount() == 1 })
	if observer.connected.Load() != 1 {
		t.Errorf("observer connected = %d", observer.connected.Load())
	}

	if !hub.Broadcast([]byte(`{"detections":[]}`)) {
		t.Fatal("broadcast rejected on an idle hub")
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(msg) != `{"detections":[]}` {
		t.Errorf("got %s", msg)
	}
}

func TestHub_ViewerLeaves(t *testing.T) {
	hub, observer, url, _ := setupHub(t, 0)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	waitFor(t, func() bool { return hub.GetClientCount() == 1 })

	conn.Close()
	waitFor(t, func() bool { return hub.GetClientCount() == 0 })
	if observer.disconnected.Load() != 1 {
		t.Errorf("observer disconnected = %d", observer.disconnected.Load())
	}
}

func TestHub_StopDisconnectsViewers(t *testing.T) {
	hub, _, url, cancel := setupHub(t, 0)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	waitFor(t, func() bool { return hub.GetClientCount() == 1 })

	cancel()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("expected the connection to close")
	}
	if hub.GetClientCount() != 0 {
		t.Errorf("clients after stop = %d", hub.GetClientCount())
	}
}

func TestHub_PingsKeepSilentViewerConnected(t *testing.T) {
	hub, observer, url, _ := setupHub(t, 100*time.Millisecond)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// klient odpowiada na pingi tylko podczas czytania
	messages := make(chan string, 8)
	go func() {
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				close(messages)
				return
			}
			messages <- string(msg)
		}
	}()

	waitFor(t, func() bool { return hub.GetClientCount() == 1 })
	time.Sleep(500 * time.Millisecond)

	if hub.GetClientCount() != 1 || observer.disconnected.Load() != 0 {
		t.Fatalf("viewer dropped after several read deadlines: clients=%d disconnected=%d",
			hub.GetClientCount(), observer.disconnected.Load())
	}

	hub.Broadcast([]byte("still here"))
	select {
	case msg, ok := <-messages:
		if !ok || msg != "still here" {
			t.Errorf("got %q, open=%v", msg, ok)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("broadcast not delivered")
	}
}

func TestHub_BroadcastNeverBlocks(t *testing.T) {
	l, err := logger.New(t.TempDir(), logger.SILENT)
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	// hub bez Run: kanal broadcast zapelnia sie po pierwszej wiadomosci
	hub := NewHubService(nil, l)
	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			hub.Broadcast([]byte("frame"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Broadcast blocked")
	}
	if hub.Dropped() != 9 {
		t.Errorf("dropped = %d, expected 9", hub.Dropped())
	}
}
