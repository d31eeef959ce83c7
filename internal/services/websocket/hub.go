package websocket

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"detectserver/internal/logger"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 5 * time.Second
	clientQueueLen = 4

	// PongWait is how long a viewer may stay silent before its read times out.
	PongWait   = 60 * time.Second
	pingPeriod = PongWait * 9 / 10
)

// Observer is told about viewers joining and leaving. It may be nil.
type Observer interface {
	ViewerConnected()
	ViewerDisconnected()
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// HubService fans messages out to connected viewers. A viewer that cannot
// keep up loses messages instead of slowing the others down.
type HubService struct {
	clients    map[*websocket.Conn]*client
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	done       chan struct{}
	mutex      sync.RWMutex
	observer   Observer
	logger     *logger.Logger
	pingPeriod time.Duration

	dropped atomic.Uint64
}

func NewHubService(observer Observer, logger *logger.Logger) *HubService {
	return &HubService{
		clients:    make(map[*websocket.Conn]*client),
		broadcast:  make(chan []byte, 1),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		observer:   observer,
		logger:     logger,
		pingPeriod: pingPeriod,
	}
}

// Run serves the hub until ctx is done, then disconnects every viewer.
func (h *HubService) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case conn := <-h.register:
			c := &client{conn: conn, send: make(chan []byte, clientQueueLen)}
			h.mutex.Lock()
			h.clients[conn] = c
			total := len(h.clients)
			h.mutex.Unlock()

			go h.writePump(c)
			if h.observer != nil {
				h.observer.ViewerConnected()
			}
			h.logger.Info("Client connected. Total: %d", total)

		case conn := <-h.unregister:
			h.mutex.Lock()
			c, ok := h.clients[conn]
			if ok {
				delete(h.clients, conn)
				close(c.send)
			}
			total := len(h.clients)
			h.mutex.Unlock()

			if ok {
				if h.observer != nil {
					h.observer.ViewerDisconnected()
				}
				h.logger.Info("Client disconnected. Total: %d", total)
			}

		case message := <-h.broadcast:
			h.mutex.RLock()
			for _, c := range h.clients {
				select {
				case c.send <- message:
				default:
					h.dropped.Add(1)
				}
			}
			h.mutex.RUnlock()

		case <-ctx.Done():
			h.mutex.Lock()
			for conn, c := range h.clients {
				delete(h.clients, conn)
				close(c.send)
				if h.observer != nil {
					h.observer.ViewerDisconnected()
				}
			}
			h.mutex.Unlock()
			h.logger.Info("Hub stopped")
			return
		}
	}
}

// writePump is the only writer of a connection. It pings the viewer so the
// read side can keep extending its deadline.
func (h *HubService) writePump(c *client) {
	ticker := time.NewTicker(h.pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				c.conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				h.drop(c, "Error sending message: %v", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.drop(c, "Error sending ping: %v", err)
				return
			}
		}
	}
}

// drop unregisters a viewer whose connection failed.
func (h *HubService) drop(c *client, format string, err error) {
	h.logger.Warning(format, err)
	go h.Unregister(c.conn)
	// oproznij kolejke az Run zamknie kanal
	for range c.send {
	}
}

func (h *HubService) Register(conn *websocket.Conn) {
	select {
	case h.register <- conn:
	case <-h.done:
		conn.Close()
	}
}

func (h *HubService) Unregister(conn *websocket.Conn) {
	select {
	case h.unregister <- conn:
	case <-h.done:
	}
}

// Broadcast queues message for every viewer. It never blocks and reports
// whether the message was accepted.
func (h *HubService) Broadcast(message []byte) bool {
	select {
	case h.broadcast <- message:
		return true
	default:
		h.dropped.Add(1)
		return false
	}
}

func (h *HubService) GetClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// Dropped returns how many messages were not delivered to some viewer.
func (h *HubService) Dropped() uint64 {
	return h.dropped.Load()
}
