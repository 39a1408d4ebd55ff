package ws

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"SignalSmith/internal/domain/models"
	domsvc "SignalSmith/internal/domain/service"
	"SignalSmith/internal/service/metrics"
	"SignalSmith/internal/services/feeds"
	xlogger "SignalSmith/pkg/logger"
	"SignalSmith/pkg/util"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	sendBuffer = 16
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
)

// envelope is the frame pushed to stream clients.
type envelope struct {
	Type string        `json:"type"`
	Data models.Signal `json:"data"`
	TS   time.Time     `json:"ts"`
}

// Hub fans composed signals out to websocket clients. A client that cannot keep up is dropped.
type Hub struct {
	log      *xlogger.Logger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*client]struct{}
	closed  bool
}

type client struct {
	conn    *websocket.Conn
	send    chan []byte
	symbols map[string]struct{} // empty means every symbol
	once    sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.send) })
}

func (c *client) wants(symbol string) bool {
	if len(c.symbols) == 0 {
		return true
	}
	_, ok := c.symbols[symbol]
	return ok
}

func NewHub(log *xlogger.Logger, allowOrigins []string) *Hub {
	return &Hub{
		log:     log.With(xlogger.String("component", "ws_hub")),
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(allowOrigins),
		},
	}
}

func originChecker(allow []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allow {
			if o == "*" || strings.EqualFold(o, origin) {
				return true
			}
		}
		return false
	}
}

func (h *Hub) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws/signals", h.Serve)
}

// Serve upgrades the request. ?symbols=bitcoin,eth narrows the stream.
func (h *Hub) Serve(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", xlogger.Error(err))
		return nil
	}
	cl := &client{conn: conn, send: make(chan []byte, sendBuffer), symbols: map[string]struct{}{}}
	for _, s := range util.SplitCSV(c.QueryParam("symbols")) {
		cl.symbols[feeds.NormalizeSymbol(s)] = struct{}{}
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return nil
	}
	h.clients[cl] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	metrics.WSClients.Inc()
	h.log.Debug("websocket client connected", xlogger.String("remote", c.RealIP()), xlogger.Int("clients", n))

	go h.writePump(cl)
	h.readPump(cl)
	return nil
}

// Broadcast queues sig for every interested client without blocking.
func (h *Hub) Broadcast(sig models.Signal) {
	b, err := json.Marshal(envelope{Type: "signal", Data: sig, TS: time.Now().UTC()})
	if err != nil {
		h.log.Error("encode signal frame", xlogger.Error(err))
		return
	}

	var slow []*client
	h.mu.RLock()
	for cl := range h.clients {
		if !cl.wants(sig.Symbol) {
			continue
		}
		select {
		case cl.send <- b:
		default:
			slow = append(slow, cl)
		}
	}
	h.mu.RUnlock()

	for _, cl := range slow {
		h.log.Warn("dropping slow websocket client")
		h.remove(cl)
	}
}

// Clients is the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	cls := make([]*client, 0, len(h.clients))
	for cl := range h.clients {
		cls = append(cls, cl)
	}
	h.mu.Unlock()
	for _, cl := range cls {
		h.remove(cl)
	}
}

func (h *Hub) remove(cl *client) {
	h.mu.Lock()
	_, ok := h.clients[cl]
	delete(h.clients, cl)
	h.mu.Unlock()
	if ok {
		metrics.WSClients.Dec()
		cl.close()
	}
}

func (h *Hub) readPump(cl *client) {
	defer func() {
		h.remove(cl)
		_ = cl.conn.Close()
	}()
	cl.conn.SetReadLimit(512)
	_ = cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := cl.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(cl *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = cl.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-cl.send:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = cl.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := cl.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

var _ domsvc.Broadcaster = (*Hub)(nil)
