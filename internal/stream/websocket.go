package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	reconnectWait  = time.Second
	writeWait      = 2 * time.Second
	clientSendSize = 8
)

// wsConn tracks the live connection of a reconnecting websocket source so
// it can be closed from outside the reader goroutine.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *wsConn) set(c *websocket.Conn) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.conn = c
}

func (w *wsConn) close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn != nil {
		w.conn.Close()
	}
}

// dialWebsocket keeps a connection to url open, redialing after failures,
// and passes every message to handle. The returned func stops it.
// Messages over limit bytes drop the connection, which is then redialed.
func dialWebsocket(ctx context.Context, url string, limit int64, handle func([]byte), logger *slog.Logger) func() error {
	ctx, cancel := context.WithCancel(ctx)
	live := &wsConn{}
	stop := context.AfterFunc(ctx, live.close)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for ctx.Err() == nil {
			conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
			if err != nil {
				logger.Debug("websocket dial failed, retrying", "url", url, "error", err)
				if !sleepCtx(ctx, reconnectWait) {
					return
				}
				continue
			}
			logger.Info("websocket connected", "url", url)
			live.set(conn)
			if ctx.Err() != nil {
				conn.Close()
				return
			}

			if err := readLoop(conn, limit, handle); errors.Is(err, websocket.ErrReadLimit) {
				logger.Warn("websocket message exceeds read limit", "url", url, "limit", limit)
			}

			live.set(nil)
			conn.Close()
			if ctx.Err() != nil {
				return
			}
			logger.Warn("websocket connection closed, reconnecting", "url", url)
			if !sleepCtx(ctx, reconnectWait) {
				return
			}
		}
	}()

	return func() error {
		cancel()
		stop()
		live.close()
		<-done
		return nil
	}
}

// readLoop reads until the connection fails and returns the read error.
func readLoop(conn *websocket.Conn, limit int64, handle func([]byte)) error {
	if limit > 0 {
		conn.SetReadLimit(limit)
	}
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		handle(message)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// hubClient is one connected viewer.
type hubClient struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// Hub fans payloads out to every connected websocket viewer. Slow viewers
// miss payloads rather than hold up the publisher.
type Hub struct {
	kind     string
	msgType  int
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu      sync.Mutex
	clients map[string]*hubClient
}

// NewHub returns a hub for payloads of the given kind. Graph payloads are
// sent as text frames, video payloads as binary frames.
func NewHub(kind string, logger *slog.Logger) *Hub {
	msgType := websocket.BinaryMessage
	if kind == KindGraph {
		msgType = websocket.TextMessage
	}
	return &Hub{
		kind:    kind,
		msgType: msgType,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger:  logger,
		clients: make(map[string]*hubClient),
	}
}

// ServeHTTP upgrades the request and serves the viewer until it disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "kind", h.kind, "error", err)
		return
	}
	c := &hubClient{id: uuid.NewString(), conn: conn, send: make(chan []byte, clientSendSize)}

	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()
	h.logger.Info("viewer connected", "kind", h.kind, "client", c.id, "remote", r.RemoteAddr)

	go h.writeLoop(c)

	// Viewers never send; reading only detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.mu.Lock()
	delete(h.clients, c.id)
	close(c.send)
	h.mu.Unlock()
	conn.Close()
	h.logger.Info("viewer disconnected", "kind", h.kind, "client", c.id)
}

func (h *Hub) writeLoop(c *hubClient) {
	for data := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(h.msgType, data); err != nil {
			h.logger.Debug("write to viewer failed", "kind", h.kind, "client", c.id, "error", err)
			c.conn.Close()
			for range c.send {
			}
			return
		}
	}
}

// Broadcast queues data for every viewer and returns how many accepted it.
func (h *Hub) Broadcast(data []byte) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	sent := 0
	for _, c := range h.clients {
		select {
		case c.send <- data:
			sent++
		default:
			// Viewer is slow, drop this payload for it
		}
	}
	return sent
}

// Clients returns the number of connected viewers.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.clients {
		c.conn.Close()
	}
}

// WebsocketPublisher serves /graph and /video to viewers.
type WebsocketPublisher struct {
	graph   *Hub
	video   *Hub
	servers []*http.Server
	addrs   []net.Addr
	logger  *slog.Logger
}

// ListenWebsocket starts the HTTP listeners. Graph and video share one
// listener when their ports are equal.
func ListenWebsocket(ctx context.Context, cfg Config, logger *slog.Logger) (*WebsocketPublisher, error) {
	cfg = cfg.withDefaults()
	p := &WebsocketPublisher{
		graph:  NewHub(KindGraph, logger),
		video:  NewHub(KindVideo, logger),
		logger: logger,
	}

	mounts := map[int]*http.ServeMux{}
	for _, m := range []struct {
		port int
		path string
		hub  *Hub
	}{{cfg.GraphPort, "/" + KindGraph, p.graph}, {cfg.VideoPort, "/" + KindVideo, p.video}} {
		mux, ok := mounts[m.port]
		if !ok {
			mux = http.NewServeMux()
			mounts[m.port] = mux
		}
		mux.Handle(m.path, m.hub)
	}

	for port, mux := range mounts {
		addr := net.JoinHostPort(cfg.Bind, strconv.Itoa(port))
		ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", addr)
		if err != nil {
			_ = p.Close()
			return nil, fmt.Errorf("listen on %s: %w", addr, err)
		}
		srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		p.servers = append(p.servers, srv)
		p.addrs = append(p.addrs, ln.Addr())
		go func() {
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("websocket server stopped", "addr", addr, "error", err)
			}
		}()
		logger.Info("publishing over websocket", "addr", ln.Addr().String())
	}
	return p, nil
}

// Addrs returns the bound listener addresses.
func (p *WebsocketPublisher) Addrs() []net.Addr { return p.addrs }

// PublishGraph encodes and broadcasts a graph payload.
func (p *WebsocketPublisher) PublishGraph(payload GraphPayload) error {
	data, err := EncodeGraph(payload)
	if err != nil {
		return err
	}
	p.graph.Broadcast(data)
	return nil
}

// PublishVideo encodes and broadcasts a video payload.
func (p *WebsocketPublisher) PublishVideo(payload VideoPayload) error {
	data, err := EncodeVideo(payload)
	if err != nil {
		return err
	}
	p.video.Broadcast(data)
	return nil
}

// Viewers returns the number of connected graph and video viewers.
func (p *WebsocketPublisher) Viewers() (graph, video int) {
	return p.graph.Clients(), p.video.Clients()
}

// Close stops the listeners and drops all viewers.
func (p *WebsocketPublisher) Close() error {
	var errs []error
	for _, srv := range p.servers {
		errs = append(errs, srv.Close())
	}
	p.graph.closeAll()
	p.video.closeAll()
	return errors.Join(errs...)
}
