package realtime

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/schema"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512

	// Default interval between SSE keepalive comments.
	defaultHeartbeat = 15 * time.Second

	// Outbound buffer per client stream.
	sendBuffer = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// queryDecoder is shared across handlers and must not be reconfigured after
// init.
var queryDecoder = newQueryDecoder()

func newQueryDecoder() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	return d
}

// StreamOptions are the client-tunable knobs, decoded from query params.
type StreamOptions struct {
	// Heartbeat is the SSE keepalive interval in seconds.
	Heartbeat int `schema:"heartbeat"`
}

func decodeOptions(r *http.Request) StreamOptions {
	var opts StreamOptions
	if err := queryDecoder.Decode(&opts, r.URL.Query()); err != nil {
		slog.Debug("bad stream options, using defaults", "error", err)
	}
	return opts
}

// Client is one connected output stream. The stream is one-way: the server
// pushes notifications, clients send nothing of significance.
type Client struct {
	hub  *Hub
	conn *websocket.Conn // nil for SSE clients
	send chan Message
}

// readPump discards inbound frames and detects disconnection. At most one
// reader runs per connection.
func (c *Client) readPump() {
	defer func() {
		c.hub.remove(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Warn("websocket closed unexpectedly", "error", err)
			}
			return
		}
	}
}

// writePump pushes hub messages to the connection. At most one writer runs
// per connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the stream.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeWS upgrades the request and attaches a WebSocket client stream to
// the hub.
func ServeWS(hub *Hub, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := &Client{hub: hub, conn: conn, send: make(chan Message, sendBuffer)}
	client.hub.add(client)
	slog.Info("websocket stream connected", "remote", r.RemoteAddr)

	go client.writePump()
	go client.readPump()
}

// ServeSSE attaches a Server-Sent Events client stream to the hub. Each
// notification becomes one SSE event carrying the channel name and the
// payload string.
func ServeSSE(hub *Hub, w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	opts := decodeOptions(r)
	heartbeat := defaultHeartbeat
	if opts.Heartbeat > 0 {
		heartbeat = time.Duration(opts.Heartbeat) * time.Second
	}

	client := &Client{hub: hub, send: make(chan Message, sendBuffer)}
	client.hub.add(client)
	slog.Info("sse stream connected", "remote", r.RemoteAddr)

	defer func() {
		client.hub.remove(client)
		slog.Info("sse stream closed", "remote", r.RemoteAddr)
	}()

	fmt.Fprintf(w, ": connected\n\n")
	flusher.Flush()

	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return

		case <-ticker.C:
			if _, err := fmt.Fprintf(w, ": heartbeat\n\n"); err != nil {
				return
			}
			flusher.Flush()

		case msg, ok := <-client.send:
			if !ok {
				return
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.Event, msg.Data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
