package relay

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8 * 1024
)

// Client is one websocket connection. Frames it reads are applied in
// arrival order by a single goroutine; frames queued for it are written in
// queue order by another.
type Client struct {
	ID     string
	UserID string

	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// NewClient creates a client with a fresh connection id. conn may be nil for
// a client that is only ever fed through Hub.HandleEvent.
func NewClient(hub *Hub, conn *websocket.Conn, userID string, buffer int) *Client {
	if buffer <= 0 {
		buffer = 64
	}
	return &Client{
		ID:     uuid.NewString(),
		UserID: userID,
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, buffer),
	}
}

// Send returns the client's outbound queue.
func (c *Client) Send() <-chan []byte {
	return c.send
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Disconnect(c.ID)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("relay: read error", "conn_id", c.ID, "error", err)
			}
			return
		}
		c.hub.HandleEvent(c.ID, c.UserID, data)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
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

// Options configure the websocket endpoint.
type Options struct {
	// AllowedOrigins lists accepted Origin hosts or URLs. Empty accepts any.
	AllowedOrigins []string
	SendBuffer     int
}

// Server upgrades HTTP requests into hub clients.
type Server struct {
	hub      *Hub
	opts     Options
	upgrader websocket.Upgrader
}

func NewServer(hub *Hub, opts Options) *Server {
	s := &Server{hub: hub, opts: opts}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.opts.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	for _, allowed := range s.opts.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) || strings.EqualFold(allowed, u.Host) {
			return true
		}
	}
	return false
}

// ServeWS upgrades the request and runs the connection until it closes.
// userID is the already authenticated caller.
func (s *Server) ServeWS(w http.ResponseWriter, r *http.Request, userID string) error {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := NewClient(s.hub, conn, userID, s.opts.SendBuffer)
	s.hub.Register(c)
	slog.Debug("relay: connected", "conn_id", c.ID, "user_id", userID)

	go c.writePump()
	go c.readPump()
	return nil
}
