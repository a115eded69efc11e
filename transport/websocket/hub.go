package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/wricardo/gridpath/pathfinding/grid"
	"github.com/wricardo/gridpath/pathfinding/search"
	"github.com/wricardo/gridpath/pathfinding/service"
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

	// Messages queued per client before the hub waits on it.
	sendBufferSize = 256

	// How long the hub waits on a full client buffer before dropping the
	// client as stalled.
	sendWait = writeWait

	// DefaultStepsPerMessage is how many trace steps go into one frame.
	DefaultStepsPerMessage = 256
)

// Event names
const (
	EventSearchStarted  = "search_started"
	EventSteps          = "steps"
	EventSearchComplete = "search_complete"
)

// Message represents a WebSocket message
type Message struct {
	Channel string        `json:"channel"`
	Event   string        `json:"event"`
	Offset  int           `json:"offset,omitempty"` // index of Steps[0] in the full trace
	Steps   []search.Step `json:"steps,omitempty"`
	Data    interface{}   `json:"data,omitempty"`
}

// SearchStarted is the payload of a search_started event
type SearchStarted struct {
	Rows       int        `json:"rows"`
	Cols       int        `json:"cols"`
	Start      grid.Coord `json:"start"`
	End        grid.Coord `json:"end"`
	TotalSteps int        `json:"totalSteps"`
}

// SearchComplete is the payload of a search_complete event
type SearchComplete struct {
	PathFound    bool            `json:"pathFound"`
	Message      string          `json:"message"`
	Distance     *int            `json:"distance,omitempty"`
	ShortestPath []grid.CellView `json:"shortestPath"`
}

// Client represents a WebSocket client
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	channel string

	// closed by writePump when the connection is gone
	gone chan struct{}
}

type countRequest struct {
	channel string
	reply   chan int
}

// Hub maintains the set of active clients and broadcasts messages. The
// channel map is only touched by the Run goroutine.
type Hub struct {
	// Registered clients by channel
	channels map[string]map[*Client]bool

	// Outbound messages for a channel
	broadcast chan *Message

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Subscriber count queries
	counts chan countRequest

	done chan struct{}

	upgrader        websocket.Upgrader
	stepsPerMessage int
	sendWait        time.Duration

	// keeps the frames of one search contiguous
	streaming sync.Mutex
}

// HubOption configures a Hub
type HubOption func(*Hub)

// WithAllowedOrigins restricts websocket upgrades to the given origins.
// An empty list or "*" allows any origin.
func WithAllowedOrigins(origins []string) HubOption {
	return func(h *Hub) {
		if len(origins) == 0 || slices.Contains(origins, "*") {
			return
		}
		h.upgrader.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || slices.Contains(origins, origin)
		}
	}
}

// WithStepsPerMessage sets the trace batch size per frame.
func WithStepsPerMessage(n int) HubOption {
	return func(h *Hub) {
		if n > 0 {
			h.stepsPerMessage = n
		}
	}
}

// WithSendWait sets how long a full client buffer may block delivery
// before the client is dropped.
func WithSendWait(d time.Duration) HubOption {
	return func(h *Hub) {
		if d > 0 {
			h.sendWait = d
		}
	}
}

// NewHub creates a new WebSocket hub
func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		channels:   make(map[string]map[*Client]bool),
		broadcast:  make(chan *Message),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		counts:     make(chan countRequest),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		stepsPerMessage: DefaultStepsPerMessage,
		sendWait:        sendWait,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run starts the hub's event loop. It returns when ctx is done, after
// closing every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for _, clients := range h.channels {
				for client := range clients {
					h.unregisterClient(client)
				}
			}
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastMessage(message)

		case req := <-h.counts:
			req.reply <- len(h.channels[req.channel])
		}
	}
}

// ServeWS handles WebSocket requests from clients
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, channel string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	client := &Client{
		hub:     h,
		conn:    conn,
		send:    make(chan []byte, sendBufferSize),
		channel: channel,
		gone:    make(chan struct{}),
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	// Start client goroutines
	go client.writePump()
	go client.readPump()
}

// Subscribers returns the number of clients on a channel
func (h *Hub) Subscribers(channel string) int {
	req := countRequest{channel: channel, reply: make(chan int, 1)}
	select {
	case h.counts <- req:
		return <-req.reply
	case <-h.done:
		return 0
	}
}

// BroadcastSearch streams a search to every client on channel: one
// search_started event, the trace in batches of steps, then search_complete.
// It blocks until every frame has been queued or its client dropped, so
// callers on a request path usually run it in a goroutine. Searches are
// streamed one at a time.
func (h *Hub) BroadcastSearch(channel string, result *service.FindPathResult) {
	if channel == "" || result == nil {
		return
	}

	h.streaming.Lock()
	defer h.streaming.Unlock()

	steps := result.VisualizationSteps
	h.BroadcastEvent(channel, EventSearchStarted, &SearchStarted{
		Rows:       result.Rows,
		Cols:       result.Cols,
		Start:      result.Start,
		End:        result.End,
		TotalSteps: len(steps),
	})

	for offset := 0; offset < len(steps); offset += h.stepsPerMessage {
		end := min(offset+h.stepsPerMessage, len(steps))
		h.send(&Message{
			Channel: channel,
			Event:   EventSteps,
			Offset:  offset,
			Steps:   steps[offset:end],
		})
	}

	h.BroadcastEvent(channel, EventSearchComplete, &SearchComplete{
		PathFound:    result.PathFound,
		Message:      result.Message,
		Distance:     result.Distance,
		ShortestPath: result.ShortestPath,
	})
}

// BroadcastEvent sends a custom event to all clients on a channel
func (h *Hub) BroadcastEvent(channel string, event string, data interface{}) {
	h.send(&Message{
		Channel: channel,
		Event:   event,
		Data:    data,
	})
}

func (h *Hub) send(message *Message) {
	select {
	case h.broadcast <- message:
	case <-h.done:
	}
}

// registerClient adds a client to a channel
func (h *Hub) registerClient(client *Client) {
	if h.channels[client.channel] == nil {
		h.channels[client.channel] = make(map[*Client]bool)
	}
	h.channels[client.channel][client] = true

	log.WithFields(log.Fields{
		"channel": client.channel,
		"clients": len(h.channels[client.channel]),
	}).Info("Client registered")
}

// unregisterClient removes a client from a channel
func (h *Hub) unregisterClient(client *Client) {
	if clients, ok := h.channels[client.channel]; ok {
		if _, ok := clients[client]; ok {
			delete(clients, client)
			close(client.send)

			// Clean up empty channels
			if len(clients) == 0 {
				delete(h.channels, client.channel)
			}

			log.WithFields(log.Fields{
				"channel": client.channel,
				"clients": len(clients),
			}).Info("Client unregistered")
		}
	}
}

// broadcastMessage sends a message to all clients on a channel. A client
// with a full buffer gets up to sendWait to make room before it is dropped.
func (h *Hub) broadcastMessage(message *Message) {
	clients, ok := h.channels[message.Channel]
	if !ok {
		return
	}

	data, err := json.Marshal(message)
	if err != nil {
		log.WithError(err).Error("Failed to marshal broadcast message")
		return
	}

	for client := range clients {
		select {
		case client.send <- data:
			continue
		default:
		}

		timer := time.NewTimer(h.sendWait)
		select {
		case client.send <- data:
		case <-client.gone:
			h.unregisterClient(client)
		case <-timer.C:
			log.WithField("channel", client.channel).Warn("Dropping stalled client")
			h.unregisterClient(client)
		}
		timer.Stop()
	}
}

// readPump pumps messages from the WebSocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		// Incoming messages are ignored; reading keeps pongs flowing
		_, _, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.WithError(err).Warn("WebSocket error")
			}
			break
		}
	}
}

// writePump pumps messages from the hub to the WebSocket connection, one
// frame per message
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		if c.gone != nil {
			close(c.gone)
		}
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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
