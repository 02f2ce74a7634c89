// Package feed pushes case events to connected dashboards over WebSockets.
// Clients subscribe to "cases" for every event or "case:<number>" for one
// case.
package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ems/casebook/internal/platform/auth"
	"github.com/ems/casebook/internal/platform/events"
)

const (
	// AllCases receives every case event.
	AllCases = "cases"

	casePrefix = "case:"
	sendBuffer = 64

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// CaseTopic is the topic for a single case's events.
func CaseTopic(caseNumber string) string { return casePrefix + caseNumber }

// ValidTopic accepts AllCases and non-empty case topics.
func ValidTopic(t string) bool {
	return t == AllCases || (strings.HasPrefix(t, casePrefix) && len(t) > len(casePrefix))
}

// ClientMessage is an inbound subscription change.
type ClientMessage struct {
	Action string   `json:"action"`
	Topics []string `json:"topics"`
}

// Client is one connected dashboard.
type Client struct {
	ID      string
	Subject string
	Send    chan []byte

	topics []string
}

func newClient(subject string, topics []string) *Client {
	return &Client{
		ID:      uuid.NewString(),
		Subject: subject,
		Send:    make(chan []byte, sendBuffer),
		topics:  topics,
	}
}

// Hub tracks clients by topic. It implements events.Publisher so it can sit
// next to the Kafka or log publisher in an events.Fanout.
type Hub struct {
	mu      sync.RWMutex
	topics  map[string]map[*Client]struct{}
	clients map[*Client]struct{}
	log     zerolog.Logger
	dropped int
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		topics:  make(map[string]map[*Client]struct{}),
		clients: make(map[*Client]struct{}),
		log:     logger.With().Str("component", "feed").Logger(),
	}
}

func (h *Hub) addLocked(c *Client, topics []string) {
	for _, t := range topics {
		if !ValidTopic(t) {
			continue
		}
		if h.topics[t] == nil {
			h.topics[t] = make(map[*Client]struct{})
		}
		h.topics[t][c] = struct{}{}
		if !slices.Contains(c.topics, t) {
			c.topics = append(c.topics, t)
		}
	}
}

func (h *Hub) removeLocked(c *Client, topics []string) {
	for _, t := range topics {
		if subs, ok := h.topics[t]; ok {
			delete(subs, c)
			if len(subs) == 0 {
				delete(h.topics, t)
			}
		}
	}
	c.topics = slices.DeleteFunc(c.topics, func(t string) bool { return slices.Contains(topics, t) })
}

// Register adds c with its initial topics.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
	initial := c.topics
	c.topics = nil
	h.addLocked(c, initial)
}

// Unregister drops c from every topic and closes its Send channel. Calling
// it twice is a no-op.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	h.removeLocked(c, slices.Clone(c.topics))
	delete(h.clients, c)
	close(c.Send)
}

// Apply handles a subscribe or unsubscribe message. Unknown actions and
// invalid topics are ignored.
func (h *Hub) Apply(c *Client, msg ClientMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	switch msg.Action {
	case "subscribe":
		h.addLocked(c, msg.Topics)
	case "unsubscribe":
		h.removeLocked(c, msg.Topics)
	}
}

// Topics returns the client's current subscriptions.
func (h *Hub) Topics(c *Client) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return slices.Clone(c.topics)
}

// Publish sends e to AllCases and to the event's case topic. A client
// subscribed to both receives it once. Slow clients miss events rather than
// block the publisher.
func (h *Hub) Publish(_ context.Context, e events.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	sent := make(map[*Client]struct{})
	for _, t := range []string{AllCases, CaseTopic(e.CaseNumber)} {
		for c := range h.topics[t] {
			if _, done := sent[c]; done {
				continue
			}
			sent[c] = struct{}{}
			select {
			case c.Send <- data:
			default:
				h.dropped++
				h.log.Warn().Str("client_id", c.ID).Str("case_number", e.CaseNumber).Msg("feed client buffer full, event dropped")
			}
		}
	}
	return nil
}

// Close disconnects every client.
func (h *Hub) Close() error {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()
	for _, c := range clients {
		h.Unregister(c)
	}
	return nil
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) TopicCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

// Dropped counts events skipped for full client buffers.
func (h *Hub) Dropped() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.dropped
}

// ---------------------------------------------------------------------------
// Handler upgrades GET /feed and runs the read and write pumps.
// ---------------------------------------------------------------------------

type Handler struct {
	hub      *Hub
	upgrader gorillawebsocket.Upgrader
}

// NewHandler accepts upgrades from the given origins. "*" or an empty list
// allows any origin.
func NewHandler(hub *Hub, allowedOrigins []string) *Handler {
	return &Handler{
		hub: hub,
		upgrader: gorillawebsocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(allowed) == 0 || slices.Contains(allowed, "*") {
			return true
		}
		return slices.Contains(allowed, origin)
	}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/feed", h.Connect, auth.RequireRole("responder"))
}

// Connect upgrades the request. Initial topics come from the repeated
// "topic" query parameter and default to AllCases.
func (h *Handler) Connect(c echo.Context) error {
	topics := c.QueryParams()["topic"]
	if len(topics) == 0 {
		topics = []string{AllCases}
	}

	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	client := newClient(auth.SubjectFromContext(c.Request().Context()), topics)
	h.hub.Register(client)
	h.hub.log.Debug().Str("client_id", client.ID).Str("subject", client.Subject).Strs("topics", topics).Msg("feed client connected")

	go h.writePump(client, ws)
	go h.readPump(client, ws)
	return nil
}

func (h *Handler) readPump(client *Client, ws *gorillawebsocket.Conn) {
	defer func() {
		h.hub.Unregister(client)
		ws.Close()
	}()

	ws.SetReadLimit(4096)
	ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := ws.ReadMessage()
		if err != nil {
			return
		}
		var msg ClientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}
		h.hub.Apply(client, msg)
	}
}

func (h *Handler) writePump(client *Client, ws *gorillawebsocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		ws.Close()
	}()

	for {
		select {
		case message, ok := <-client.Send:
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				ws.WriteMessage(gorillawebsocket.CloseMessage, []byte{})
				return
			}
			if err := ws.WriteMessage(gorillawebsocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(gorillawebsocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
