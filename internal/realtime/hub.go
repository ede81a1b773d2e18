package realtime

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	namespaceAuthenticated = "authenticated"
	namespacePublic        = "public"

	defaultClientBuffer = 64
)

// Identity is established once per connection from its bearer credential.
type Identity struct {
	UserID   string
	Username string
	Admin    bool
}

// Client is one live connection. Outbound frames are queued on a buffered
// channel drained by the connection's writer; a full queue drops the frame.
type Client struct {
	ID       string
	Identity Identity
	Public   bool

	send  chan []byte
	rooms []string
}

// NewClient creates an authenticated client.
func NewClient(id Identity, buffer int) *Client {
	if buffer <= 0 {
		buffer = defaultClientBuffer
	}
	return &Client{ID: uuid.NewString(), Identity: id, send: make(chan []byte, buffer)}
}

// NewPublicClient creates an anonymous client in the public namespace.
func NewPublicClient(buffer int) *Client {
	c := NewClient(Identity{}, buffer)
	c.Public = true
	return c
}

// Messages returns the outbound queue. It is closed when the client is unregistered.
func (c *Client) Messages() <-chan []byte {
	return c.send
}

// Rooms returns the rooms joined at registration.
func (c *Client) Rooms() []string {
	return append([]string(nil), c.rooms...)
}

func (c *Client) enqueue(b []byte) bool {
	select {
	case c.send <- b:
		return true
	default:
		return false
	}
}

// Hub is the in-process connection table. It is constructed explicitly and
// passed to whoever needs to publish.
type Hub struct {
	mu      sync.RWMutex
	rooms   map[string]map[*Client]struct{}
	public  map[*Client]struct{}
	clients map[*Client]struct{}
	metrics *Metrics
	now     func() time.Time
}

func NewHub(metrics *Metrics) *Hub {
	return &Hub{
		rooms:   make(map[string]map[*Client]struct{}),
		public:  make(map[*Client]struct{}),
		clients: make(map[*Client]struct{}),
		metrics: metrics,
		now:     time.Now,
	}
}

// Register adds the client and joins the rooms its identity entitles it to:
// general and its user room for authenticated clients, admins for admins, and
// the public namespace for anonymous clients.
func (h *Hub) Register(c *Client) {
	h.Admit(c, nil)
}

// Admit registers c and, when welcome is non-nil, queues a connected message
// carrying the joined rooms ahead of any broadcast.
func (h *Hub) Admit(c *Client, welcome map[string]interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
	if c.Public {
		h.public[c] = struct{}{}
		h.metrics.connected(namespacePublic, 1)
	} else {
		h.join(c, RoomGeneral)
		if c.Identity.UserID != "" {
			h.join(c, UserRoom(c.Identity.UserID))
		}
		if c.Identity.Admin {
			h.join(c, RoomAdmins)
		}
		h.metrics.connected(namespaceAuthenticated, 1)
	}
	if welcome == nil {
		return
	}
	welcome["rooms"] = append([]string(nil), c.rooms...)
	b, err := json.Marshal(Envelope{Event: EventConnected, Data: welcome, Timestamp: h.now().UTC()})
	if err == nil {
		c.enqueue(b)
	}
}

// Join adds a registered authenticated client to an extra room.
func (h *Hub) Join(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok || c.Public {
		return
	}
	h.join(c, room)
}

func (h *Hub) join(c *Client, room string) {
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[room] = members
	}
	if _, in := members[c]; in {
		return
	}
	members[c] = struct{}{}
	c.rooms = append(c.rooms, room)
}

// Unregister removes the client from every room and closes its queue.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	if c.Public {
		delete(h.public, c)
		h.metrics.connected(namespacePublic, -1)
	} else {
		for _, room := range c.rooms {
			delete(h.rooms[room], c)
			if len(h.rooms[room]) == 0 {
				delete(h.rooms, room)
			}
		}
		h.metrics.connected(namespaceAuthenticated, -1)
	}
	close(c.send)
}

// Emit delivers msg to local connections. It never blocks on a slow client.
func (h *Hub) Emit(_ context.Context, msg Message) error {
	h.Deliver(msg)
	return nil
}

// Deliver fans msg out to its room or the public namespace and returns the
// number of clients it was queued for.
func (h *Hub) Deliver(msg Message) int {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = h.now().UTC()
	}
	b, err := json.Marshal(Envelope{Event: msg.Event, Data: msg.Data, Timestamp: msg.Timestamp})
	if err != nil {
		log.Warn().Err(err).Str("event", msg.Event).Msg("realtime: encode message")
		return 0
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	targets := h.public
	if !msg.Public {
		targets = h.rooms[msg.Room]
	}
	delivered := 0
	for c := range targets {
		if c.enqueue(b) {
			delivered++
			continue
		}
		h.metrics.dropped()
		log.Warn().Str("client_id", c.ID).Str("event", msg.Event).Msg("realtime: client queue full, dropping message")
	}
	h.metrics.emitted(msg.Event)
	return delivered
}

// SendTo queues a message for a single client, outside any room.
func (h *Hub) SendTo(c *Client, event string, data interface{}) bool {
	b, err := json.Marshal(Envelope{Event: event, Data: data, Timestamp: h.now().UTC()})
	if err != nil {
		return false
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[c]; !ok {
		return false
	}
	return c.enqueue(b)
}

// Stats is a point-in-time view of the connection table.
type Stats struct {
	Authenticated int            `json:"authenticated"`
	Public        int            `json:"public"`
	Users         int            `json:"users"`
	Admins        int            `json:"admins"`
	Rooms         map[string]int `json:"rooms"`
}

func (h *Hub) Stats() Stats {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s := Stats{
		Public: len(h.public),
		Admins: len(h.rooms[RoomAdmins]),
		Rooms:  make(map[string]int, len(h.rooms)),
	}
	s.Authenticated = len(h.clients) - len(h.public)
	for room, members := range h.rooms {
		s.Rooms[room] = len(members)
		if strings.HasPrefix(room, "user:") {
			s.Users++
		}
	}
	return s
}

// IsUserOnline reports whether userID has at least one open connection.
func (h *Hub) IsUserOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[UserRoom(userID)]) > 0
}
