package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxInbound = 4096
)

// ErrUnauthenticated is returned by an Authenticator for a missing or bad token.
var ErrUnauthenticated = errors.New("unauthenticated")

// Authenticator resolves a bearer token into a connection identity.
type Authenticator interface {
	Identify(ctx context.Context, token string) (Identity, error)
}

// Server upgrades HTTP requests to websocket connections registered on Hub.
// /ws requires a bearer token; /ws/public accepts anonymous connections.
type Server struct {
	Hub          *Hub
	Auth         Authenticator
	Upgrader     websocket.Upgrader
	ClientBuffer int
	// Inbound ping frames per second allowed per connection.
	PingRate  rate.Limit
	PingBurst int
}

func NewServer(hub *Hub, auth Authenticator) *Server {
	return &Server{
		Hub:  hub,
		Auth: auth,
		Upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		ClientBuffer: defaultClientBuffer,
		PingRate:     rate.Limit(1),
		PingBurst:    5,
	}
}

// Handler returns the mux serving both namespaces.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.ServeAuthenticated)
	mux.HandleFunc("/ws/public", s.ServePublic)
	return mux
}

// ServeAuthenticated handles the authenticated namespace.
func (s *Server) ServeAuthenticated(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" || s.Auth == nil {
		http.Error(w, "Missing token", http.StatusUnauthorized)
		return
	}
	id, err := s.Auth.Identify(r.Context(), token)
	if err != nil {
		log.Info().Err(err).Str("remote", r.RemoteAddr).Msg("realtime: rejected connection")
		http.Error(w, "Invalid token", http.StatusUnauthorized)
		return
	}
	conn, err := s.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("realtime: upgrade failed")
		return
	}
	client := NewClient(id, s.ClientBuffer)
	s.run(conn, client, map[string]interface{}{
		"message":  "Connected to EcoTrack real-time updates",
		"userId":   id.UserID,
		"username": id.Username,
		"admin":    id.Admin,
	})
}

// ServePublic handles the anonymous namespace.
func (s *Server) ServePublic(w http.ResponseWriter, r *http.Request) {
	conn, err := s.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("realtime: upgrade failed")
		return
	}
	s.run(conn, NewPublicClient(s.ClientBuffer), map[string]interface{}{
		"message": "Connected to EcoTrack public updates",
	})
}

func (s *Server) run(conn *websocket.Conn, client *Client, welcome map[string]interface{}) {
	s.Hub.Admit(client, welcome)
	log.Info().Str("client_id", client.ID).Str("user_id", client.Identity.UserID).Bool("public", client.Public).Msg("realtime: client connected")

	done := make(chan struct{})
	go s.writeLoop(conn, client, done)
	s.readLoop(conn, client)

	s.Hub.Unregister(client)
	<-done
	log.Info().Str("client_id", client.ID).Msg("realtime: client disconnected")
}

type inbound struct {
	Event string `json:"event"`
}

// readLoop only understands ping; everything else is ignored. It returns when
// the peer goes away.
func (s *Server) readLoop(conn *websocket.Conn, client *Client) {
	limiter := rate.NewLimiter(s.PingRate, s.PingBurst)
	conn.SetReadLimit(maxInbound)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Str("client_id", client.ID).Msg("realtime: read error")
			}
			return
		}
		var in inbound
		if json.Unmarshal(data, &in) != nil || in.Event != "ping" {
			continue
		}
		if !limiter.Allow() {
			continue
		}
		s.Hub.SendTo(client, EventPong, map[string]string{"clientId": client.ID})
	}
}

func (s *Server) writeLoop(conn *websocket.Conn, client *Client, done chan<- struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
		close(done)
	}()
	for {
		select {
		case b, ok := <-client.Messages():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return r.URL.Query().Get("token")
}
