package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticAuth map[string]Identity

func (s staticAuth) Identify(_ context.Context, token string) (Identity, error) {
	id, ok := s[token]
	if !ok {
		return Identity{}, ErrUnauthenticated
	}
	return id, nil
}

func startServer(t *testing.T) (*Hub, string) {
	hub := NewHub(NewMetrics(nil))
	srv := NewServer(hub, staticAuth{
		"tok-alice": {UserID: "alice-id", Username: "alice"},
		"tok-admin": {UserID: "admin-id", Username: "root", Admin: true},
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return hub, "ws" + strings.TrimPrefix(ts.URL, "http")
}

func readEnvelope(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var env Envelope
	require.NoError(t, conn.ReadJSON(&env))
	return env
}

func TestServer_RejectsMissingAndBadTokens(t *testing.T) {
	_, url := startServer(t)

	_, resp, err := websocket.DefaultDialer.Dial(url+"/ws", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(url+"/ws?token=nope", nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestServer_AuthenticatedClientReceivesWelcomeAndRoomEvents(t *testing.T) {
	hub, url := startServer(t)

	header := http.Header{"Authorization": []string{"Bearer tok-alice"}}
	conn, _, err := websocket.DefaultDialer.Dial(url+"/ws", header)
	require.NoError(t, err)
	defer conn.Close()

	welcome := readEnvelope(t, conn)
	assert.Equal(t, EventConnected, welcome.Event)
	data := welcome.Data.(map[string]interface{})
	assert.Equal(t, "alice-id", data["userId"])

	b := NewBroadcaster(hub)
	b.ItemClaimed(context.Background(), "alice-id", ClaimNotice{ListingID: "l1"})
	b.AdminAlert(context.Background(), Alert{Message: "admins only"})
	b.ItemUnavailable(context.Background(), "l1", "recyclable")

	assert.Equal(t, EventItemClaimed, readEnvelope(t, conn).Event)
	assert.Equal(t, EventItemUnavailable, readEnvelope(t, conn).Event)
}

func TestServer_PingPong(t *testing.T) {
	_, url := startServer(t)
	conn, _, err := websocket.DefaultDialer.Dial(url+"/ws?token=tok-admin", nil)
	require.NoError(t, err)
	defer conn.Close()
	readEnvelope(t, conn)

	require.NoError(t, conn.WriteJSON(map[string]string{"event": "ping"}))
	assert.Equal(t, EventPong, readEnvelope(t, conn).Event)
}

func TestServer_PublicNamespace(t *testing.T) {
	hub, url := startServer(t)
	conn, _, err := websocket.DefaultDialer.Dial(url+"/ws/public", nil)
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, EventConnected, readEnvelope(t, conn).Event)

	b := NewBroadcaster(hub)
	b.ToGeneral(context.Background(), EventNewDonation, nil)
	b.Announcement(context.Background(), "community cleanup on Saturday")

	env := readEnvelope(t, conn)
	assert.Equal(t, EventAnnouncement, env.Event)
}

func TestServer_DisconnectUnregisters(t *testing.T) {
	hub, url := startServer(t)
	conn, _, err := websocket.DefaultDialer.Dial(url+"/ws?token=tok-alice", nil)
	require.NoError(t, err)
	readEnvelope(t, conn)
	assert.True(t, hub.IsUserOnline("alice-id"))

	conn.Close()
	assert.Eventually(t, func() bool { return !hub.IsUserOnline("alice-id") }, 2*time.Second, 10*time.Millisecond)
}
