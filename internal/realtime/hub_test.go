package realtime

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(t *testing.T, c *Client) []Envelope {
	t.Helper()
	var out []Envelope
	for {
		select {
		case b, ok := <-c.Messages():
			if !ok {
				return out
			}
			var env Envelope
			require.NoError(t, json.Unmarshal(b, &env))
			out = append(out, env)
		default:
			return out
		}
	}
}

func events(envs []Envelope) []string {
	out := make([]string, 0, len(envs))
	for _, e := range envs {
		out = append(out, e.Event)
	}
	return out
}

func TestHub_AddressingModes(t *testing.T) {
	hub := NewHub(NewMetrics(nil))
	alice := NewClient(Identity{UserID: "a", Username: "alice"}, 8)
	bob := NewClient(Identity{UserID: "b", Username: "bob"}, 8)
	admin := NewClient(Identity{UserID: "root", Username: "root", Admin: true}, 8)
	anon := NewPublicClient(8)
	for _, c := range []*Client{alice, bob, admin, anon} {
		hub.Register(c)
	}

	b := NewBroadcaster(hub)
	ctx := context.Background()
	b.ToGeneral(ctx, EventNewDonation, ListingSummary{ID: "1"})
	b.ItemClaimed(ctx, "a", ClaimNotice{ListingID: "1"})
	b.AdminAlert(ctx, Alert{Type: "user", Message: "new user"})
	b.Announcement(ctx, "hello")

	assert.Equal(t, []string{EventNewDonation, EventItemClaimed}, events(drain(t, alice)))
	assert.Equal(t, []string{EventNewDonation}, events(drain(t, bob)))
	assert.Equal(t, []string{EventNewDonation, EventAdminAlert}, events(drain(t, admin)))
	assert.Equal(t, []string{EventAnnouncement}, events(drain(t, anon)))
}

func TestHub_RegisterJoinsIdentityRooms(t *testing.T) {
	hub := NewHub(nil)
	admin := NewClient(Identity{UserID: "x", Admin: true}, 1)
	hub.Register(admin)
	assert.ElementsMatch(t, []string{RoomGeneral, "user:x", RoomAdmins}, admin.Rooms())

	anon := NewPublicClient(1)
	hub.Register(anon)
	assert.Empty(t, anon.Rooms())

	hub.Join(anon, RoomGeneral)
	assert.Empty(t, anon.Rooms())

	stats := hub.Stats()
	assert.Equal(t, 1, stats.Authenticated)
	assert.Equal(t, 1, stats.Public)
	assert.Equal(t, 1, stats.Admins)
	assert.Equal(t, 1, stats.Users)
	assert.True(t, hub.IsUserOnline("x"))
}

func TestHub_FullQueueDropsWithoutBlocking(t *testing.T) {
	hub := NewHub(NewMetrics(nil))
	slow := NewClient(Identity{UserID: "slow"}, 1)
	fast := NewClient(Identity{UserID: "fast"}, 8)
	hub.Register(slow)
	hub.Register(fast)

	for i := 0; i < 3; i++ {
		hub.Deliver(Message{Room: RoomGeneral, Event: EventLeaderboardUpdate})
	}
	assert.Len(t, drain(t, slow), 1)
	assert.Len(t, drain(t, fast), 3)
}

func TestHub_UnregisterClosesQueue(t *testing.T) {
	hub := NewHub(nil)
	c := NewClient(Identity{UserID: "u"}, 2)
	hub.Register(c)
	hub.Unregister(c)
	hub.Unregister(c)

	_, ok := <-c.Messages()
	assert.False(t, ok)
	assert.Equal(t, 0, hub.Deliver(Message{Room: RoomGeneral, Event: "x"}))
	assert.False(t, hub.IsUserOnline("u"))
}

func TestHub_AdmitQueuesWelcomeFirst(t *testing.T) {
	hub := NewHub(nil)
	c := NewClient(Identity{UserID: "w"}, 4)
	hub.Admit(c, map[string]interface{}{"message": "hi"})
	hub.Deliver(Message{Room: RoomGeneral, Event: EventNewComment})

	got := drain(t, c)
	require.Len(t, got, 2)
	assert.Equal(t, EventConnected, got[0].Event)
	data := got[0].Data.(map[string]interface{})
	assert.ElementsMatch(t, []interface{}{RoomGeneral, "user:w"}, data["rooms"])
	assert.Equal(t, EventNewComment, got[1].Event)
}

type failingEmitter struct{ calls int }

func (f *failingEmitter) Emit(context.Context, Message) error {
	f.calls++
	return assert.AnError
}

func TestBroadcaster_SwallowsEmitErrors(t *testing.T) {
	f := &failingEmitter{}
	b := NewBroadcaster(f)
	assert.NotPanics(t, func() {
		b.SecurityAlert(context.Background(), Alert{Type: "login", Message: "too many failures"})
	})
	assert.Equal(t, 1, f.calls)

	var nilB *Broadcaster
	assert.NotPanics(t, func() { nilB.ItemUnavailable(context.Background(), "1", "donation") })
}
